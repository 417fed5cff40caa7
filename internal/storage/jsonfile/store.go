// Package jsonfile stores all schedules in a single JSON file. Every save
// rewrites the file through a temporary file and a rename.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage"
)

const fileVersion = 1

type entry struct {
	Revision  int             `json:"revision"`
	UpdatedAt time.Time       `json:"updated_at"`
	Document  json.RawMessage `json:"document"`
}

type file struct {
	Version   int              `json:"version"`
	Schedules map[string]entry `json:"schedules"`
}

type Store struct {
	path   string
	opened bool
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		s.opened = true
		_, err := s.read()
		return err
	}
	if err := s.write(&file{Version: fileVersion, Schedules: map[string]entry{}}); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *Store) Open(ctx context.Context) error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return storage.ErrNotInitialized
	}
	if _, err := s.read(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *Store) Close() error {
	s.opened = false
	return nil
}

// read loads the file fresh on every call so that saves from other
// processes are seen.
func (s *Store) read() (*file, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage: %w", err)
	}

	f := &file{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse storage %s: %w", s.path, err)
	}
	if f.Version > fileVersion {
		return nil, fmt.Errorf("storage file version %d is newer than supported version %d", f.Version, fileVersion)
	}
	if f.Schedules == nil {
		f.Schedules = map[string]entry{}
	}
	return f, nil
}

func (s *Store) write(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace storage: %w", err)
	}
	return nil
}

func (s *Store) LoadSchedule(ctx context.Context, name string) (models.Document, error) {
	if !s.opened {
		return models.Document{}, storage.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return models.Document{}, err
	}

	f, err := s.read()
	if err != nil {
		return models.Document{}, err
	}
	e, ok := f.Schedules[name]
	if !ok {
		return models.Document{}, storage.ErrNotFound
	}

	doc, err := models.DecodeDocument(e.Document)
	if err != nil {
		return models.Document{}, fmt.Errorf("schedule %q is corrupt: %w", name, err)
	}
	return doc, nil
}

func (s *Store) SaveSchedule(ctx context.Context, name string, doc models.Document) error {
	if !s.opened {
		return storage.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := models.EncodeDocument(doc)
	if err != nil {
		return err
	}
	f, err := s.read()
	if err != nil {
		return err
	}

	prev := f.Schedules[name]
	f.Schedules[name] = entry{
		Revision:  prev.Revision + 1,
		UpdatedAt: time.Now().UTC(),
		Document:  data,
	}
	return s.write(f)
}

func (s *Store) ListSchedules(ctx context.Context) ([]storage.ScheduleInfo, error) {
	if !s.opened {
		return nil, storage.ErrNotInitialized
	}
	f, err := s.read()
	if err != nil {
		return nil, err
	}

	infos := make([]storage.ScheduleInfo, 0, len(f.Schedules))
	for name, e := range f.Schedules {
		infos = append(infos, storage.ScheduleInfo{Name: name, Revision: e.Revision, UpdatedAt: e.UpdatedAt})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (s *Store) Describe() string {
	return s.path
}

// Path returns the storage file, for backups.
func (s *Store) Path() string {
	return s.path
}
