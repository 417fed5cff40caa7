// Package sqlite stores schedules in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/weekplan/internal/migration"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/migrations"
)

type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if s.db == nil {
		db, err := sql.Open("sqlite", s.path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
	}

	runner, err := s.runner()
	if err != nil {
		return err
	}
	if _, err := runner.Apply(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return storage.ErrNotInitialized
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.Validate(ctx)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) runner() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub, migration.SQLite), nil
}

func (s *Store) LoadSchedule(ctx context.Context, name string) (models.Document, error) {
	if s.db == nil {
		return models.Document{}, storage.ErrNotInitialized
	}

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM schedules WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to load schedule %q: %w", name, err)
	}

	doc, err := models.DecodeDocument([]byte(data))
	if err != nil {
		return models.Document{}, fmt.Errorf("schedule %q is corrupt: %w", name, err)
	}
	return doc, nil
}

func (s *Store) SaveSchedule(ctx context.Context, name string, doc models.Document) error {
	if s.db == nil {
		return storage.ErrNotInitialized
	}

	data, err := models.EncodeDocument(doc)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedules (name, data, updated_at, revision) VALUES (?, ?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			revision = schedules.revision + 1`,
		name, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save schedule %q: %w", name, err)
	}
	return nil
}

func (s *Store) ListSchedules(ctx context.Context) ([]storage.ScheduleInfo, error) {
	if s.db == nil {
		return nil, storage.ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, revision, updated_at FROM schedules ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var infos []storage.ScheduleInfo
	for rows.Next() {
		var info storage.ScheduleInfo
		var updated string
		if err := rows.Scan(&info.Name, &info.Revision, &updated); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			info.UpdatedAt = t
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *Store) Describe() string {
	return s.path
}

// Path returns the database file, for backups.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying connection, nil before Init or Open.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SchemaVersion reports the applied and the newest known migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, int, error) {
	if s.db == nil {
		return 0, 0, storage.ErrNotInitialized
	}
	runner, err := s.runner()
	if err != nil {
		return 0, 0, err
	}
	current, err := runner.CurrentVersion(ctx)
	if err != nil {
		return 0, 0, err
	}
	latest, err := runner.LatestVersion()
	if err != nil {
		return 0, 0, err
	}
	return current, latest, nil
}
