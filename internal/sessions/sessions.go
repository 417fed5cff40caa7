// Package sessions tracks running weekplan editors through lockfiles so a
// new session can warn that saves from another one may overwrite its own.
package sessions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpid          = os.Getpid
)

// Session is another live editor.
type Session struct {
	PID      int
	Store    string
	Schedule string
}

// Lock marks the current process as editing a schedule until Release.
type Lock struct {
	path string
}

func lockPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf("%d.lock", pid))
}

// Acquire writes a lockfile for this process into dir.
func Acquire(dir, store, schedule string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	if strings.ContainsAny(store+schedule, "|\n") {
		return nil, errors.New("store and schedule must not contain '|' or newlines")
	}
	pid := getpid()
	path := lockPath(dir, pid)
	content := fmt.Sprintf("%d|%s|%s", pid, store, schedule)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return nil, fmt.Errorf("failed to write session lock: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lockfile. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func parseLock(content string) (Session, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 3 {
		return Session{}, errors.New("lockfile is malformed")
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid < 1 {
		return Session{}, errors.New("invalid process ID in lockfile")
	}
	if strings.TrimSpace(parts[2]) == "" {
		return Session{}, errors.New("schedule in lockfile is empty")
	}
	return Session{PID: pid, Store: parts[1], Schedule: parts[2]}, nil
}

// alive reports whether pid is a running weekplan process.
func alive(pid int) bool {
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return false
	}
	return strings.HasPrefix(process.Executable(), constants.AppName)
}

// Others lists live sessions in dir other than the current process that
// use store. Stale and malformed lockfiles are removed.
func Others(dir, store string) ([]Session, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	self := getpid()
	var sessions []Session
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lock" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		s, err := parseLock(string(content))
		if err == nil && s.PID == self {
			continue
		}
		if err != nil || !alive(s.PID) {
			logger.Debug("Removing stale session lock", "path", path, "error", err)
			_ = os.Remove(path)
			continue
		}
		if s.Store != store {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
