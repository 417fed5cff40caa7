package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/weekplan/internal/models"
)

var (
	// ErrNotFound is returned by LoadSchedule when no document exists for the name.
	ErrNotFound = errors.New("schedule not found")
	// ErrNotInitialized is returned by Open when the backing storage has not been created yet.
	ErrNotInitialized = errors.New("storage not initialized, run 'weekplan init' first")
)

// ScheduleInfo summarizes a stored document.
type ScheduleInfo struct {
	Name      string
	Revision  int
	UpdatedAt time.Time
}

// Provider persists whole schedule documents keyed by name.
//
// SaveSchedule has upsert semantics and replaces any existing document in
// full; concurrent writers are not coordinated, so the last save wins.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Open(ctx context.Context) error
	Close() error

	// Schedules
	LoadSchedule(ctx context.Context, name string) (models.Document, error)
	SaveSchedule(ctx context.Context, name string, doc models.Document) error
	ListSchedules(ctx context.Context) ([]ScheduleInfo, error)

	// Describe returns a non-sensitive description of the storage location.
	Describe() string
}

// Versioned is implemented by stores with a migrated schema.
type Versioned interface {
	SchemaVersion(ctx context.Context) (current, latest int, err error)
}

// Unwrap returns the innermost provider behind wrappers that expose
// Unwrap, such as instrumentation.
func Unwrap(p Provider) Provider {
	for {
		u, ok := p.(interface{ Unwrap() Provider })
		if !ok {
			return p
		}
		p = u.Unwrap()
	}
}
