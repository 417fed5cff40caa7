package metrics

import (
	"context"
	"time"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage"
)

// InstrumentedStore records every call to the wrapped provider.
type InstrumentedStore struct {
	storage.Provider
	rec *Recorder
}

func NewInstrumentedStore(p storage.Provider, rec *Recorder) *InstrumentedStore {
	return &InstrumentedStore{Provider: p, rec: rec}
}

func (s *InstrumentedStore) Init(ctx context.Context) (err error) {
	defer func(start time.Time) { s.rec.observe("init", start, err) }(time.Now())
	return s.Provider.Init(ctx)
}

func (s *InstrumentedStore) Open(ctx context.Context) (err error) {
	defer func(start time.Time) { s.rec.observe("open", start, err) }(time.Now())
	return s.Provider.Open(ctx)
}

func (s *InstrumentedStore) LoadSchedule(ctx context.Context, name string) (doc models.Document, err error) {
	defer func(start time.Time) { s.rec.observe("load", start, err) }(time.Now())
	return s.Provider.LoadSchedule(ctx, name)
}

func (s *InstrumentedStore) SaveSchedule(ctx context.Context, name string, doc models.Document) (err error) {
	defer func(start time.Time) { s.rec.observe("save", start, err) }(time.Now())
	return s.Provider.SaveSchedule(ctx, name, doc)
}

func (s *InstrumentedStore) ListSchedules(ctx context.Context) (infos []storage.ScheduleInfo, err error) {
	defer func(start time.Time) { s.rec.observe("list", start, err) }(time.Now())
	return s.Provider.ListSchedules(ctx)
}

// Unwrap returns the wrapped provider.
func (s *InstrumentedStore) Unwrap() storage.Provider {
	return s.Provider
}
