package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/storage"
)

type fakeProvider struct {
	docs    map[string]models.Document
	saveErr error
}

func (f *fakeProvider) Init(context.Context) error { return nil }
func (f *fakeProvider) Open(context.Context) error { return nil }
func (f *fakeProvider) Close() error               { return nil }
func (f *fakeProvider) Describe() string           { return "fake" }

func (f *fakeProvider) LoadSchedule(_ context.Context, name string) (models.Document, error) {
	doc, ok := f.docs[name]
	if !ok {
		return models.Document{}, storage.ErrNotFound
	}
	return doc, nil
}

func (f *fakeProvider) SaveSchedule(_ context.Context, name string, doc models.Document) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.docs[name] = doc
	return nil
}

func (f *fakeProvider) ListSchedules(context.Context) ([]storage.ScheduleInfo, error) {
	return nil, nil
}

func TestInstrumentedStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	require.NoError(t, err)

	fake := &fakeProvider{docs: map[string]models.Document{}}
	store := NewInstrumentedStore(fake, rec)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx))
	_, err = store.LoadSchedule(ctx, "default")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, store.SaveSchedule(ctx, "default", models.Document{}))
	fake.saveErr = errors.New("disk full")
	assert.Error(t, store.SaveSchedule(ctx, "default", models.Document{}))

	assert.Equal(t, "fake", store.Describe())
	assert.Same(t, fake, storage.Unwrap(store))

	expected := `
# HELP weekplan_store_operations_total Store operations by name and result
# TYPE weekplan_store_operations_total counter
weekplan_store_operations_total{op="init",result="ok"} 1
weekplan_store_operations_total{op="load",result="not_found"} 1
weekplan_store_operations_total{op="save",result="error"} 1
weekplan_store_operations_total{op="save",result="ok"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(rec.ops, strings.NewReader(expected)))
	assert.Equal(t, 3, testutil.CollectAndCount(rec.latency))
}

func TestRecorderReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRecorder(reg)
	require.NoError(t, err)
	second, err := NewRecorder(reg)
	require.NoError(t, err)

	first.ops.WithLabelValues("save", "ok").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.ops.WithLabelValues("save", "ok")))
}

func TestListenerCountsEvents(t *testing.T) {
	rec, err := NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)

	fake := &fakeProvider{docs: map[string]models.Document{}}
	m, err := schedule.Open(context.Background(), fake, "default")
	require.NoError(t, err)
	m.Subscribe(rec.Listener())

	require.NoError(t, m.AddSlot(context.Background(), "Lunch"))
	require.NoError(t, m.SetCell("Lunch", models.Monday, schedule.FieldText, "Soup"))

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.events.WithLabelValues(string(schedule.EventSlotAdded))))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.events.WithLabelValues(string(schedule.EventCellChanged))))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.events.WithLabelValues(string(schedule.EventSaved))))
}

func TestServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewRecorder(reg)
	require.NoError(t, err)
	rec.ops.WithLabelValues("save", "ok").Inc()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, reg) }()

	url := "http://" + ln.Addr().String() + "/metrics"
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, `weekplan_store_operations_total{op="save",result="ok"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
