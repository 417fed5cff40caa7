// Package metrics exposes store and editing activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/schedule"
	"github.com/julianstephens/weekplan/internal/storage"
)

// Recorder holds the weekplan collectors.
type Recorder struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
	events  *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg, or on the default registerer
// when reg is nil. Collectors that are already registered are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weekplan_store_operations_total",
		Help: "Store operations by name and result",
	}, []string{"op", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "weekplan_store_operation_seconds",
		Help:    "Store operation latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weekplan_schedule_events_total",
		Help: "Schedule changes by kind",
	}, []string{"kind"})

	var err error
	if ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if events, err = register(reg, events); err != nil {
		return nil, err
	}
	return &Recorder{ops: ops, latency: latency, events: events}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (r *Recorder) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, storage.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	r.ops.WithLabelValues(op, result).Inc()
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Listener counts schedule events. Subscribe it to a schedule.Model.
func (r *Recorder) Listener() schedule.Listener {
	return func(e schedule.Event) {
		r.events.WithLabelValues(string(e.Kind)).Inc()
	}
}

// Serve exposes /metrics for gatherer on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, gatherer)
}

func serve(ctx context.Context, ln net.Listener, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}()

	logger.Debug("Serving metrics", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
