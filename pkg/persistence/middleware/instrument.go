package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records the latency and outcome of snapshot store calls.
type StoreMetrics struct {
	Duration *prometheus.HistogramVec
}

// NewStoreMetrics creates the store collectors and registers them with reg.
func NewStoreMetrics(reg prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatflow_store_operation_duration_seconds",
				Help:    "Latency of snapshot store operations.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"op", "result"},
		),
	}
	if reg != nil {
		if err := reg.Register(m.Duration); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type instrumentedMiddleware struct {
	next    ports.SnapshotStore
	metrics *StoreMetrics
	logger  *slog.Logger
}

// NewInstrumentedMiddleware times every store call and logs failures.
// A missing snapshot is reported as result "not_found" and is not logged.
func NewInstrumentedMiddleware(metrics *StoreMetrics, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &instrumentedMiddleware{next: next, metrics: metrics, logger: logger}
	}
}

func (m *instrumentedMiddleware) observe(op, owner string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
		m.logger.Error("store operation failed", "op", op, "owner", owner, "err", err)
	}
	if m.metrics != nil {
		m.metrics.Duration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
	}
}

func (m *instrumentedMiddleware) Save(ctx context.Context, owner string, doc codec.Document) (err error) {
	defer func(start time.Time) { m.observe("save", owner, start, err) }(time.Now())
	return m.next.Save(ctx, owner, doc)
}

func (m *instrumentedMiddleware) Load(ctx context.Context, owner string) (doc codec.Document, err error) {
	defer func(start time.Time) { m.observe("load", owner, start, err) }(time.Now())
	return m.next.Load(ctx, owner)
}

func (m *instrumentedMiddleware) Delete(ctx context.Context, owner string) (err error) {
	defer func(start time.Time) { m.observe("delete", owner, start, err) }(time.Now())
	return m.next.Delete(ctx, owner)
}

func (m *instrumentedMiddleware) List(ctx context.Context) (owners []string, err error) {
	defer func(start time.Time) { m.observe("list", "", start, err) }(time.Now())
	return list(ctx, m.next)
}
