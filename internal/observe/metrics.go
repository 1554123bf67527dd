// Package observe provides the OpenTelemetry metrics, tracing helpers and
// admin HTTP middleware used by the lastman service.
//
// Instruments are created through the OTel Metrics API and scraped through
// the Prometheus exporter installed by [InitProvider]. Tests should build
// their own [Metrics] with [NewMetrics] over a ManualReader-backed provider
// rather than use [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all lastman metrics.
const meterName = "github.com/MrWong99/lastman"

// Status attribute values shared by the counters below.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the metric instruments for the application. The OTel
// instruments are safe for concurrent use.
type Metrics struct {
	// RenderDecisions counts draw-listener decisions. Attributes:
	//   reason, drawn
	RenderDecisions metric.Int64Counter

	// MenuEntriesOffered counts list toggle entries added to NPC menus.
	// Attributes: list
	MenuEntriesOffered metric.Int64Counter

	// ListMutations counts add/remove operations triggered from menus.
	// Attributes: list, op, status
	ListMutations metric.Int64Counter

	// ListRebuilds counts full reloads of plugin state from settings.
	ListRebuilds metric.Int64Counter

	// ListSize reports the current number of ids per list. Attributes: list
	ListSize metric.Int64Gauge

	// PersistDuration tracks how long writing a list back to the settings
	// store takes.
	PersistDuration metric.Float64Histogram

	// ConfigReloads counts config file reload attempts. Attributes: status
	ConfigReloads metric.Int64Counter

	// HTTPRequestDuration tracks admin HTTP latency. Attributes:
	//   method, route, status
	HTTPRequestDuration metric.Float64Histogram
}

// storageBuckets are histogram boundaries (seconds) for settings writes,
// which range from in-memory to a remote database round trip.
var storageBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RenderDecisions, err = m.Int64Counter("lastman.render.decisions",
		metric.WithDescription("Draw decisions by reason and outcome."),
	); err != nil {
		return nil, err
	}
	if met.MenuEntriesOffered, err = m.Int64Counter("lastman.menu.entries_offered",
		metric.WithDescription("List toggle entries added to NPC menus."),
	); err != nil {
		return nil, err
	}
	if met.ListMutations, err = m.Int64Counter("lastman.list.mutations",
		metric.WithDescription("NPC list mutations by list, operation and status."),
	); err != nil {
		return nil, err
	}
	if met.ListRebuilds, err = m.Int64Counter("lastman.list.rebuilds",
		metric.WithDescription("Reloads of plugin state from settings."),
	); err != nil {
		return nil, err
	}
	if met.ListSize, err = m.Int64Gauge("lastman.list.size",
		metric.WithDescription("Number of NPC ids in each list."),
	); err != nil {
		return nil, err
	}
	if met.PersistDuration, err = m.Float64Histogram("lastman.list.persist.duration",
		metric.WithDescription("Latency of writing a list to the settings store."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(storageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConfigReloads, err = m.Int64Counter("lastman.config.reloads",
		metric.WithDescription("Config file reload attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("lastman.http.request.duration",
		metric.WithDescription("Admin HTTP latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a process-wide [Metrics] built from the global
// meter provider on first use. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordDecision counts one draw decision.
func (m *Metrics) RecordDecision(ctx context.Context, reason string, drawn bool) {
	m.RenderDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
		attribute.Bool("drawn", drawn),
	))
}

// RecordMenuEntry counts one toggle entry offered for list.
func (m *Metrics) RecordMenuEntry(ctx context.Context, list string) {
	m.MenuEntriesOffered.Add(ctx, 1, metric.WithAttributes(attribute.String("list", list)))
}

// RecordMutation counts one list mutation. status is [StatusOK] or
// [StatusError].
func (m *Metrics) RecordMutation(ctx context.Context, list, op, status string) {
	m.ListMutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("list", list),
		attribute.String("op", op),
		attribute.String("status", status),
	))
}

// RecordListSize sets the size gauge for list.
func (m *Metrics) RecordListSize(ctx context.Context, list string, n int) {
	m.ListSize.Record(ctx, int64(n), metric.WithAttributes(attribute.String("list", list)))
}

// RecordConfigReload counts one reload attempt.
func (m *Metrics) RecordConfigReload(ctx context.Context, status string) {
	m.ConfigReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
