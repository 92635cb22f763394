package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "zasterix"

// Metrics holds all Zasterix metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	SessionsMounted  metric.Int64Counter
	TasksCompleted   metric.Int64Counter
	GuardBlocked     metric.Int64Counter
	Consultations    metric.Int64Counter
	TemplatesCreated metric.Int64Counter
	AuditRecorded    metric.Int64Counter
	JobsDropped      metric.Int64Counter
	JobsFailed       metric.Int64Counter
	CoachDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWith(otel.GetMeterProvider())
}

// NewMetricsWith creates all metric instruments on mp.
func NewMetricsWith(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.SessionsMounted, "zasterix.sessions.mounted", "Number of module sessions mounted"},
		{&m.TasksCompleted, "zasterix.tasks.completed", "Number of tasks newly completed"},
		{&m.GuardBlocked, "zasterix.guard.blocked", "Number of inputs blocked by the prompt guard"},
		{&m.Consultations, "zasterix.consultations", "Number of specialist consultations"},
		{&m.TemplatesCreated, "zasterix.templates.created", "Number of agent templates created"},
		{&m.AuditRecorded, "zasterix.audit.recorded", "Number of history entries recorded"},
		{&m.JobsDropped, "zasterix.jobs.dropped", "Number of background jobs dropped"},
		{&m.JobsFailed, "zasterix.jobs.failed", "Number of background job attempts that failed"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	m.CoachDuration, err = meter.Float64Histogram("zasterix.coach.duration_seconds",
		metric.WithDescription("Asset coach run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Inc adds one to counter with the given attributes. A nil receiver is a no-op.
func (m *Metrics) Inc(ctx context.Context, counter func(*Metrics) metric.Int64Counter, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	counter(m).Add(ctx, 1, metric.WithAttributes(attrs...))
}

// ObserveCoach records the duration of one coach run.
func (m *Metrics) ObserveCoach(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.CoachDuration.Record(ctx, d.Seconds())
}

// Counter selectors for Inc.
func SessionsMounted(m *Metrics) metric.Int64Counter  { return m.SessionsMounted }
func TasksCompleted(m *Metrics) metric.Int64Counter   { return m.TasksCompleted }
func GuardBlocked(m *Metrics) metric.Int64Counter     { return m.GuardBlocked }
func Consultations(m *Metrics) metric.Int64Counter    { return m.Consultations }
func TemplatesCreated(m *Metrics) metric.Int64Counter { return m.TemplatesCreated }
func AuditRecorded(m *Metrics) metric.Int64Counter    { return m.AuditRecorded }
func JobsDropped(m *Metrics) metric.Int64Counter      { return m.JobsDropped }
func JobsFailed(m *Metrics) metric.Int64Counter       { return m.JobsFailed }
