package telemetry

import (
	"context"
	"time"

	"github.com/erp/landedcost/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// LandedCostMetrics holds the instruments of the allocation engine, the
// per-operation lock and the domain event stream.
//
// It observes lock waits, records allocation runs and subscribes to the
// event bus as a wildcard handler.
type LandedCostMetrics struct {
	allocationRuns     *Counter
	allocationDuration *Histogram
	allocationLines    *Histogram
	lockWait           *Histogram
	lockTimeouts       *Counter
	domainEvents       *Counter
}

// NewLandedCostMetrics creates the instruments on meter
func NewLandedCostMetrics(meter metric.Meter) (*LandedCostMetrics, error) {
	m := &LandedCostMetrics{}
	var err error

	if m.allocationRuns, err = NewCounter(meter,
		"lcm_allocation_runs_total",
		"Allocation engine runs by basis and outcome",
		"{run}",
	); err != nil {
		return nil, err
	}
	if m.allocationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "lcm_allocation_duration_seconds",
		Description: "Time spent computing one allocation set",
		Unit:        "s",
		Boundaries:  AllocationDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.allocationLines, err = NewHistogram(meter, HistogramOpts{
		Name:        "lcm_allocation_lines",
		Description: "Shipment lines a charge was allocated over",
		Unit:        "{line}",
		Boundaries:  []float64{1, 5, 10, 25, 50, 100, 250, 500},
	}); err != nil {
		return nil, err
	}
	if m.lockWait, err = NewHistogram(meter, HistogramOpts{
		Name:        "lcm_lock_wait_seconds",
		Description: "Wait for the per-trade-operation lock",
		Unit:        "s",
		Boundaries:  LockWaitBuckets,
	}); err != nil {
		return nil, err
	}
	if m.lockTimeouts, err = NewCounter(meter,
		"lcm_lock_timeouts_total",
		"Lock acquisitions that gave up with a concurrency conflict",
		"{acquisition}",
	); err != nil {
		return nil, err
	}
	if m.domainEvents, err = NewCounter(meter,
		"lcm_domain_events_total",
		"Domain events published by type",
		"{event}",
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAllocationRun records one engine run
func (m *LandedCostMetrics) RecordAllocationRun(ctx context.Context, basis string, lines int, duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.allocationRuns.Inc(ctx, AttrAllocationBasis.String(basis), AttrOutcome.String(outcome))
	m.allocationDuration.RecordDuration(ctx, duration, AttrAllocationBasis.String(basis))
	if err == nil {
		m.allocationLines.Record(ctx, float64(lines), AttrAllocationBasis.String(basis))
	}
}

// ObserveLockWait records how long an Acquire call waited
func (m *LandedCostMetrics) ObserveLockWait(ctx context.Context, backend string, wait time.Duration, acquired bool) {
	outcome := OutcomeSuccess
	if !acquired {
		outcome = OutcomeTimeout
		m.lockTimeouts.Inc(ctx, AttrLockBackend.String(backend))
	}
	m.lockWait.RecordDuration(ctx, wait, AttrLockBackend.String(backend), AttrOutcome.String(outcome))
}

// Handle counts a published domain event
func (m *LandedCostMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	m.domainEvents.Inc(ctx, AttrEventType.String(event.EventType()))
	return nil
}

// EventTypes subscribes to every event type
func (m *LandedCostMetrics) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*LandedCostMetrics)(nil)
