package landedcost

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileResult is the allocation set produced for a new charge and the
// charges it replaced
type ReconcileResult struct {
	Allocations []landedcost.Allocation
	Superseded  []uuid.UUID
}

// ReconciliationService sits between charge creation and the allocation
// engine. A new charge replaces every current charge of the same
// (trade operation, cost component) pair: their supersession is recorded,
// their allocation rows are voided, and the new charge is allocated over the
// current shipment lines.
type ReconciliationService struct {
	logger  *zap.Logger
	metrics AllocationRecorder
}

// AllocationRecorder observes allocation engine runs
type AllocationRecorder interface {
	RecordAllocationRun(ctx context.Context, basis string, lines int, duration time.Duration, err error)
}

// NewReconciliationService creates a ReconciliationService
func NewReconciliationService(logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{logger: logger}
}

// SetMetrics sets the recorder for allocation runs
func (r *ReconciliationService) SetMetrics(m AllocationRecorder) {
	r.metrics = m
}

// Reconcile must run inside the caller's transaction while the operation lock
// is held. charge must already be persisted.
func (r *ReconciliationService) Reconcile(
	ctx context.Context,
	repos TransactionalRepositories,
	op *landedcost.TradeOperation,
	component *landedcost.CostComponent,
	charge *landedcost.Charge,
) (*ReconcileResult, error) {
	current, err := repos.ChargeRepo().FindCurrentByComponent(ctx, op.ID, component.ID)
	if err != nil {
		return nil, fmt.Errorf("find current charges: %w", err)
	}
	prior := make([]landedcost.Charge, 0, len(current))
	for i := range current {
		if current[i].ID != charge.ID {
			prior = append(prior, current[i])
		}
	}
	if err := landedcost.CheckSupersedes(charge, prior); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	superseded := make([]uuid.UUID, 0, len(prior))
	for i := range prior {
		old := &prior[i]
		if err := old.Supersede(charge, now); err != nil {
			return nil, err
		}
		if err := repos.ChargeRepo().MarkSuperseded(ctx, old.ID, charge.ID, now); err != nil {
			return nil, fmt.Errorf("supersede charge %s: %w", old.ID, err)
		}
		voided, err := repos.AllocationRepo().SupersedeByCharge(ctx, old.ID, now)
		if err != nil {
			return nil, fmt.Errorf("void allocations of charge %s: %w", old.ID, err)
		}
		superseded = append(superseded, old.ID)
		r.logger.Info("Charge superseded",
			zap.String("operation_id", op.ID.String()),
			zap.String("charge_id", old.ID.String()),
			zap.String("superseded_by", charge.ID.String()),
			zap.Int64("voided_allocations", voided),
		)
	}

	allocations, err := r.allocate(ctx, repos, op, component, charge)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{Allocations: allocations, Superseded: superseded}, nil
}

// Reallocate voids the active set of a current charge and allocates it again
// over the current shipment lines
func (r *ReconciliationService) Reallocate(
	ctx context.Context,
	repos TransactionalRepositories,
	op *landedcost.TradeOperation,
	component *landedcost.CostComponent,
	charge *landedcost.Charge,
) ([]landedcost.Allocation, error) {
	if _, err := repos.AllocationRepo().SupersedeByCharge(ctx, charge.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("void allocations of charge %s: %w", charge.ID, err)
	}
	return r.allocate(ctx, repos, op, component, charge)
}

func (r *ReconciliationService) allocate(
	ctx context.Context,
	repos TransactionalRepositories,
	op *landedcost.TradeOperation,
	component *landedcost.CostComponent,
	charge *landedcost.Charge,
) ([]landedcost.Allocation, error) {
	lines, err := repos.LineRepo().FindByOperation(ctx, op.ID, false)
	if err != nil {
		return nil, fmt.Errorf("load shipment lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, landedcost.NewValidationError("shipment_lines", "trade operation has no shipment lines to allocate over")
	}

	basis := string(component.AllocationBasis)
	ctx, span := telemetry.StartServiceSpan(ctx, "landed_cost", "allocate",
		telemetry.SpanAttrOperationID, op.ID,
		telemetry.SpanAttrChargeID, charge.ID,
		telemetry.SpanAttrBasis, basis,
		telemetry.SpanAttrLineCount, len(lines),
	)
	defer span.End()

	var allocations []landedcost.Allocation
	start := time.Now()
	telemetry.WithProfilingLabels(ctx, telemetry.AllocationLabels("allocate", basis), func(context.Context) {
		allocations, err = landedcost.Allocate(charge, component.AllocationBasis, op.Currency, lines)
	})
	if r.metrics != nil {
		r.metrics.RecordAllocationRun(ctx, basis, len(lines), time.Since(start), err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := repos.AllocationRepo().CreateBatch(ctx, allocations); err != nil {
		return nil, fmt.Errorf("save allocations: %w", err)
	}
	return allocations, nil
}
