package landedcost

import (
	"context"
	"fmt"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles landed-cost business operations.
//
// Every mutation of a trade operation acquires the per-operation lock, opens a
// transaction, reloads the operation with FindByIDForUpdate, applies the domain
// change and saves it. Domain events are published after commit.
type Service struct {
	*LandedCostReader

	repos          Repositories
	txScope        TransactionScope
	locker         OperationLocker
	reconciler     *ReconciliationService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates a new Service
func NewService(
	repos Repositories,
	txScope TransactionScope,
	locker OperationLocker,
	reconciler *ReconciliationService,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reconciler == nil {
		reconciler = NewReconciliationService(logger)
	}
	return &Service{
		LandedCostReader: NewLandedCostReader(repos),
		repos:            repos,
		txScope:          txScope,
		locker:           locker,
		reconciler:       reconciler,
		logger:           logger.Named("landed_cost_service"),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishDomainEvents publishes and clears the events collected on an aggregate
func (s *Service) publishDomainEvents(ctx context.Context, agg shared.AggregateRoot) {
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if s.eventPublisher != nil {
		// Errors are logged by the event bus, not propagated
		_ = s.eventPublisher.Publish(ctx, events...)
	}
	agg.ClearDomainEvents()
}

// mutateOperation runs fn under the operation lock and inside one transaction.
// The operation is saved when fn changed its version.
func (s *Service) mutateOperation(
	ctx context.Context,
	operationID uuid.UUID,
	fn func(repos TransactionalRepositories, op *landedcost.TradeOperation) error,
) (*landedcost.TradeOperation, error) {
	release, err := s.locker.Acquire(ctx, operationID)
	if err != nil {
		return nil, err
	}
	defer release()

	var op *landedcost.TradeOperation
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		loaded, err := repos.OperationRepo().FindByIDForUpdate(ctx, operationID)
		if err != nil {
			return err
		}
		version := loaded.Version
		if err := fn(repos, loaded); err != nil {
			return err
		}
		if loaded.Version != version {
			if err := repos.OperationRepo().SaveWithLock(ctx, loaded); err != nil {
				return err
			}
		}
		op = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, op)
	return op, nil
}

// OpenTradeOperation opens a new trade operation
func (s *Service) OpenTradeOperation(ctx context.Context, req OpenTradeOperationRequest) (*TradeOperationResponse, error) {
	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, landedcost.NewValidationError("currency", err.Error())
	}

	exists, err := s.repos.Operations.ExistsByNumber(ctx, req.OperationNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "trade operation "+req.OperationNumber+" already exists")
	}

	op, err := landedcost.NewTradeOperation(req.OperationNumber, currency, landedcost.OperationMetadata{
		Carrier:      req.Carrier,
		Vessel:       req.Vessel,
		BillOfLading: req.BillOfLading,
		Remark:       req.Remark,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repos.Operations.Save(ctx, op); err != nil {
		return nil, err
	}

	s.logger.Info("Trade operation opened",
		zap.String("operation_id", op.ID.String()),
		zap.String("operation_number", op.OperationNumber),
		zap.String("currency", string(op.Currency)),
	)
	s.publishDomainEvents(ctx, op)

	resp := ToTradeOperationResponse(op)
	return &resp, nil
}

// GetTradeOperation retrieves a trade operation by ID
func (s *Service) GetTradeOperation(ctx context.Context, id uuid.UUID) (*TradeOperationResponse, error) {
	op, err := s.repos.Operations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTradeOperationResponse(op)
	return &resp, nil
}

// GetTradeOperationByNumber retrieves a trade operation by its operation number
func (s *Service) GetTradeOperationByNumber(ctx context.Context, number string) (*TradeOperationResponse, error) {
	op, err := s.repos.Operations.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	resp := ToTradeOperationResponse(op)
	return &resp, nil
}

// ListTradeOperations lists trade operations with pagination
func (s *Service) ListTradeOperations(ctx context.Context, filter TradeOperationListFilter) (*shared.Paginated[TradeOperationResponse], error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = filter.Search

	ops, total, err := s.repos.Operations.FindAll(ctx, landedcost.OperationFilter{
		Filter: f,
		Status: landedcost.OperationStatus(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	items := make([]TradeOperationResponse, len(ops))
	for i := range ops {
		items[i] = ToTradeOperationResponse(&ops[i])
	}
	page := shared.NewPaginated(items, total, f.Page, f.Limit())
	return &page, nil
}

// AddShipmentLine records goods received against an open trade operation
func (s *Service) AddShipmentLine(ctx context.Context, operationID uuid.UUID, req AddShipmentLineRequest) (*ShipmentLineResponse, error) {
	var line *landedcost.ShipmentLine
	_, err := s.mutateOperation(ctx, operationID, func(repos TransactionalRepositories, op *landedcost.TradeOperation) error {
		var err error
		line, err = op.AddShipmentLine(req.PurchaseOrderLineID, req.toDomain())
		if err != nil {
			return err
		}
		return repos.LineRepo().Create(ctx, line)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Shipment line added",
		zap.String("operation_id", operationID.String()),
		zap.String("line_id", line.ID.String()),
		zap.Int("line_no", line.LineNo),
	)
	resp := ToShipmentLineResponse(line)
	return &resp, nil
}

// CorrectShipmentLine replaces a line with a new snapshot and flags the
// original superseded. Allocations computed on the original stay active until
// the operation is reallocated.
func (s *Service) CorrectShipmentLine(ctx context.Context, lineID uuid.UUID, req CorrectShipmentLineRequest) (*ShipmentLineResponse, error) {
	existing, err := s.repos.Lines.FindByID(ctx, lineID)
	if err != nil {
		return nil, err
	}

	var replacement *landedcost.ShipmentLine
	_, err = s.mutateOperation(ctx, existing.TradeOperationID, func(repos TransactionalRepositories, op *landedcost.TradeOperation) error {
		original, err := repos.LineRepo().FindByID(ctx, lineID)
		if err != nil {
			return err
		}
		replacement, err = op.CorrectShipmentLine(original, req.toDomain())
		if err != nil {
			return err
		}
		if err := repos.LineRepo().Create(ctx, replacement); err != nil {
			return err
		}
		return repos.LineRepo().MarkSuperseded(ctx, original.ID, replacement.ID, *original.SupersededAt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Shipment line corrected",
		zap.String("operation_id", existing.TradeOperationID.String()),
		zap.String("line_id", lineID.String()),
		zap.String("replacement_id", replacement.ID.String()),
	)
	resp := ToShipmentLineResponse(replacement)
	return &resp, nil
}

// CreateCharge records a charge and allocates it over the current shipment
// lines. Current charges of the same component are superseded by it.
func (s *Service) CreateCharge(ctx context.Context, operationID uuid.UUID, req CreateChargeRequest) (*ChargeResultResponse, error) {
	var (
		charge *landedcost.Charge
		result *ReconcileResult
	)
	_, err := s.mutateOperation(ctx, operationID, func(repos TransactionalRepositories, op *landedcost.TradeOperation) error {
		// Share lock until commit: a basis change waits for this charge and
		// then sees it as a reference.
		component, err := repos.ComponentRepo().FindByIDForShare(ctx, req.CostComponentID)
		if err != nil {
			return err
		}
		charge, err = op.RecordCharge(component, req.toDomain())
		if err != nil {
			return err
		}
		if err := repos.ChargeRepo().Create(ctx, charge); err != nil {
			return err
		}
		result, err = s.reconciler.Reconcile(ctx, repos, op, component, charge)
		if err != nil {
			return err
		}
		return op.RecordAllocation(charge, result.Allocations, result.Superseded)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Charge recorded",
		zap.String("operation_id", operationID.String()),
		zap.String("charge_id", charge.ID.String()),
		zap.String("kind", charge.Kind()),
		zap.String("amount", charge.Money().String()),
		zap.Int("allocations", len(result.Allocations)),
		zap.Int("superseded", len(result.Superseded)),
	)
	return &ChargeResultResponse{
		Charge:      ToChargeResponse(charge),
		Allocations: ToAllocationResponses(result.Allocations),
		Superseded:  result.Superseded,
	}, nil
}

// ReallocateTradeOperation rebuilds the allocation set of every current charge
// whose active set no longer matches the current shipment lines
func (s *Service) ReallocateTradeOperation(ctx context.Context, operationID uuid.UUID) (*ReallocationResponse, error) {
	resp := &ReallocationResponse{TradeOperationID: operationID, ReallocatedIDs: []uuid.UUID{}}
	_, err := s.mutateOperation(ctx, operationID, func(repos TransactionalRepositories, op *landedcost.TradeOperation) error {
		if err := op.EnsureOpen("reallocate"); err != nil {
			return err
		}
		lines, err := repos.LineRepo().FindByOperation(ctx, op.ID, false)
		if err != nil {
			return err
		}
		charges, err := repos.ChargeRepo().FindByOperation(ctx, op.ID, false)
		if err != nil {
			return err
		}
		for i := range charges {
			charge := &charges[i]
			active, err := repos.AllocationRepo().FindActiveByCharge(ctx, charge.ID)
			if err != nil {
				return err
			}
			if landedcost.IsFullyAllocated(charge, active, lines) {
				resp.UpToDateCount++
				continue
			}
			component, err := repos.ComponentRepo().FindByID(ctx, charge.CostComponentID)
			if err != nil {
				return err
			}
			allocations, err := s.reconciler.Reallocate(ctx, repos, op, component, charge)
			if err != nil {
				return fmt.Errorf("reallocate charge %s: %w", charge.ID, err)
			}
			if err := op.RecordAllocation(charge, allocations, nil); err != nil {
				return err
			}
			resp.ReallocatedIDs = append(resp.ReallocatedIDs, charge.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trade operation reallocated",
		zap.String("operation_id", operationID.String()),
		zap.Int("reallocated", len(resp.ReallocatedIDs)),
		zap.Int("up_to_date", resp.UpToDateCount),
	)
	return resp, nil
}

// CloseTradeOperation closes an operation whose current charges are all
// actual and fully allocated
func (s *Service) CloseTradeOperation(ctx context.Context, operationID uuid.UUID) (*TradeOperationResponse, error) {
	op, err := s.mutateOperation(ctx, operationID, func(repos TransactionalRepositories, op *landedcost.TradeOperation) error {
		lines, err := repos.LineRepo().FindByOperation(ctx, op.ID, false)
		if err != nil {
			return err
		}
		charges, err := repos.ChargeRepo().FindByOperation(ctx, op.ID, false)
		if err != nil {
			return err
		}
		states := make([]landedcost.ChargeAllocationState, len(charges))
		for i := range charges {
			active, err := repos.AllocationRepo().FindActiveByCharge(ctx, charges[i].ID)
			if err != nil {
				return err
			}
			states[i] = landedcost.ChargeAllocationState{Charge: charges[i], Allocations: active}
		}
		return op.Close(states, lines)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trade operation closed", zap.String("operation_id", operationID.String()))
	resp := ToTradeOperationResponse(op)
	return &resp, nil
}

// CancelTradeOperation cancels an open operation and voids its active allocations
func (s *Service) CancelTradeOperation(ctx context.Context, operationID uuid.UUID, req CancelTradeOperationRequest) (*TradeOperationResponse, error) {
	var voided int64
	op, err := s.mutateOperation(ctx, operationID, func(repos TransactionalRepositories, op *landedcost.TradeOperation) error {
		if err := op.Cancel(req.Reason); err != nil {
			return err
		}
		var err error
		voided, err = repos.AllocationRepo().SupersedeByOperation(ctx, op.ID, *op.CancelledAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trade operation cancelled",
		zap.String("operation_id", operationID.String()),
		zap.Int64("voided_allocations", voided),
	)
	resp := ToTradeOperationResponse(op)
	return &resp, nil
}
