package landedcost

import (
	"context"
	"time"

	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/google/uuid"
)

// CostComponentRepository persists cost components
type CostComponentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CostComponent, error)
	// FindByIDForUpdate loads the component holding an exclusive row lock for
	// the rest of the transaction where the database supports it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*CostComponent, error)
	// FindByIDForShare loads the component holding a shared row lock. It waits
	// for, and blocks, a concurrent FindByIDForUpdate on the same row.
	FindByIDForShare(ctx context.Context, id uuid.UUID) (*CostComponent, error)
	// FindByIDs returns the components found; missing ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]CostComponent, error)
	FindAll(ctx context.Context, activeOnly bool) ([]CostComponent, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, component *CostComponent) error
}

// OperationFilter narrows trade operation listings
type OperationFilter struct {
	shared.Filter
	Status OperationStatus
}

// TradeOperationRepository persists trade operations
type TradeOperationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*TradeOperation, error)
	// FindByIDForUpdate loads the operation holding a row lock for the rest
	// of the transaction where the database supports it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*TradeOperation, error)
	FindByNumber(ctx context.Context, operationNumber string) (*TradeOperation, error)
	ExistsByNumber(ctx context.Context, operationNumber string) (bool, error)
	FindAll(ctx context.Context, filter OperationFilter) ([]TradeOperation, int64, error)
	// Save inserts a new operation
	Save(ctx context.Context, op *TradeOperation) error
	// SaveWithLock updates an operation if its stored version is one behind
	SaveWithLock(ctx context.Context, op *TradeOperation) error
}

// ShipmentLineRepository persists shipment lines
type ShipmentLineRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ShipmentLine, error)
	FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]ShipmentLine, error)
	Create(ctx context.Context, line *ShipmentLine) error
	MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID, at time.Time) error
}

// ChargeRepository persists charges
type ChargeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Charge, error)
	FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]Charge, error)
	// FindCurrentByComponent returns the non-superseded charges of the pair
	FindCurrentByComponent(ctx context.Context, operationID, componentID uuid.UUID) ([]Charge, error)
	ExistsForComponent(ctx context.Context, componentID uuid.UUID) (bool, error)
	Create(ctx context.Context, charge *Charge) error
	// MarkSuperseded flags a current charge; it fails if the charge was
	// already superseded by someone else.
	MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID, at time.Time) error
}

// AllocationRepository persists allocation rows
type AllocationRepository interface {
	CreateBatch(ctx context.Context, allocations []Allocation) error
	FindActiveByCharge(ctx context.Context, chargeID uuid.UUID) ([]Allocation, error)
	FindActiveByLine(ctx context.Context, lineID uuid.UUID) ([]Allocation, error)
	FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]Allocation, error)
	SupersedeByCharge(ctx context.Context, chargeID uuid.UUID, at time.Time) (int64, error)
	SupersedeByOperation(ctx context.Context, operationID uuid.UUID, at time.Time) (int64, error)
}
