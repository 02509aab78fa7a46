package landedcost

import (
	"context"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/google/uuid"
)

// TransactionScope provides transactional access to landed-cost repositories.
// All repository operations executed through fn are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to one transaction.
//
// OperationRepo owns the TradeOperation aggregate root; every mutation loads it
// with FindByIDForUpdate first. Lines, charges and allocations are stored in
// their own tables and written through their repositories in the same transaction.
type TransactionalRepositories interface {
	OperationRepo() landedcost.TradeOperationRepository
	LineRepo() landedcost.ShipmentLineRepository
	ChargeRepo() landedcost.ChargeRepository
	AllocationRepo() landedcost.AllocationRepository
	ComponentRepo() landedcost.CostComponentRepository
}

// OperationLocker serializes mutations of one trade operation. Acquire waits a
// bounded time and fails with a *landedcost.ConcurrencyError when the lock stays held.
type OperationLocker interface {
	Acquire(ctx context.Context, operationID uuid.UUID) (func(), error)
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// This is useful for unit tests with mocked repositories.
type NoOpTransactionScope struct {
	operationRepo  landedcost.TradeOperationRepository
	lineRepo       landedcost.ShipmentLineRepository
	chargeRepo     landedcost.ChargeRepository
	allocationRepo landedcost.AllocationRepository
	componentRepo  landedcost.CostComponentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	operationRepo landedcost.TradeOperationRepository,
	lineRepo landedcost.ShipmentLineRepository,
	chargeRepo landedcost.ChargeRepository,
	allocationRepo landedcost.AllocationRepository,
	componentRepo landedcost.CostComponentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		operationRepo:  operationRepo,
		lineRepo:       lineRepo,
		chargeRepo:     chargeRepo,
		allocationRepo: allocationRepo,
		componentRepo:  componentRepo,
	}
}

// Execute runs fn without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) OperationRepo() landedcost.TradeOperationRepository { return s.operationRepo }
func (s *NoOpTransactionScope) LineRepo() landedcost.ShipmentLineRepository        { return s.lineRepo }
func (s *NoOpTransactionScope) ChargeRepo() landedcost.ChargeRepository            { return s.chargeRepo }
func (s *NoOpTransactionScope) AllocationRepo() landedcost.AllocationRepository    { return s.allocationRepo }
func (s *NoOpTransactionScope) ComponentRepo() landedcost.CostComponentRepository  { return s.componentRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
