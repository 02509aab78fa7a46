package persistence

import (
	"context"
	"time"

	applc "github.com/erp/landedcost/internal/application/landedcost"
	"github.com/erp/landedcost/internal/domain/landedcost"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope. lockTimeout is
// handed to the trade operation and cost component repositories for their
// row-lock waits.
func NewGormTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos applc.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, lockTimeout: s.lockTimeout})
	})
}

type gormTransactionalRepositories struct {
	tx          *gorm.DB
	lockTimeout time.Duration
}

func (r *gormTransactionalRepositories) OperationRepo() landedcost.TradeOperationRepository {
	return NewGormTradeOperationRepository(r.tx, r.lockTimeout)
}

func (r *gormTransactionalRepositories) LineRepo() landedcost.ShipmentLineRepository {
	return NewGormShipmentLineRepository(r.tx)
}

func (r *gormTransactionalRepositories) ChargeRepo() landedcost.ChargeRepository {
	return NewGormChargeRepository(r.tx)
}

func (r *gormTransactionalRepositories) AllocationRepo() landedcost.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) ComponentRepo() landedcost.CostComponentRepository {
	return NewGormCostComponentRepository(r.tx, r.lockTimeout)
}

var _ applc.TransactionScope = (*GormTransactionScope)(nil)
var _ applc.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
