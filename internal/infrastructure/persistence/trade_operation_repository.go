package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTradeOperationRepository implements TradeOperationRepository using GORM
type GormTradeOperationRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTradeOperationRepository creates a new GormTradeOperationRepository.
// lockTimeout bounds the row-lock wait of FindByIDForUpdate on PostgreSQL;
// zero leaves the server default.
func NewGormTradeOperationRepository(db *gorm.DB, lockTimeout time.Duration) *GormTradeOperationRepository {
	return &GormTradeOperationRepository{db: db, lockTimeout: lockTimeout}
}

// FindByID finds a trade operation by its ID
func (r *GormTradeOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.TradeOperation, error) {
	var model models.TradeOperationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, landedcost.NotFound("trade operation", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads the operation with SELECT ... FOR UPDATE on
// PostgreSQL. It must run inside a transaction. SQLite has no row locks and
// relies on its single writer.
func (r *GormTradeOperationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*landedcost.TradeOperation, error) {
	db := r.db.WithContext(ctx)
	if !supportsRowLocks(db) {
		return r.FindByID(ctx, id)
	}
	db, err := lockRows(db, lockStrengthUpdate, r.lockTimeout)
	if err != nil {
		return nil, err
	}

	var model models.TradeOperationModel
	err = db.First(&model, "id = ?", id).Error
	switch {
	case err == nil:
		return model.ToDomain(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, landedcost.NotFound("trade operation", id)
	case isLockNotAvailable(err):
		return nil, landedcost.NewConcurrencyError(id, "row lock wait timed out", err)
	default:
		return nil, err
	}
}

// FindByNumber finds a trade operation by its operation number
func (r *GormTradeOperationRepository) FindByNumber(ctx context.Context, operationNumber string) (*landedcost.TradeOperation, error) {
	var model models.TradeOperationModel
	if err := r.db.WithContext(ctx).First(&model, "operation_number = ?", operationNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, landedcost.NotFound("trade operation", operationNumber)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByNumber checks if an operation number is taken
func (r *GormTradeOperationRepository) ExistsByNumber(ctx context.Context, operationNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TradeOperationModel{}).
		Where("operation_number = ?", operationNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists trade operations matching the filter with the total count
func (r *GormTradeOperationRepository) FindAll(ctx context.Context, filter landedcost.OperationFilter) ([]landedcost.TradeOperation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TradeOperationModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("operation_number LIKE ? OR bill_of_lading LIKE ? OR vessel LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, TradeOperationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.TradeOperationModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	ops := make([]landedcost.TradeOperation, len(rows))
	for i := range rows {
		ops[i] = *rows[i].ToDomain()
	}
	return ops, total, nil
}

// Save inserts a new trade operation
func (r *GormTradeOperationRepository) Save(ctx context.Context, op *landedcost.TradeOperation) error {
	model := models.TradeOperationModelFromDomain(op)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "trade operation "+op.OperationNumber)
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormTradeOperationRepository) SaveWithLock(ctx context.Context, op *landedcost.TradeOperation) error {
	model := models.TradeOperationModelFromDomain(op)
	result := r.db.WithContext(ctx).
		Model(&models.TradeOperationModel{}).
		Where("id = ? AND version = ?", op.ID, op.Version-1).
		Updates(map[string]any{
			"status":        model.Status,
			"line_count":    model.LineCount,
			"closed_at":     model.ClosedAt,
			"cancelled_at":  model.CancelledAt,
			"cancel_reason": model.CancelReason,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return landedcost.NewConcurrencyError(op.ID, "trade operation was modified by another transaction", shared.ErrConcurrencyConflict)
	}
	return nil
}

var _ landedcost.TradeOperationRepository = (*GormTradeOperationRepository)(nil)
