package persistence

import (
	"context"
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const allocationBatchSize = 200

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// CreateBatch inserts an allocation set
func (r *GormAllocationRepository) CreateBatch(ctx context.Context, allocations []landedcost.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	rows := make([]*models.AllocationModel, len(allocations))
	for i := range allocations {
		rows[i] = models.AllocationModelFromDomain(&allocations[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, allocationBatchSize).Error
}

// FindActiveByCharge lists the active allocations of a charge
func (r *GormAllocationRepository) FindActiveByCharge(ctx context.Context, chargeID uuid.UUID) ([]landedcost.Allocation, error) {
	return r.find(r.ordered(ctx).
		Where("lcm_allocations.charge_id = ? AND lcm_allocations.superseded_at IS NULL", chargeID))
}

// FindActiveByLine lists the active allocations of a shipment line
func (r *GormAllocationRepository) FindActiveByLine(ctx context.Context, lineID uuid.UUID) ([]landedcost.Allocation, error) {
	return r.find(r.ordered(ctx).
		Where("lcm_allocations.shipment_line_id = ? AND lcm_allocations.superseded_at IS NULL", lineID))
}

// FindByOperation lists allocations of an operation grouped by charge in line order
func (r *GormAllocationRepository) FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]landedcost.Allocation, error) {
	query := r.ordered(ctx).Where("lcm_allocations.trade_operation_id = ?", operationID)
	if !includeSuperseded {
		query = query.Where("lcm_allocations.superseded_at IS NULL")
	}
	return r.find(query)
}

// SupersedeByCharge marks the active allocations of a charge superseded
func (r *GormAllocationRepository) SupersedeByCharge(ctx context.Context, chargeID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("charge_id = ? AND superseded_at IS NULL", chargeID).
		Update("superseded_at", at)
	return result.RowsAffected, result.Error
}

// SupersedeByOperation marks every active allocation of an operation superseded
func (r *GormAllocationRepository) SupersedeByOperation(ctx context.Context, operationID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("trade_operation_id = ? AND superseded_at IS NULL", operationID).
		Update("superseded_at", at)
	return result.RowsAffected, result.Error
}

func (r *GormAllocationRepository) ordered(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select("lcm_allocations.*").
		Joins("JOIN lcm_shipment_lines ON lcm_shipment_lines.id = lcm_allocations.shipment_line_id").
		Order("lcm_allocations.created_at ASC").
		Order("lcm_allocations.charge_id ASC").
		Order("lcm_shipment_lines.line_no ASC")
}

func (r *GormAllocationRepository) find(query *gorm.DB) ([]landedcost.Allocation, error) {
	var rows []models.AllocationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	allocations := make([]landedcost.Allocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations, nil
}

var _ landedcost.AllocationRepository = (*GormAllocationRepository)(nil)
