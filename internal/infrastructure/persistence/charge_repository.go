package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChargeRepository implements ChargeRepository using GORM
type GormChargeRepository struct {
	db *gorm.DB
}

// NewGormChargeRepository creates a new GormChargeRepository
func NewGormChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// FindByID finds a charge by its ID
func (r *GormChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.Charge, error) {
	var model models.ChargeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, landedcost.NotFound("charge", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOperation lists the charges of an operation in creation order
func (r *GormChargeRepository) FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]landedcost.Charge, error) {
	query := r.db.WithContext(ctx).Where("trade_operation_id = ?", operationID)
	if !includeSuperseded {
		query = query.Where("superseded_by IS NULL")
	}
	return r.find(query)
}

// FindCurrentByComponent returns the non-superseded charges of an operation and component
func (r *GormChargeRepository) FindCurrentByComponent(ctx context.Context, operationID, componentID uuid.UUID) ([]landedcost.Charge, error) {
	return r.find(r.db.WithContext(ctx).
		Where("trade_operation_id = ? AND cost_component_id = ? AND superseded_by IS NULL", operationID, componentID))
}

// ExistsForComponent checks whether any charge references the component
func (r *GormChargeRepository) ExistsForComponent(ctx context.Context, componentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Where("cost_component_id = ?", componentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a charge
func (r *GormChargeRepository) Create(ctx context.Context, charge *landedcost.Charge) error {
	model := models.ChargeModelFromDomain(charge)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "charge")
}

// MarkSuperseded flags a current charge as replaced
func (r *GormChargeRepository) MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Where("id = ? AND superseded_by IS NULL", id).
		Updates(map[string]any{
			"superseded_by": supersededBy,
			"superseded_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return landedcost.NewStateError("charge", "SUPERSEDED", "supersede", "charge "+id.String()+" was already superseded")
	}
	return nil
}

func (r *GormChargeRepository) find(query *gorm.DB) ([]landedcost.Charge, error) {
	var rows []models.ChargeModel
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	charges := make([]landedcost.Charge, len(rows))
	for i := range rows {
		charges[i] = *rows[i].ToDomain()
	}
	return charges, nil
}

var _ landedcost.ChargeRepository = (*GormChargeRepository)(nil)
