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

// GormShipmentLineRepository implements ShipmentLineRepository using GORM
type GormShipmentLineRepository struct {
	db *gorm.DB
}

// NewGormShipmentLineRepository creates a new GormShipmentLineRepository
func NewGormShipmentLineRepository(db *gorm.DB) *GormShipmentLineRepository {
	return &GormShipmentLineRepository{db: db}
}

// FindByID finds a shipment line by its ID
func (r *GormShipmentLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.ShipmentLine, error) {
	var model models.ShipmentLineModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, landedcost.NotFound("shipment line", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOperation lists the lines of an operation in line number order
func (r *GormShipmentLineRepository) FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]landedcost.ShipmentLine, error) {
	query := r.db.WithContext(ctx).Where("trade_operation_id = ?", operationID)
	if !includeSuperseded {
		query = query.Where("superseded_at IS NULL")
	}
	var rows []models.ShipmentLineModel
	if err := query.Order("line_no ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]landedcost.ShipmentLine, len(rows))
	for i := range rows {
		lines[i] = *rows[i].ToDomain()
	}
	return lines, nil
}

// Create inserts a shipment line
func (r *GormShipmentLineRepository) Create(ctx context.Context, line *landedcost.ShipmentLine) error {
	model := models.ShipmentLineModelFromDomain(line)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "shipment line")
}

// MarkSuperseded points a current line at its correction
func (r *GormShipmentLineRepository) MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ShipmentLineModel{}).
		Where("id = ? AND superseded_at IS NULL", id).
		Updates(map[string]any{
			"superseded_at": at,
			"superseded_by": supersededBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return landedcost.NewStateError("shipment line", "SUPERSEDED", "correct", "line "+id.String()+" was already corrected")
	}
	return nil
}

var _ landedcost.ShipmentLineRepository = (*GormShipmentLineRepository)(nil)
