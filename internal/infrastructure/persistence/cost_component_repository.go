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

// GormCostComponentRepository implements CostComponentRepository using GORM
type GormCostComponentRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormCostComponentRepository creates a new GormCostComponentRepository.
// lockTimeout bounds the row-lock wait of the locking finders on PostgreSQL.
func NewGormCostComponentRepository(db *gorm.DB, lockTimeout time.Duration) *GormCostComponentRepository {
	return &GormCostComponentRepository{db: db, lockTimeout: lockTimeout}
}

// FindByID finds a cost component by its ID
func (r *GormCostComponentRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.CostComponent, error) {
	var model models.CostComponentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, landedcost.NotFound("cost component", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate locks the component row until the transaction ends.
// Basis changes take this lock before checking for referencing charges.
func (r *GormCostComponentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*landedcost.CostComponent, error) {
	return r.findLocked(ctx, id, lockStrengthUpdate)
}

// FindByIDForShare locks the component row in share mode. Charge creation
// takes it so a basis change cannot commit between the lookup and the insert.
func (r *GormCostComponentRepository) FindByIDForShare(ctx context.Context, id uuid.UUID) (*landedcost.CostComponent, error) {
	return r.findLocked(ctx, id, lockStrengthShare)
}

func (r *GormCostComponentRepository) findLocked(ctx context.Context, id uuid.UUID, strength string) (*landedcost.CostComponent, error) {
	db := r.db.WithContext(ctx)
	if !supportsRowLocks(db) {
		return r.FindByID(ctx, id)
	}
	db, err := lockRows(db, strength, r.lockTimeout)
	if err != nil {
		return nil, err
	}

	var model models.CostComponentModel
	err = db.First(&model, "id = ?", id).Error
	switch {
	case err == nil:
		return model.ToDomain(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, landedcost.NotFound("cost component", id)
	case isLockNotAvailable(err):
		return nil, shared.NewDomainError(shared.ErrConcurrencyConflict.Code, "cost component "+id.String()+" is locked by another transaction")
	default:
		return nil, err
	}
}

// FindByIDs finds the cost components with the given IDs
func (r *GormCostComponentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]landedcost.CostComponent, error) {
	if len(ids) == 0 {
		return []landedcost.CostComponent{}, nil
	}
	var rows []models.CostComponentModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return componentsToDomain(rows), nil
}

// FindAll lists cost components ordered by name
func (r *GormCostComponentRepository) FindAll(ctx context.Context, activeOnly bool) ([]landedcost.CostComponent, error) {
	query := r.db.WithContext(ctx).Model(&models.CostComponentModel{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var rows []models.CostComponentModel
	if err := query.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return componentsToDomain(rows), nil
}

// ExistsByName checks whether a component with the name exists
func (r *GormCostComponentRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CostComponentModel{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new component (version 1) or updates an existing one with
// optimistic locking on the previous version.
func (r *GormCostComponentRepository) Save(ctx context.Context, component *landedcost.CostComponent) error {
	model := models.CostComponentModelFromDomain(component)
	if component.Version <= 1 {
		return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "cost component")
	}

	result := r.db.WithContext(ctx).
		Model(&models.CostComponentModel{}).
		Where("id = ? AND version = ?", component.ID, component.Version-1).
		Updates(map[string]any{
			"name":             model.Name,
			"component_type":   model.ComponentType,
			"allocation_basis": model.AllocationBasis,
			"active":           model.Active,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return translateWriteError(result.Error, "cost component")
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.ErrConcurrencyConflict.Code, "cost component was modified by another transaction")
	}
	return nil
}

func componentsToDomain(rows []models.CostComponentModel) []landedcost.CostComponent {
	out := make([]landedcost.CostComponent, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ landedcost.CostComponentRepository = (*GormCostComponentRepository)(nil)
