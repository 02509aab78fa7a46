package landedcost

import (
	"context"
	"strings"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCostComponent registers a new cost component
func (s *Service) CreateCostComponent(ctx context.Context, req CostComponentRequest) (*CostComponentResponse, error) {
	component, err := landedcost.NewCostComponent(req.Name,
		landedcost.ComponentType(req.ComponentType),
		landedcost.AllocationBasis(req.AllocationBasis))
	if err != nil {
		return nil, err
	}
	if err := ensureNameAvailable(ctx, s.repos.Components, component.Name); err != nil {
		return nil, err
	}
	if err := s.repos.Components.Save(ctx, component); err != nil {
		return nil, err
	}

	s.logger.Info("Cost component created",
		zap.String("component_id", component.ID.String()),
		zap.String("name", component.Name),
		zap.String("basis", string(component.AllocationBasis)),
	)
	resp := ToCostComponentResponse(component)
	return &resp, nil
}

// UpdateCostComponent changes a component. The allocation basis is frozen
// once a charge references the component. The reference check and the save
// run in one transaction holding the component row lock.
func (s *Service) UpdateCostComponent(ctx context.Context, id uuid.UUID, req CostComponentRequest) (*CostComponentResponse, error) {
	var component *landedcost.CostComponent
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		component, err = repos.ComponentRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if name := strings.TrimSpace(req.Name); name != component.Name {
			if err := ensureNameAvailable(ctx, repos.ComponentRepo(), name); err != nil {
				return err
			}
		}
		referenced, err := repos.ChargeRepo().ExistsForComponent(ctx, id)
		if err != nil {
			return err
		}
		if err := component.Update(req.Name,
			landedcost.ComponentType(req.ComponentType),
			landedcost.AllocationBasis(req.AllocationBasis),
			referenced); err != nil {
			return err
		}
		return repos.ComponentRepo().Save(ctx, component)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cost component updated", zap.String("component_id", id.String()))
	resp := ToCostComponentResponse(component)
	return &resp, nil
}

// DeactivateCostComponent hides a component from new charges
func (s *Service) DeactivateCostComponent(ctx context.Context, id uuid.UUID) (*CostComponentResponse, error) {
	return s.toggleCostComponent(ctx, id, (*landedcost.CostComponent).Deactivate)
}

// ActivateCostComponent makes a component available to new charges again
func (s *Service) ActivateCostComponent(ctx context.Context, id uuid.UUID) (*CostComponentResponse, error) {
	return s.toggleCostComponent(ctx, id, (*landedcost.CostComponent).Activate)
}

// GetCostComponent retrieves a cost component by ID
func (s *Service) GetCostComponent(ctx context.Context, id uuid.UUID) (*CostComponentResponse, error) {
	component, err := s.repos.Components.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCostComponentResponse(component)
	return &resp, nil
}

// ListCostComponents lists cost components ordered by name
func (s *Service) ListCostComponents(ctx context.Context, activeOnly bool) ([]CostComponentResponse, error) {
	components, err := s.repos.Components.FindAll(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]CostComponentResponse, len(components))
	for i := range components {
		out[i] = ToCostComponentResponse(&components[i])
	}
	return out, nil
}

func (s *Service) toggleCostComponent(ctx context.Context, id uuid.UUID, apply func(*landedcost.CostComponent)) (*CostComponentResponse, error) {
	component, err := s.repos.Components.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	version := component.Version
	apply(component)
	if component.Version != version {
		if err := s.repos.Components.Save(ctx, component); err != nil {
			return nil, err
		}
		s.logger.Info("Cost component toggled",
			zap.String("component_id", id.String()),
			zap.Bool("active", component.Active),
		)
	}
	resp := ToCostComponentResponse(component)
	return &resp, nil
}

func ensureNameAvailable(ctx context.Context, components landedcost.CostComponentRepository, name string) error {
	exists, err := components.ExistsByName(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "cost component "+name+" already exists")
	}
	return nil
}
