package landedcost

import (
	"strings"

	"github.com/erp/landedcost/internal/domain/shared"
)

// ComponentType classifies a cost component
type ComponentType string

const (
	ComponentTypeFreight   ComponentType = "FREIGHT"
	ComponentTypeInsurance ComponentType = "INSURANCE"
	ComponentTypeDuty      ComponentType = "DUTY"
	ComponentTypeOther     ComponentType = "OTHER"
)

// IsValid checks if the type is a known ComponentType
func (t ComponentType) IsValid() bool {
	switch t {
	case ComponentTypeFreight, ComponentTypeInsurance, ComponentTypeDuty, ComponentTypeOther:
		return true
	}
	return false
}

// AllocationBasis is the line attribute a charge is distributed by
type AllocationBasis string

const (
	BasisValue    AllocationBasis = "VALUE"
	BasisQuantity AllocationBasis = "QUANTITY"
	BasisWeight   AllocationBasis = "WEIGHT"
	BasisVolume   AllocationBasis = "VOLUME"
)

// IsValid checks if the basis is a known AllocationBasis
func (b AllocationBasis) IsValid() bool {
	switch b {
	case BasisValue, BasisQuantity, BasisWeight, BasisVolume:
		return true
	}
	return false
}

// CostComponent is master data describing a kind of charge and how it is allocated.
// Components are never deleted, only deactivated.
type CostComponent struct {
	shared.BaseAggregateRoot
	Name            string
	ComponentType   ComponentType
	AllocationBasis AllocationBasis
	Active          bool
}

// NewCostComponent creates an active cost component
func NewCostComponent(name string, componentType ComponentType, basis AllocationBasis) (*CostComponent, error) {
	c := &CostComponent{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Active:            true,
	}
	if err := c.apply(name, componentType, basis); err != nil {
		return nil, err
	}
	return c, nil
}

// Update changes the descriptive fields of the component. Once a charge
// references the component its allocation basis can no longer change,
// otherwise historical allocations would no longer be reproducible.
func (c *CostComponent) Update(name string, componentType ComponentType, basis AllocationBasis, referenced bool) error {
	if referenced && basis != c.AllocationBasis {
		return NewValidationError("allocation_basis", "cannot change the allocation basis of a component already used by a charge")
	}
	if err := c.apply(name, componentType, basis); err != nil {
		return err
	}
	c.IncrementVersion()
	return nil
}

// Deactivate hides the component from new charges
func (c *CostComponent) Deactivate() {
	if !c.Active {
		return
	}
	c.Active = false
	c.IncrementVersion()
}

// Activate makes the component available to new charges again
func (c *CostComponent) Activate() {
	if c.Active {
		return
	}
	c.Active = true
	c.IncrementVersion()
}

func (c *CostComponent) apply(name string, componentType ComponentType, basis AllocationBasis) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", "name is required")
	}
	if len(name) > 100 {
		return NewValidationError("name", "name cannot exceed 100 characters")
	}
	if !componentType.IsValid() {
		return NewValidationError("component_type", "unknown component type "+string(componentType))
	}
	if !basis.IsValid() {
		return NewValidationError("allocation_basis", "unknown allocation basis "+string(basis))
	}
	c.Name = name
	c.ComponentType = componentType
	c.AllocationBasis = basis
	return nil
}
