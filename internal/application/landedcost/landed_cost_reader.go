package landedcost

import (
	"context"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/google/uuid"
)

// Repositories groups the repositories used outside a transaction
type Repositories struct {
	Components  landedcost.CostComponentRepository
	Operations  landedcost.TradeOperationRepository
	Lines       landedcost.ShipmentLineRepository
	Charges     landedcost.ChargeRepository
	Allocations landedcost.AllocationRepository
}

// LandedCostReader answers landed-cost questions from committed state.
// It takes no lock: allocation rows are only inserted or flagged superseded.
type LandedCostReader struct {
	repos Repositories
}

// NewLandedCostReader creates a LandedCostReader
func NewLandedCostReader(repos Repositories) *LandedCostReader {
	return &LandedCostReader{repos: repos}
}

// GetLandedUnitCost returns (snapshotUnitCost * quantity + active allocations) / quantity
func (r *LandedCostReader) GetLandedUnitCost(ctx context.Context, lineID uuid.UUID) (*LandedUnitCostResponse, error) {
	line, op, err := r.loadLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	allocations, err := r.repos.Allocations.FindActiveByLine(ctx, line.ID)
	if err != nil {
		return nil, err
	}
	return &LandedUnitCostResponse{
		ShipmentLineID: line.ID,
		Currency:       string(op.Currency),
		LandedUnitCost: landedcost.LandedUnitCost(line, allocations),
	}, nil
}

// GetLandedCostBreakdown returns the landed cost of a line split by cost component
func (r *LandedCostReader) GetLandedCostBreakdown(ctx context.Context, lineID uuid.UUID) (*LandedCostBreakdownResponse, error) {
	line, op, err := r.loadLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	allocations, err := r.repos.Allocations.FindActiveByLine(ctx, line.ID)
	if err != nil {
		return nil, err
	}

	charges, err := r.repos.Charges.FindByOperation(ctx, op.ID, true)
	if err != nil {
		return nil, err
	}
	chargeComponent := make(map[uuid.UUID]uuid.UUID, len(charges))
	componentIDs := make([]uuid.UUID, 0, len(charges))
	seen := make(map[uuid.UUID]bool)
	for i := range charges {
		c := &charges[i]
		chargeComponent[c.ID] = c.CostComponentID
		if !seen[c.CostComponentID] {
			seen[c.CostComponentID] = true
			componentIDs = append(componentIDs, c.CostComponentID)
		}
	}

	components, err := r.repos.Components.FindByIDs(ctx, componentIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*landedcost.CostComponent, len(components))
	for i := range components {
		byID[components[i].ID] = &components[i]
	}
	byCharge := make(map[uuid.UUID]*landedcost.CostComponent, len(chargeComponent))
	for chargeID, componentID := range chargeComponent {
		byCharge[chargeID] = byID[componentID]
	}

	return toBreakdownResponse(landedcost.BuildBreakdown(line, op.Currency, allocations, byCharge)), nil
}

// ListAllocations lists the allocations of a trade operation
func (r *LandedCostReader) ListAllocations(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]AllocationResponse, error) {
	if _, err := r.repos.Operations.FindByID(ctx, operationID); err != nil {
		return nil, err
	}
	allocations, err := r.repos.Allocations.FindByOperation(ctx, operationID, includeSuperseded)
	if err != nil {
		return nil, err
	}
	return ToAllocationResponses(allocations), nil
}

// ListShipmentLines lists the shipment lines of a trade operation
func (r *LandedCostReader) ListShipmentLines(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]ShipmentLineResponse, error) {
	if _, err := r.repos.Operations.FindByID(ctx, operationID); err != nil {
		return nil, err
	}
	lines, err := r.repos.Lines.FindByOperation(ctx, operationID, includeSuperseded)
	if err != nil {
		return nil, err
	}
	return ToShipmentLineResponses(lines), nil
}

// ListCharges lists the charges of a trade operation
func (r *LandedCostReader) ListCharges(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]ChargeResponse, error) {
	if _, err := r.repos.Operations.FindByID(ctx, operationID); err != nil {
		return nil, err
	}
	charges, err := r.repos.Charges.FindByOperation(ctx, operationID, includeSuperseded)
	if err != nil {
		return nil, err
	}
	return ToChargeResponses(charges), nil
}

func (r *LandedCostReader) loadLine(ctx context.Context, lineID uuid.UUID) (*landedcost.ShipmentLine, *landedcost.TradeOperation, error) {
	line, err := r.repos.Lines.FindByID(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	op, err := r.repos.Operations.FindByID(ctx, line.TradeOperationID)
	if err != nil {
		return nil, nil, err
	}
	return line, op, nil
}
