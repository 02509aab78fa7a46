package landedcost

import (
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostComponentRequest creates or updates a cost component
type CostComponentRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	ComponentType   string `json:"component_type" binding:"required,oneof=FREIGHT INSURANCE DUTY OTHER"`
	AllocationBasis string `json:"allocation_basis" binding:"required,oneof=VALUE QUANTITY WEIGHT VOLUME"`
}

// OpenTradeOperationRequest opens a new trade operation
type OpenTradeOperationRequest struct {
	OperationNumber string `json:"operation_number" binding:"required,max=50"`
	Currency        string `json:"currency" binding:"required,iso4217"`
	Carrier         string `json:"carrier" binding:"max=100"`
	Vessel          string `json:"vessel" binding:"max=100"`
	BillOfLading    string `json:"bill_of_lading" binding:"max=100"`
	Remark          string `json:"remark" binding:"max=500"`
}

// ShipmentLineMeasuresRequest carries the receipt facts of a line
type ShipmentLineMeasuresRequest struct {
	Quantity         decimal.Decimal `json:"quantity" binding:"required,gt=0"`
	NetWeight        decimal.Decimal `json:"net_weight" binding:"gte=0"`
	Volume           decimal.Decimal `json:"volume" binding:"gte=0"`
	SnapshotUnitCost decimal.Decimal `json:"snapshot_unit_cost" binding:"gte=0"`
}

func (r ShipmentLineMeasuresRequest) toDomain() landedcost.LineMeasures {
	return landedcost.LineMeasures{
		Quantity:         r.Quantity,
		NetWeight:        r.NetWeight,
		Volume:           r.Volume,
		SnapshotUnitCost: r.SnapshotUnitCost,
	}
}

// AddShipmentLineRequest records goods received against a trade operation
type AddShipmentLineRequest struct {
	PurchaseOrderLineID uuid.UUID `json:"purchase_order_line_id" binding:"required"`
	ShipmentLineMeasuresRequest
}

// CorrectShipmentLineRequest replaces the measures of a line with a new snapshot
type CorrectShipmentLineRequest struct {
	ShipmentLineMeasuresRequest
}

// CreateChargeRequest records a charge. When FXRate is set, Amount and
// Currency are the original foreign-currency figures and the charge is
// converted into the operation currency at that rate.
type CreateChargeRequest struct {
	CostComponentID uuid.UUID        `json:"cost_component_id" binding:"required"`
	Amount          decimal.Decimal  `json:"amount" binding:"required,gt=0"`
	Currency        string           `json:"currency" binding:"required,iso4217"`
	FXRate          *decimal.Decimal `json:"fx_rate" binding:"omitempty,gt=0"`
	VendorID        *uuid.UUID       `json:"vendor_id"`
	ReferenceNumber string           `json:"reference_number" binding:"max=100"`
	IsActual        bool             `json:"is_actual"`
}

func (r CreateChargeRequest) toDomain() landedcost.ChargeInput {
	input := landedcost.ChargeInput{
		Amount:          r.Amount,
		Currency:        valueobject.Currency(r.Currency),
		VendorID:        r.VendorID,
		ReferenceNumber: r.ReferenceNumber,
		IsActual:        r.IsActual,
	}
	if r.FXRate != nil {
		input.FX = &landedcost.FXSnapshot{Rate: *r.FXRate}
	}
	return input
}

// CancelTradeOperationRequest cancels an open trade operation
type CancelTradeOperationRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// TradeOperationListFilter represents filter options for the trade operation list
type TradeOperationListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=OPEN CLOSED CANCELLED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CostComponentResponse represents a cost component in API responses
type CostComponentResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	ComponentType   string    `json:"component_type"`
	AllocationBasis string    `json:"allocation_basis"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int       `json:"version"`
}

// ToCostComponentResponse converts a domain cost component
func ToCostComponentResponse(c *landedcost.CostComponent) CostComponentResponse {
	return CostComponentResponse{
		ID:              c.ID,
		Name:            c.Name,
		ComponentType:   string(c.ComponentType),
		AllocationBasis: string(c.AllocationBasis),
		Active:          c.Active,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Version:         c.Version,
	}
}

// TradeOperationResponse represents a trade operation in API responses
type TradeOperationResponse struct {
	ID              uuid.UUID  `json:"id"`
	OperationNumber string     `json:"operation_number"`
	Status          string     `json:"status"`
	Currency        string     `json:"currency"`
	Carrier         string     `json:"carrier,omitempty"`
	Vessel          string     `json:"vessel,omitempty"`
	BillOfLading    string     `json:"bill_of_lading,omitempty"`
	Remark          string     `json:"remark,omitempty"`
	LineCount       int        `json:"line_count"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int        `json:"version"`
}

// ToTradeOperationResponse converts a domain trade operation
func ToTradeOperationResponse(op *landedcost.TradeOperation) TradeOperationResponse {
	return TradeOperationResponse{
		ID:              op.ID,
		OperationNumber: op.OperationNumber,
		Status:          op.Status.String(),
		Currency:        string(op.Currency),
		Carrier:         op.Carrier,
		Vessel:          op.Vessel,
		BillOfLading:    op.BillOfLading,
		Remark:          op.Remark,
		LineCount:       op.LineCount,
		ClosedAt:        op.ClosedAt,
		CancelledAt:     op.CancelledAt,
		CancelReason:    op.CancelReason,
		CreatedAt:       op.CreatedAt,
		UpdatedAt:       op.UpdatedAt,
		Version:         op.Version,
	}
}

// ShipmentLineResponse represents a shipment line in API responses
type ShipmentLineResponse struct {
	ID                  uuid.UUID       `json:"id"`
	TradeOperationID    uuid.UUID       `json:"trade_operation_id"`
	PurchaseOrderLineID uuid.UUID       `json:"purchase_order_line_id"`
	LineNo              int             `json:"line_no"`
	Quantity            decimal.Decimal `json:"quantity"`
	NetWeight           decimal.Decimal `json:"net_weight"`
	Volume              decimal.Decimal `json:"volume"`
	SnapshotUnitCost    decimal.Decimal `json:"snapshot_unit_cost"`
	SupersededAt        *time.Time      `json:"superseded_at,omitempty"`
	SupersededBy        *uuid.UUID      `json:"superseded_by,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ToShipmentLineResponse converts a domain shipment line
func ToShipmentLineResponse(l *landedcost.ShipmentLine) ShipmentLineResponse {
	return ShipmentLineResponse{
		ID:                  l.ID,
		TradeOperationID:    l.TradeOperationID,
		PurchaseOrderLineID: l.PurchaseOrderLineID,
		LineNo:              l.LineNo,
		Quantity:            l.Quantity,
		NetWeight:           l.NetWeight,
		Volume:              l.Volume,
		SnapshotUnitCost:    l.SnapshotUnitCost,
		SupersededAt:        l.SupersededAt,
		SupersededBy:        l.SupersededBy,
		CreatedAt:           l.CreatedAt,
	}
}

// ToShipmentLineResponses converts a slice of shipment lines
func ToShipmentLineResponses(lines []landedcost.ShipmentLine) []ShipmentLineResponse {
	out := make([]ShipmentLineResponse, len(lines))
	for i := range lines {
		out[i] = ToShipmentLineResponse(&lines[i])
	}
	return out
}

// ChargeResponse represents a charge in API responses
type ChargeResponse struct {
	ID               uuid.UUID        `json:"id"`
	TradeOperationID uuid.UUID        `json:"trade_operation_id"`
	CostComponentID  uuid.UUID        `json:"cost_component_id"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	Kind             string           `json:"kind"`
	IsActual         bool             `json:"is_actual"`
	VendorID         *uuid.UUID       `json:"vendor_id,omitempty"`
	ReferenceNumber  string           `json:"reference_number,omitempty"`
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency string           `json:"original_currency,omitempty"`
	FXRate           *decimal.Decimal `json:"fx_rate,omitempty"`
	SupersededBy     *uuid.UUID       `json:"superseded_by,omitempty"`
	SupersededAt     *time.Time       `json:"superseded_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// ToChargeResponse converts a domain charge
func ToChargeResponse(c *landedcost.Charge) ChargeResponse {
	resp := ChargeResponse{
		ID:               c.ID,
		TradeOperationID: c.TradeOperationID,
		CostComponentID:  c.CostComponentID,
		Amount:           c.Amount,
		Currency:         string(c.Currency),
		Kind:             c.Kind(),
		IsActual:         c.IsActual,
		VendorID:         c.VendorID,
		ReferenceNumber:  c.ReferenceNumber,
		SupersededBy:     c.SupersededBy,
		SupersededAt:     c.SupersededAt,
		CreatedAt:        c.CreatedAt,
	}
	if c.FX != nil {
		original, rate := c.FX.OriginalAmount, c.FX.Rate
		resp.OriginalAmount = &original
		resp.OriginalCurrency = string(c.FX.OriginalCurrency)
		resp.FXRate = &rate
	}
	return resp
}

// ToChargeResponses converts a slice of charges
func ToChargeResponses(charges []landedcost.Charge) []ChargeResponse {
	out := make([]ChargeResponse, len(charges))
	for i := range charges {
		out[i] = ToChargeResponse(&charges[i])
	}
	return out
}

// AllocationResponse represents one line's share of a charge
type AllocationResponse struct {
	ID               uuid.UUID       `json:"id"`
	ChargeID         uuid.UUID       `json:"charge_id"`
	TradeOperationID uuid.UUID       `json:"trade_operation_id"`
	ShipmentLineID   uuid.UUID       `json:"shipment_line_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	BasisValue       decimal.Decimal `json:"basis_value"`
	SupersededAt     *time.Time      `json:"superseded_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToAllocationResponses converts a slice of allocations
func ToAllocationResponses(allocs []landedcost.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocs))
	for i := range allocs {
		a := &allocs[i]
		out[i] = AllocationResponse{
			ID:               a.ID,
			ChargeID:         a.ChargeID,
			TradeOperationID: a.TradeOperationID,
			ShipmentLineID:   a.ShipmentLineID,
			Amount:           a.Amount,
			Currency:         string(a.Currency),
			BasisValue:       a.BasisValue,
			SupersededAt:     a.SupersededAt,
			CreatedAt:        a.CreatedAt,
		}
	}
	return out
}

// ChargeResultResponse is the outcome of CreateCharge
type ChargeResultResponse struct {
	Charge      ChargeResponse       `json:"charge"`
	Allocations []AllocationResponse `json:"allocations"`
	Superseded  []uuid.UUID          `json:"superseded_charge_ids"`
}

// ReallocationResponse is the outcome of ReallocateTradeOperation
type ReallocationResponse struct {
	TradeOperationID uuid.UUID   `json:"trade_operation_id"`
	ReallocatedIDs   []uuid.UUID `json:"reallocated_charge_ids"`
	UpToDateCount    int         `json:"up_to_date_count"`
}

// LandedUnitCostResponse is the landed unit cost of one line
type LandedUnitCostResponse struct {
	ShipmentLineID uuid.UUID       `json:"shipment_line_id"`
	Currency       string          `json:"currency"`
	LandedUnitCost decimal.Decimal `json:"landed_unit_cost"`
}

// ComponentShareResponse is the allocated total of one cost component on a line
type ComponentShareResponse struct {
	CostComponentID uuid.UUID       `json:"cost_component_id"`
	Name            string          `json:"name"`
	ComponentType   string          `json:"component_type"`
	Amount          decimal.Decimal `json:"amount"`
}

// LandedCostBreakdownResponse explains how a line's landed unit cost is made up
type LandedCostBreakdownResponse struct {
	ShipmentLineID   uuid.UUID                `json:"shipment_line_id"`
	Currency         string                   `json:"currency"`
	Quantity         decimal.Decimal          `json:"quantity"`
	SnapshotUnitCost decimal.Decimal          `json:"snapshot_unit_cost"`
	BaseCost         decimal.Decimal          `json:"base_cost"`
	AllocatedCost    decimal.Decimal          `json:"allocated_cost"`
	TotalLandedCost  decimal.Decimal          `json:"total_landed_cost"`
	LandedUnitCost   decimal.Decimal          `json:"landed_unit_cost"`
	Components       []ComponentShareResponse `json:"components"`
}

func toBreakdownResponse(b *landedcost.LandedCostBreakdown) *LandedCostBreakdownResponse {
	components := make([]ComponentShareResponse, len(b.Components))
	for i, c := range b.Components {
		components[i] = ComponentShareResponse{
			CostComponentID: c.CostComponentID,
			Name:            c.Name,
			ComponentType:   string(c.ComponentType),
			Amount:          c.Amount,
		}
	}
	return &LandedCostBreakdownResponse{
		ShipmentLineID:   b.ShipmentLineID,
		Currency:         string(b.Currency),
		Quantity:         b.Quantity,
		SnapshotUnitCost: b.SnapshotUnitCost,
		BaseCost:         b.BaseCost,
		AllocatedCost:    b.AllocatedCost,
		TotalLandedCost:  b.TotalLandedCost,
		LandedUnitCost:   b.LandedUnitCost,
		Components:       components,
	}
}
