package models

import (
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/erp/landedcost/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostComponentModel is the persistence model for the CostComponent aggregate.
type CostComponentModel struct {
	AggregateModel
	Name            string `gorm:"type:varchar(100);not null;uniqueIndex:idx_lcm_cost_component_name"`
	ComponentType   string `gorm:"type:varchar(20);not null"`
	AllocationBasis string `gorm:"type:varchar(20);not null"`
	Active          bool   `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (CostComponentModel) TableName() string {
	return "lcm_cost_components"
}

// ToDomain converts the persistence model to a domain CostComponent.
func (m *CostComponentModel) ToDomain() *landedcost.CostComponent {
	return &landedcost.CostComponent{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		ComponentType:     landedcost.ComponentType(m.ComponentType),
		AllocationBasis:   landedcost.AllocationBasis(m.AllocationBasis),
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain CostComponent.
func (m *CostComponentModel) FromDomain(c *landedcost.CostComponent) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.ComponentType = string(c.ComponentType)
	m.AllocationBasis = string(c.AllocationBasis)
	m.Active = c.Active
}

// CostComponentModelFromDomain creates a new persistence model from a domain CostComponent.
func CostComponentModelFromDomain(c *landedcost.CostComponent) *CostComponentModel {
	m := &CostComponentModel{}
	m.FromDomain(c)
	return m
}

// TradeOperationModel is the persistence model for the TradeOperation aggregate.
type TradeOperationModel struct {
	AggregateModel
	OperationNumber string `gorm:"type:varchar(50);not null;uniqueIndex:idx_lcm_trade_operation_number"`
	Status          string `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Currency        string `gorm:"type:varchar(3);not null"`
	Carrier         string `gorm:"type:varchar(100)"`
	Vessel          string `gorm:"type:varchar(100)"`
	BillOfLading    string `gorm:"type:varchar(100)"`
	Remark          string `gorm:"type:varchar(500)"`
	LineCount       int    `gorm:"not null;default:0"`
	ClosedAt        *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (TradeOperationModel) TableName() string {
	return "lcm_trade_operations"
}

// ToDomain converts the persistence model to a domain TradeOperation.
func (m *TradeOperationModel) ToDomain() *landedcost.TradeOperation {
	return &landedcost.TradeOperation{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OperationNumber:   m.OperationNumber,
		Status:            landedcost.OperationStatus(m.Status),
		Currency:          valueobject.Currency(m.Currency),
		OperationMetadata: landedcost.OperationMetadata{
			Carrier:      m.Carrier,
			Vessel:       m.Vessel,
			BillOfLading: m.BillOfLading,
			Remark:       m.Remark,
		},
		LineCount:    m.LineCount,
		ClosedAt:     m.ClosedAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain TradeOperation.
func (m *TradeOperationModel) FromDomain(o *landedcost.TradeOperation) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OperationNumber = o.OperationNumber
	m.Status = string(o.Status)
	m.Currency = string(o.Currency)
	m.Carrier = o.Carrier
	m.Vessel = o.Vessel
	m.BillOfLading = o.BillOfLading
	m.Remark = o.Remark
	m.LineCount = o.LineCount
	m.ClosedAt = o.ClosedAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
}

// TradeOperationModelFromDomain creates a new persistence model from a domain TradeOperation.
func TradeOperationModelFromDomain(o *landedcost.TradeOperation) *TradeOperationModel {
	m := &TradeOperationModel{}
	m.FromDomain(o)
	return m
}

// ShipmentLineModel is the persistence model for the ShipmentLine entity.
type ShipmentLineModel struct {
	BaseModel
	TradeOperationID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lcm_shipment_line_no,priority:1"`
	PurchaseOrderLineID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo              int             `gorm:"not null;uniqueIndex:idx_lcm_shipment_line_no,priority:2"`
	Quantity            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetWeight           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Volume              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SnapshotUnitCost    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	SupersededAt        *time.Time
	SupersededBy        *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ShipmentLineModel) TableName() string {
	return "lcm_shipment_lines"
}

// ToDomain converts the persistence model to a domain ShipmentLine.
func (m *ShipmentLineModel) ToDomain() *landedcost.ShipmentLine {
	return &landedcost.ShipmentLine{
		BaseEntity:          m.BaseModel.ToDomain(),
		TradeOperationID:    m.TradeOperationID,
		PurchaseOrderLineID: m.PurchaseOrderLineID,
		LineNo:              m.LineNo,
		LineMeasures: landedcost.LineMeasures{
			Quantity:         m.Quantity,
			NetWeight:        m.NetWeight,
			Volume:           m.Volume,
			SnapshotUnitCost: m.SnapshotUnitCost,
		},
		SupersededAt: m.SupersededAt,
		SupersededBy: m.SupersededBy,
	}
}

// FromDomain populates the persistence model from a domain ShipmentLine.
func (m *ShipmentLineModel) FromDomain(l *landedcost.ShipmentLine) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.TradeOperationID = l.TradeOperationID
	m.PurchaseOrderLineID = l.PurchaseOrderLineID
	m.LineNo = l.LineNo
	m.Quantity = l.Quantity
	m.NetWeight = l.NetWeight
	m.Volume = l.Volume
	m.SnapshotUnitCost = l.SnapshotUnitCost
	m.SupersededAt = l.SupersededAt
	m.SupersededBy = l.SupersededBy
}

// ShipmentLineModelFromDomain creates a new persistence model from a domain ShipmentLine.
func ShipmentLineModelFromDomain(l *landedcost.ShipmentLine) *ShipmentLineModel {
	m := &ShipmentLineModel{}
	m.FromDomain(l)
	return m
}

// ChargeModel is the persistence model for the Charge entity.
// The FX columns are null unless the charge was converted from another currency.
type ChargeModel struct {
	BaseModel
	TradeOperationID uuid.UUID       `gorm:"type:uuid;not null;index:idx_lcm_charge_operation_component,priority:1"`
	CostComponentID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_lcm_charge_operation_component,priority:2"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	VendorID         *uuid.UUID      `gorm:"type:uuid"`
	ReferenceNumber  string          `gorm:"type:varchar(100)"`
	IsActual         bool            `gorm:"not null;default:false"`
	SupersededBy     *uuid.UUID      `gorm:"type:uuid"`
	SupersededAt     *time.Time
	OriginalAmount   decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	OriginalCurrency *string             `gorm:"type:varchar(3)"`
	FXRate           decimal.NullDecimal `gorm:"column:fx_rate;type:decimal(18,8)"`
}

// TableName returns the table name for GORM
func (ChargeModel) TableName() string {
	return "lcm_charges"
}

// ToDomain converts the persistence model to a domain Charge.
func (m *ChargeModel) ToDomain() *landedcost.Charge {
	c := &landedcost.Charge{
		BaseEntity:       m.BaseModel.ToDomain(),
		TradeOperationID: m.TradeOperationID,
		CostComponentID:  m.CostComponentID,
		Amount:           m.Amount,
		Currency:         valueobject.Currency(m.Currency),
		VendorID:         m.VendorID,
		ReferenceNumber:  m.ReferenceNumber,
		IsActual:         m.IsActual,
		SupersededBy:     m.SupersededBy,
		SupersededAt:     m.SupersededAt,
	}
	if m.OriginalCurrency != nil && m.FXRate.Valid {
		c.FX = &landedcost.FXSnapshot{
			OriginalAmount:   m.OriginalAmount.Decimal,
			OriginalCurrency: valueobject.Currency(*m.OriginalCurrency),
			Rate:             m.FXRate.Decimal,
		}
	}
	return c
}

// FromDomain populates the persistence model from a domain Charge.
func (m *ChargeModel) FromDomain(c *landedcost.Charge) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.TradeOperationID = c.TradeOperationID
	m.CostComponentID = c.CostComponentID
	m.Amount = c.Amount
	m.Currency = string(c.Currency)
	m.VendorID = c.VendorID
	m.ReferenceNumber = c.ReferenceNumber
	m.IsActual = c.IsActual
	m.SupersededBy = c.SupersededBy
	m.SupersededAt = c.SupersededAt
	if c.FX != nil {
		cur := string(c.FX.OriginalCurrency)
		m.OriginalAmount = decimal.NewNullDecimal(c.FX.OriginalAmount)
		m.OriginalCurrency = &cur
		m.FXRate = decimal.NewNullDecimal(c.FX.Rate)
	}
}

// ChargeModelFromDomain creates a new persistence model from a domain Charge.
func ChargeModelFromDomain(c *landedcost.Charge) *ChargeModel {
	m := &ChargeModel{}
	m.FromDomain(c)
	return m
}

// AllocationModel is the persistence model for the Allocation entity.
type AllocationModel struct {
	BaseModel
	ChargeID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	TradeOperationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ShipmentLineID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	BasisValue       decimal.Decimal `gorm:"type:numeric;not null"`
	SupersededAt     *time.Time
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "lcm_allocations"
}

// ToDomain converts the persistence model to a domain Allocation.
func (m *AllocationModel) ToDomain() *landedcost.Allocation {
	return &landedcost.Allocation{
		BaseEntity:       shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt},
		ChargeID:         m.ChargeID,
		TradeOperationID: m.TradeOperationID,
		ShipmentLineID:   m.ShipmentLineID,
		Amount:           m.Amount,
		Currency:         valueobject.Currency(m.Currency),
		BasisValue:       m.BasisValue,
		SupersededAt:     m.SupersededAt,
	}
}

// FromDomain populates the persistence model from a domain Allocation.
func (m *AllocationModel) FromDomain(a *landedcost.Allocation) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.ChargeID = a.ChargeID
	m.TradeOperationID = a.TradeOperationID
	m.ShipmentLineID = a.ShipmentLineID
	m.Amount = a.Amount
	m.Currency = string(a.Currency)
	m.BasisValue = a.BasisValue
	m.SupersededAt = a.SupersededAt
}

// AllocationModelFromDomain creates a new persistence model from a domain Allocation.
func AllocationModelFromDomain(a *landedcost.Allocation) *AllocationModel {
	m := &AllocationModel{}
	m.FromDomain(a)
	return m
}

// AllModels lists the landed cost models in dependency order for AutoMigrate
func AllModels() []any {
	return []any{
		&CostComponentModel{},
		&TradeOperationModel{},
		&ShipmentLineModel{},
		&ChargeModel{},
		&AllocationModel{},
	}
}
