package landedcost

import (
	"context"
	"time"

	"github.com/erp/landedcost/internal/domain/landedcost"
	"github.com/erp/landedcost/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockCostComponentRepository struct {
	mock.Mock
}

func (m *MockCostComponentRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.CostComponent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.CostComponent), args.Error(1)
}

func (m *MockCostComponentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*landedcost.CostComponent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.CostComponent), args.Error(1)
}

func (m *MockCostComponentRepository) FindByIDForShare(ctx context.Context, id uuid.UUID) (*landedcost.CostComponent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.CostComponent), args.Error(1)
}

func (m *MockCostComponentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]landedcost.CostComponent, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]landedcost.CostComponent), args.Error(1)
}

func (m *MockCostComponentRepository) FindAll(ctx context.Context, activeOnly bool) ([]landedcost.CostComponent, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]landedcost.CostComponent), args.Error(1)
}

func (m *MockCostComponentRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCostComponentRepository) Save(ctx context.Context, component *landedcost.CostComponent) error {
	args := m.Called(ctx, component)
	return args.Error(0)
}

type MockTradeOperationRepository struct {
	mock.Mock
}

func (m *MockTradeOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.TradeOperation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.TradeOperation), args.Error(1)
}

func (m *MockTradeOperationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*landedcost.TradeOperation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.TradeOperation), args.Error(1)
}

func (m *MockTradeOperationRepository) FindByNumber(ctx context.Context, number string) (*landedcost.TradeOperation, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.TradeOperation), args.Error(1)
}

func (m *MockTradeOperationRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockTradeOperationRepository) FindAll(ctx context.Context, filter landedcost.OperationFilter) ([]landedcost.TradeOperation, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]landedcost.TradeOperation), args.Get(1).(int64), args.Error(2)
}

func (m *MockTradeOperationRepository) Save(ctx context.Context, op *landedcost.TradeOperation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockTradeOperationRepository) SaveWithLock(ctx context.Context, op *landedcost.TradeOperation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

type MockShipmentLineRepository struct {
	mock.Mock
}

func (m *MockShipmentLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.ShipmentLine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.ShipmentLine), args.Error(1)
}

func (m *MockShipmentLineRepository) FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]landedcost.ShipmentLine, error) {
	args := m.Called(ctx, operationID, includeSuperseded)
	return args.Get(0).([]landedcost.ShipmentLine), args.Error(1)
}

func (m *MockShipmentLineRepository) Create(ctx context.Context, line *landedcost.ShipmentLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func (m *MockShipmentLineRepository) MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, supersededBy, at)
	return args.Error(0)
}

type MockChargeRepository struct {
	mock.Mock
}

func (m *MockChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*landedcost.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*landedcost.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]landedcost.Charge, error) {
	args := m.Called(ctx, operationID, includeSuperseded)
	return args.Get(0).([]landedcost.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindCurrentByComponent(ctx context.Context, operationID, componentID uuid.UUID) ([]landedcost.Charge, error) {
	args := m.Called(ctx, operationID, componentID)
	return args.Get(0).([]landedcost.Charge), args.Error(1)
}

func (m *MockChargeRepository) ExistsForComponent(ctx context.Context, componentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, componentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChargeRepository) Create(ctx context.Context, charge *landedcost.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) MarkSuperseded(ctx context.Context, id, supersededBy uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, supersededBy, at)
	return args.Error(0)
}

type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) CreateBatch(ctx context.Context, allocations []landedcost.Allocation) error {
	args := m.Called(ctx, allocations)
	return args.Error(0)
}

func (m *MockAllocationRepository) FindActiveByCharge(ctx context.Context, chargeID uuid.UUID) ([]landedcost.Allocation, error) {
	args := m.Called(ctx, chargeID)
	return args.Get(0).([]landedcost.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindActiveByLine(ctx context.Context, lineID uuid.UUID) ([]landedcost.Allocation, error) {
	args := m.Called(ctx, lineID)
	return args.Get(0).([]landedcost.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) FindByOperation(ctx context.Context, operationID uuid.UUID, includeSuperseded bool) ([]landedcost.Allocation, error) {
	args := m.Called(ctx, operationID, includeSuperseded)
	return args.Get(0).([]landedcost.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) SupersedeByCharge(ctx context.Context, chargeID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, chargeID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAllocationRepository) SupersedeByOperation(ctx context.Context, operationID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, operationID, at)
	return args.Get(0).(int64), args.Error(1)
}

type MockOperationLocker struct {
	mock.Mock
	released int
}

func (m *MockOperationLocker) Acquire(ctx context.Context, operationID uuid.UUID) (func(), error) {
	args := m.Called(ctx, operationID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.released++ }, nil
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// trackingTxScope reports whether repository calls happen inside Execute
type trackingTxScope struct {
	*NoOpTransactionScope
	active   bool
	executed int
}

func (s *trackingTxScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.executed++
	s.active = true
	defer func() { s.active = false }()
	return s.NoOpTransactionScope.Execute(ctx, fn)
}

type testMocks struct {
	components  *MockCostComponentRepository
	operations  *MockTradeOperationRepository
	lines       *MockShipmentLineRepository
	charges     *MockChargeRepository
	allocations *MockAllocationRepository
	locker      *MockOperationLocker
	publisher   *MockEventPublisher
}

func newTestService() (*Service, *testMocks) {
	m := &testMocks{
		components:  new(MockCostComponentRepository),
		operations:  new(MockTradeOperationRepository),
		lines:       new(MockShipmentLineRepository),
		charges:     new(MockChargeRepository),
		allocations: new(MockAllocationRepository),
		locker:      new(MockOperationLocker),
		publisher:   new(MockEventPublisher),
	}
	repos := Repositories{
		Components:  m.components,
		Operations:  m.operations,
		Lines:       m.lines,
		Charges:     m.charges,
		Allocations: m.allocations,
	}
	scope := NewNoOpTransactionScope(m.operations, m.lines, m.charges, m.allocations, m.components)
	svc := NewService(repos, scope, m.locker, nil, nil)
	svc.SetEventPublisher(m.publisher)
	return svc, m
}
