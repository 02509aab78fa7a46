package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	lcapp "github.com/erp/landedcost/internal/application/landedcost"
	"github.com/erp/landedcost/internal/infrastructure/config"
	"github.com/erp/landedcost/internal/infrastructure/lock"
	"github.com/erp/landedcost/internal/infrastructure/persistence"
	"github.com/erp/landedcost/internal/interfaces/http/dto"
	"github.com/erp/landedcost/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, zap.NewNop(), gormlogger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate())

	repos := lcapp.Repositories{
		Components:  persistence.NewGormCostComponentRepository(db.DB, 0),
		Operations:  persistence.NewGormTradeOperationRepository(db.DB, 0),
		Lines:       persistence.NewGormShipmentLineRepository(db.DB),
		Charges:     persistence.NewGormChargeRepository(db.DB),
		Allocations: persistence.NewGormAllocationRepository(db.DB),
	}
	svc := lcapp.NewService(repos, persistence.NewGormTransactionScope(db.DB, 0),
		lock.NewMemoryLocker(time.Second), nil, zap.NewNop())
	h := NewLandedCostHandler(svc)

	engine := gin.New()
	g := engine.Group("/api/v1/landed-cost")
	g.POST("/cost-components", h.CreateCostComponent)
	g.GET("/cost-components", h.ListCostComponents)
	g.GET("/cost-components/:id", h.GetCostComponent)
	g.PUT("/cost-components/:id", h.UpdateCostComponent)
	g.POST("/cost-components/:id/activate", h.ActivateCostComponent)
	g.POST("/cost-components/:id/deactivate", h.DeactivateCostComponent)
	g.POST("/operations", h.OpenTradeOperation)
	g.GET("/operations", h.ListTradeOperations)
	g.GET("/operations/by-number/:number", h.GetTradeOperationByNumber)
	g.GET("/operations/:id", h.GetTradeOperation)
	g.POST("/operations/:id/lines", h.AddShipmentLine)
	g.GET("/operations/:id/lines", h.ListShipmentLines)
	g.POST("/operations/:id/charges", h.CreateCharge)
	g.GET("/operations/:id/charges", h.ListCharges)
	g.GET("/operations/:id/allocations", h.ListAllocations)
	g.POST("/operations/:id/reallocate", h.Reallocate)
	g.POST("/operations/:id/close", h.CloseTradeOperation)
	g.POST("/operations/:id/cancel", h.CancelTradeOperation)
	g.PUT("/lines/:id", h.CorrectShipmentLine)
	g.GET("/lines/:id/unit-cost", h.GetLandedUnitCost)
	g.GET("/lines/:id/breakdown", h.GetLandedCostBreakdown)
	return &testAPI{t: t, engine: engine}
}

func (a *testAPI) do(method, path string, body any) (int, apiEnvelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1/landed-cost"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env apiEnvelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *testAPI) id(method, path string, body any) string {
	a.t.Helper()
	code, env := a.do(method, path, body)
	require.Equal(a.t, http.StatusCreated, code, string(env.Data))
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out.ID
}

func (a *testAPI) setup() (opID, freightID, lineA, lineB string) {
	freightID = a.id(http.MethodPost, "/cost-components", gin.H{
		"name": "Ocean Freight", "component_type": "FREIGHT", "allocation_basis": "WEIGHT",
	})
	opID = a.id(http.MethodPost, "/operations", gin.H{"operation_number": "TO-2026-001", "currency": "USD"})
	lineA = a.id(http.MethodPost, "/operations/"+opID+"/lines", gin.H{
		"purchase_order_line_id": uuid.NewString(),
		"quantity":               "10", "net_weight": "50", "volume": "1", "snapshot_unit_cost": "5",
	})
	lineB = a.id(http.MethodPost, "/operations/"+opID+"/lines", gin.H{
		"purchase_order_line_id": uuid.NewString(),
		"quantity":               "10", "net_weight": "150", "volume": "1", "snapshot_unit_cost": "5",
	})
	return opID, freightID, lineA, lineB
}

func TestLandedCostHandler_ChargeFlow(t *testing.T) {
	api := newTestAPI(t)
	opID, freightID, lineA, _ := api.setup()

	code, env := api.do(http.MethodPost, "/operations/"+opID+"/charges", gin.H{
		"cost_component_id": freightID, "amount": "100", "currency": "USD", "is_actual": true,
	})
	require.Equal(t, http.StatusCreated, code)
	var result lcapp.ChargeResultResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Allocations, 2)
	assert.Equal(t, "ACTUAL", result.Charge.Kind)

	code, env = api.do(http.MethodGet, "/lines/"+lineA+"/unit-cost", nil)
	require.Equal(t, http.StatusOK, code)
	var unit lcapp.LandedUnitCostResponse
	require.NoError(t, json.Unmarshal(env.Data, &unit))
	assert.Equal(t, "7.500000", unit.LandedUnitCost.StringFixed(6))

	code, env = api.do(http.MethodGet, "/lines/"+lineA+"/breakdown", nil)
	require.Equal(t, http.StatusOK, code)
	var breakdown lcapp.LandedCostBreakdownResponse
	require.NoError(t, json.Unmarshal(env.Data, &breakdown))
	require.Len(t, breakdown.Components, 1)
	assert.Equal(t, "25.00", breakdown.Components[0].Amount.StringFixed(2))

	code, env = api.do(http.MethodGet, "/operations/"+opID+"/allocations", nil)
	require.Equal(t, http.StatusOK, code)
	var allocs []lcapp.AllocationResponse
	require.NoError(t, json.Unmarshal(env.Data, &allocs))
	assert.Len(t, allocs, 2)

	code, _ = api.do(http.MethodPost, "/operations/"+opID+"/close", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/operations/by-number/TO-2026-001", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"CLOSED"`)
}

func TestLandedCostHandler_CorrectionAndReallocate(t *testing.T) {
	api := newTestAPI(t)
	opID, freightID, lineA, _ := api.setup()

	code, _ := api.do(http.MethodPost, "/operations/"+opID+"/charges", gin.H{
		"cost_component_id": freightID, "amount": "100", "currency": "USD", "is_actual": true,
	})
	require.Equal(t, http.StatusCreated, code)

	code, env := api.do(http.MethodPut, "/lines/"+lineA, gin.H{
		"quantity": "10", "net_weight": "150", "volume": "1", "snapshot_unit_cost": "5",
	})
	require.Equal(t, http.StatusOK, code, string(env.Data))

	code, env = api.do(http.MethodPost, "/operations/"+opID+"/reallocate", nil)
	require.Equal(t, http.StatusOK, code)
	var realloc lcapp.ReallocationResponse
	require.NoError(t, json.Unmarshal(env.Data, &realloc))
	assert.Len(t, realloc.ReallocatedIDs, 1)

	code, env = api.do(http.MethodGet, "/operations/"+opID+"/lines?include_superseded=true", nil)
	require.Equal(t, http.StatusOK, code)
	var lines []lcapp.ShipmentLineResponse
	require.NoError(t, json.Unmarshal(env.Data, &lines))
	assert.Len(t, lines, 3)
}

func TestLandedCostHandler_ErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	opID, freightID, _, _ := api.setup()

	t.Run("binding failure is a validation error", func(t *testing.T) {
		code, env := api.do(http.MethodPost, "/operations/"+opID+"/charges", gin.H{
			"cost_component_id": freightID, "amount": "0", "currency": "USD",
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		code, env := api.do(http.MethodPost, "/operations/"+opID+"/charges", gin.H{
			"cost_component_id": freightID, "amount": "100", "currency": "EUR",
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeCurrencyMismatch, env.Error.Code)
	})

	t.Run("unknown operation", func(t *testing.T) {
		code, env := api.do(http.MethodGet, "/operations/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		code, env := api.do(http.MethodGet, "/lines/not-a-uuid/unit-cost", nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	})

	t.Run("duplicate component name", func(t *testing.T) {
		code, env := api.do(http.MethodPost, "/cost-components", gin.H{
			"name": "Ocean Freight", "component_type": "FREIGHT", "allocation_basis": "VALUE",
		})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, env.Error.Code)
	})

	t.Run("mutating a cancelled operation", func(t *testing.T) {
		code, _ := api.do(http.MethodPost, "/operations/"+opID+"/cancel", gin.H{"reason": "vessel diverted"})
		require.Equal(t, http.StatusOK, code)

		code, env := api.do(http.MethodPost, "/operations/"+opID+"/charges", gin.H{
			"cost_component_id": freightID, "amount": "100", "currency": "USD",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
	})
}

func TestLandedCostHandler_CostComponentsAndListing(t *testing.T) {
	api := newTestAPI(t)
	_, freightID, _, _ := api.setup()

	code, _ := api.do(http.MethodPost, "/cost-components/"+freightID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, code)

	code, env := api.do(http.MethodGet, "/cost-components?active_only=true", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	code, _ = api.do(http.MethodPost, "/cost-components/"+freightID+"/activate", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPut, "/cost-components/"+freightID, gin.H{
		"name": "Air Freight", "component_type": "FREIGHT", "allocation_basis": "VOLUME",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"allocation_basis":"VOLUME"`)

	code, env = api.do(http.MethodGet, "/operations?status=OPEN&page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)

	code, env = api.do(http.MethodGet, "/operations?status=DRAFT", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
}
