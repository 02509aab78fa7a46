package handler

import (
	"strconv"

	lcapp "github.com/erp/landedcost/internal/application/landedcost"
	"github.com/erp/landedcost/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LandedCostHandler exposes cost components, trade operations, charges and
// landed cost queries
type LandedCostHandler struct {
	BaseHandler
	service *lcapp.Service
}

// NewLandedCostHandler creates a new LandedCostHandler
func NewLandedCostHandler(service *lcapp.Service) *LandedCostHandler {
	return &LandedCostHandler{service: service}
}

// CreateCostComponent godoc
// @Summary      Create a cost component
// @Tags         cost-components
// @Accept       json
// @Produce      json
// @Router       /landed-cost/cost-components [post]
func (h *LandedCostHandler) CreateCostComponent(c *gin.Context) {
	var req lcapp.CostComponentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.CreateCostComponent(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UpdateCostComponent godoc
// @Summary      Rename or re-basis a cost component
// @Tags         cost-components
// @Router       /landed-cost/cost-components/{id} [put]
func (h *LandedCostHandler) UpdateCostComponent(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req lcapp.CostComponentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.UpdateCostComponent(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ActivateCostComponent godoc
// @Summary      Activate a cost component
// @Tags         cost-components
// @Router       /landed-cost/cost-components/{id}/activate [post]
func (h *LandedCostHandler) ActivateCostComponent(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.ActivateCostComponent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeactivateCostComponent godoc
// @Summary      Deactivate a cost component
// @Tags         cost-components
// @Router       /landed-cost/cost-components/{id}/deactivate [post]
func (h *LandedCostHandler) DeactivateCostComponent(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.DeactivateCostComponent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetCostComponent godoc
// @Summary      Get a cost component
// @Tags         cost-components
// @Router       /landed-cost/cost-components/{id} [get]
func (h *LandedCostHandler) GetCostComponent(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetCostComponent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListCostComponents godoc
// @Summary      List cost components
// @Tags         cost-components
// @Param        active_only query bool false "Only active components"
// @Router       /landed-cost/cost-components [get]
func (h *LandedCostHandler) ListCostComponents(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active_only"))
	resp, err := h.service.ListCostComponents(c.Request.Context(), activeOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// OpenTradeOperation godoc
// @Summary      Open a trade operation
// @Tags         trade-operations
// @Router       /landed-cost/operations [post]
func (h *LandedCostHandler) OpenTradeOperation(c *gin.Context) {
	var req lcapp.OpenTradeOperationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.OpenTradeOperation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetTradeOperation godoc
// @Summary      Get a trade operation
// @Tags         trade-operations
// @Router       /landed-cost/operations/{id} [get]
func (h *LandedCostHandler) GetTradeOperation(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetTradeOperation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetTradeOperationByNumber godoc
// @Summary      Get a trade operation by its business number
// @Tags         trade-operations
// @Router       /landed-cost/operations/by-number/{number} [get]
func (h *LandedCostHandler) GetTradeOperationByNumber(c *gin.Context) {
	resp, err := h.service.GetTradeOperationByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListTradeOperations godoc
// @Summary      List trade operations
// @Tags         trade-operations
// @Router       /landed-cost/operations [get]
func (h *LandedCostHandler) ListTradeOperations(c *gin.Context) {
	var filter lcapp.TradeOperationListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	page, err := h.service.ListTradeOperations(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// AddShipmentLine godoc
// @Summary      Record a received shipment line
// @Tags         shipment-lines
// @Router       /landed-cost/operations/{id}/lines [post]
func (h *LandedCostHandler) AddShipmentLine(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req lcapp.AddShipmentLineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.AddShipmentLine(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListShipmentLines godoc
// @Summary      List the shipment lines of a trade operation
// @Tags         shipment-lines
// @Param        include_superseded query bool false "Include corrected snapshots"
// @Router       /landed-cost/operations/{id}/lines [get]
func (h *LandedCostHandler) ListShipmentLines(c *gin.Context) {
	id, q, ok := h.operationQuery(c)
	if !ok {
		return
	}
	resp, err := h.service.ListShipmentLines(c.Request.Context(), id, q.IncludeSuperseded)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CorrectShipmentLine godoc
// @Summary      Correct the measures of a shipment line
// @Description  Supersedes the line with a new snapshot. Allocations are refreshed by reallocate.
// @Tags         shipment-lines
// @Router       /landed-cost/lines/{id} [put]
func (h *LandedCostHandler) CorrectShipmentLine(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req lcapp.CorrectShipmentLineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.CorrectShipmentLine(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateCharge godoc
// @Summary      Record a charge and allocate it across the shipment lines
// @Tags         charges
// @Router       /landed-cost/operations/{id}/charges [post]
func (h *LandedCostHandler) CreateCharge(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req lcapp.CreateChargeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.CreateCharge(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListCharges godoc
// @Summary      List the charges of a trade operation
// @Tags         charges
// @Router       /landed-cost/operations/{id}/charges [get]
func (h *LandedCostHandler) ListCharges(c *gin.Context) {
	id, q, ok := h.operationQuery(c)
	if !ok {
		return
	}
	resp, err := h.service.ListCharges(c.Request.Context(), id, q.IncludeSuperseded)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListAllocations godoc
// @Summary      List the allocations of a trade operation
// @Tags         charges
// @Router       /landed-cost/operations/{id}/allocations [get]
func (h *LandedCostHandler) ListAllocations(c *gin.Context) {
	id, q, ok := h.operationQuery(c)
	if !ok {
		return
	}
	resp, err := h.service.ListAllocations(c.Request.Context(), id, q.IncludeSuperseded)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reallocate godoc
// @Summary      Re-run allocation for charges whose lines changed
// @Tags         charges
// @Router       /landed-cost/operations/{id}/reallocate [post]
func (h *LandedCostHandler) Reallocate(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.ReallocateTradeOperation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CloseTradeOperation godoc
// @Summary      Close a trade operation
// @Tags         trade-operations
// @Router       /landed-cost/operations/{id}/close [post]
func (h *LandedCostHandler) CloseTradeOperation(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.CloseTradeOperation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CancelTradeOperation godoc
// @Summary      Cancel a trade operation
// @Tags         trade-operations
// @Router       /landed-cost/operations/{id}/cancel [post]
func (h *LandedCostHandler) CancelTradeOperation(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req lcapp.CancelTradeOperationRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.service.CancelTradeOperation(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetLandedUnitCost godoc
// @Summary      Get the landed unit cost of a shipment line
// @Tags         landed-cost
// @Router       /landed-cost/lines/{id}/unit-cost [get]
func (h *LandedCostHandler) GetLandedUnitCost(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetLandedUnitCost(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetLandedCostBreakdown godoc
// @Summary      Get the landed cost breakdown of a shipment line
// @Tags         landed-cost
// @Router       /landed-cost/lines/{id}/breakdown [get]
func (h *LandedCostHandler) GetLandedCostBreakdown(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetLandedCostBreakdown(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *LandedCostHandler) operationQuery(c *gin.Context) (id uuid.UUID, q dto.IncludeSupersededQuery, ok bool) {
	if id, ok = h.ParseID(c, "id"); !ok {
		return id, q, false
	}
	return id, q, h.BindQuery(c, &q)
}
