package router

import (
	"github.com/erp/landedcost/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// LandedCostRoutes builds the /landed-cost route group
func LandedCostRoutes(h *handler.LandedCostHandler) *DomainGroup {
	lc := NewDomainGroup("/landed-cost")

	lc.Group("/cost-components").
		POST("", h.CreateCostComponent).
		GET("", h.ListCostComponents).
		GET("/:id", h.GetCostComponent).
		PUT("/:id", h.UpdateCostComponent).
		POST("/:id/activate", h.ActivateCostComponent).
		POST("/:id/deactivate", h.DeactivateCostComponent)

	lc.Group("/operations").
		POST("", h.OpenTradeOperation).
		GET("", h.ListTradeOperations).
		GET("/by-number/:number", h.GetTradeOperationByNumber).
		GET("/:id", h.GetTradeOperation).
		POST("/:id/lines", h.AddShipmentLine).
		GET("/:id/lines", h.ListShipmentLines).
		POST("/:id/charges", h.CreateCharge).
		GET("/:id/charges", h.ListCharges).
		GET("/:id/allocations", h.ListAllocations).
		POST("/:id/reallocate", h.Reallocate).
		POST("/:id/close", h.CloseTradeOperation).
		POST("/:id/cancel", h.CancelTradeOperation)

	lc.Group("/lines").
		PUT("/:id", h.CorrectShipmentLine).
		GET("/:id/unit-cost", h.GetLandedUnitCost).
		GET("/:id/breakdown", h.GetLandedCostBreakdown)

	return lc
}

// RegisterHealthRoutes mounts the health endpoints at the engine root
func RegisterHealthRoutes(engine *gin.Engine, h *handler.HealthHandler) {
	engine.GET("/health", h.Health)
	engine.GET("/health/live", h.Live)
	engine.GET("/health/ready", h.Ready)
}
