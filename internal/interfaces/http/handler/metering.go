package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	meteringapp "github.com/meterbill/backend/internal/application/metering"
)

// UsageHandler handles meter reading and settlement endpoints
type UsageHandler struct {
	BaseHandler
	usage *meteringapp.UsageService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(usage *meteringapp.UsageService) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// RegisterRoutes mounts the metering routes on the given group
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/contracts/:id/readings", h.RecordReading)
	rg.GET("/contracts/:id/usage", h.ListUsage)
	rg.POST("/contracts/:id/settlement", h.Consolidate)
	rg.GET("/contracts/:id/settlement", h.GetSettlement)
	rg.GET("/usage/:id", h.GetUsage)
}

// RecordReading records one billing period for an active contract. A
// final reading settles the contract and returns the consolidated
// invoice in the same response.
func (h *UsageHandler) RecordReading(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req meteringapp.RecordReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	// Reader identity is optional; field technicians submit through
	// the gateway which may not forward a user ID.
	var recordedBy *uuid.UUID
	if raw := c.GetHeader("X-User-ID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "X-User-ID must be a valid UUID")
			return
		}
		recordedBy = &id
	}

	resp, err := h.usage.RecordReading(c.Request.Context(), tenantID, contractID, recordedBy, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListUsage returns the full usage history of a contract ordered by
// period start
func (h *UsageHandler) ListUsage(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.usage.ListUsage(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetUsage returns one usage record by its ID
func (h *UsageHandler) GetUsage(c *gin.Context) {
	tenantID, usageID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.usage.GetUsage(c.Request.Context(), tenantID, usageID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Consolidate closes out a contract whose term has ended and returns
// the final settlement
func (h *UsageHandler) Consolidate(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.usage.Consolidate(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetSettlement returns the settlement of an already completed contract
func (h *UsageHandler) GetSettlement(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.usage.GetSettlement(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
