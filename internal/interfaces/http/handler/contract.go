package handler

import (
	"github.com/gin-gonic/gin"
	contractapp "github.com/meterbill/backend/internal/application/contract"
)

// ContractHandler handles contract lifecycle endpoints
type ContractHandler struct {
	BaseHandler
	contracts *contractapp.ContractService
}

// NewContractHandler creates a new ContractHandler
func NewContractHandler(contracts *contractapp.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// RegisterRoutes mounts the contract routes on the given group
func (h *ContractHandler) RegisterRoutes(rg *gin.RouterGroup) {
	contracts := rg.Group("/contracts")
	{
		contracts.POST("", h.Create)
		contracts.GET("", h.List)
		contracts.GET("/:id", h.Get)
		contracts.GET("/number/:number", h.GetByNumber)
		contracts.GET("/:id/allocations", h.ListAllocations)
		contracts.POST("/:id/send", h.MarkSent)
		contracts.POST("/:id/submit", h.SubmitForApproval)
		contracts.POST("/:id/approve", h.Approve)
		contracts.POST("/:id/finance-approve", h.FinanceApprove)
		contracts.POST("/:id/finance-reject", h.FinanceReject)
		contracts.POST("/:id/cancel", h.Cancel)
	}
}

// Create creates a new quotation
func (h *ContractHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req contractapp.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.contracts.CreateQuotation(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns a filtered, paginated contract list
func (h *ContractHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var filter contractapp.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	items, total, err := h.contracts.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Get returns one contract by ID
func (h *ContractHandler) Get(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.contracts.GetByID(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByNumber returns one contract by its contract number
func (h *ContractHandler) GetByNumber(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.contracts.GetByNumber(c.Request.Context(), tenantID, c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListAllocations returns the unit allocations of a contract
func (h *ContractHandler) ListAllocations(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.contracts.ListAllocations(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkSent marks a quotation as sent to the customer
func (h *ContractHandler) MarkSent(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	resp, err := h.contracts.MarkSent(c.Request.Context(), tenantID, contractID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SubmitForApproval moves a quotation to employee approval
func (h *ContractHandler) SubmitForApproval(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.contracts.SubmitForApproval(c.Request.Context(), tenantID, contractID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Approve runs the simple approval path
func (h *ContractHandler) Approve(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.contracts.Approve(c.Request.Context(), tenantID, contractID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// FinanceApprove validates units, allocates them and activates the
// contract in a single transaction
func (h *ContractHandler) FinanceApprove(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.contracts.FinanceApprove(c.Request.Context(), tenantID, contractID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// FinanceReject rejects a contract with a mandatory reason
func (h *ContractHandler) FinanceReject(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req contractapp.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.contracts.FinanceReject(c.Request.Context(), tenantID, contractID, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels a quotation-stage contract
func (h *ContractHandler) Cancel(c *gin.Context) {
	tenantID, contractID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req contractapp.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.contracts.Cancel(c.Request.Context(), tenantID, contractID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
