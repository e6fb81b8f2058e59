package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/pagination"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ContractHandler struct {
	contractService service.ContractService
}

func NewContractHandler(contractService service.ContractService) *ContractHandler {
	return &ContractHandler{contractService: contractService}
}

func (h *ContractHandler) RegisterRoutes(router *gin.RouterGroup) {
	contracts := router.Group("/contracts", middleware.RequireAuth())
	{
		contracts.GET("", h.ListContracts)
		contracts.POST("", h.CreateContract)
		contracts.GET("/:id", h.GetContract)
		contracts.PUT("/:id", h.UpdateContract)
		contracts.DELETE("/:id", h.DeleteContract)
		contracts.POST("/:id/approve", h.ApproveContract)
		contracts.POST("/:id/reject", h.RejectContract)
	}
}

// ListContracts returns paginated contracts with optional filters
// @Summary      List contracts
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default: 1)"
// @Param        limit        query     int     false  "Items per page (default: 20)"
// @Param        status       query     string  false  "Filter by status"
// @Param        supplier_id  query     string  false  "Filter by supplier"
// @Success      200          {object}  response.Response
// @Router       /api/contracts [get]
func (h *ContractHandler) ListContracts(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")
	supplierID := c.Query("supplier_id")

	contracts, total, err := h.contractService.ListContracts(c.Request.Context(), principalFrom(c), status, supplierID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, contracts, params.Page, params.Limit, total))
}

// CreateContract drafts a new contract with a generated contract number
// @Summary      Create contract
// @Tags         contracts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateContractRequest  true  "Contract payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/contracts [post]
func (h *ContractHandler) CreateContract(c *gin.Context) {
	var req service.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	contract, err := h.contractService.CreateContract(c.Request.Context(), principalFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, contract))
}

// GetContract fetches a single contract by ID
// @Summary      Get contract
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/contracts/{id} [get]
func (h *ContractHandler) GetContract(c *gin.Context) {
	contract, err := h.contractService.GetContract(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}

// UpdateContract updates an existing contract
// @Summary      Update contract
// @Tags         contracts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Contract ID"
// @Param        payload  body  service.UpdateContractRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/contracts/{id} [put]
func (h *ContractHandler) UpdateContract(c *gin.Context) {
	var req service.UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	contract, err := h.contractService.UpdateContract(c.Request.Context(), principalFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}

// DeleteContract soft deletes a contract
// @Summary      Delete contract
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/contracts/{id} [delete]
func (h *ContractHandler) DeleteContract(c *gin.Context) {
	if err := h.contractService.DeleteContract(c.Request.Context(), principalFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Contract deleted successfully"))
}

// ApproveContract activates a DRAFT or PENDING_APPROVAL contract
// @Summary      Approve contract
// @Tags         contracts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Contract ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/contracts/{id}/approve [post]
func (h *ContractHandler) ApproveContract(c *gin.Context) {
	contract, err := h.contractService.ApproveContract(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}

// RejectContract transitions a contract to REJECTED with a reason
// @Summary      Reject contract
// @Tags         contracts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "Contract ID"
// @Param        payload  body  rejectRequest  true  "Rejection reason"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/contracts/{id}/reject [post]
func (h *ContractHandler) RejectContract(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Rejection reason is required"))
		return
	}

	contract, err := h.contractService.RejectContract(c.Request.Context(), principalFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, contract))
}
