package handler

import (
	"net/http"

	"procurement-backend/internal/service"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	registrationService service.RegistrationService
}

func NewRegistrationHandler(registrationService service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// RegisterRoutes binds the public, unauthenticated registration endpoint.
func (h *RegistrationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/register-supplier", h.RegisterSupplier)
}

// RegisterSupplier accepts anonymous supplier self-registration. Always
// responds 200 with a success flag and message — a rejected registration is
// data, not an HTTP error.
// @Summary      Register supplier (public)
// @Tags         registration
// @Accept       json
// @Produce      json
// @Param        payload  body  service.RegisterSupplierRequest  true  "Registration payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/register-supplier [post]
func (h *RegistrationHandler) RegisterSupplier(c *gin.Context) {
	var req service.RegisterSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result := h.registrationService.RegisterSupplier(c.Request.Context(), req)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
