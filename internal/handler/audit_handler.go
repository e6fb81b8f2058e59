package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/repository"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/pagination"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs", middleware.RequireAuth(), h.ListAuditLogs)
}

// ListAuditLogs returns paginated audit entries with sensitive fields masked
// @Summary      List audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default: 1)"
// @Param        limit        query     int     false  "Items per page (default: 20)"
// @Param        action       query     string  false  "Filter by action"
// @Param        entity_type  query     string  false  "Filter by entity type"
// @Param        entity_id    query     string  false  "Filter by entity ID"
// @Param        user_id      query     string  false  "Filter by acting user"
// @Success      200          {object}  response.Response
// @Failure      403          {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		UserID:     c.Query("user_id"),
	}

	logs, total, err := h.auditService.List(c.Request.Context(), principalFrom(c), filter, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, params.Page, params.Limit, total))
}
