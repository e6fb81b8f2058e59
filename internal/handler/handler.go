package handler

import (
	"net/http"

	"procurement-backend/internal/auth"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch service.CodeOf(err) {
	case service.CodeUnauthenticated:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeBadUserInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error envelope for a service error.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in logs, not in the response body
		msg = "Internal server error"
	}
	c.JSON(status, response.Error(status, msg))
}

// principalFrom pulls the authenticated principal out of the request context.
// Returns nil for anonymous requests — services treat nil as unauthenticated.
func principalFrom(c *gin.Context) *auth.Principal {
	principal, _ := auth.PrincipalFromContext(c.Request.Context())
	return principal
}
