package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentService service.DocumentService
}

func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	documents := router.Group("/documents", middleware.RequireAuth())
	{
		documents.GET("", h.ListDocuments)
		documents.POST("", h.UploadDocument)
		documents.GET("/:id", h.GetDocument)
		documents.DELETE("/:id", h.DeleteDocument)
	}
}

// ListDocuments lists documents attached to a supplier, contract, or payment
// @Summary      List documents
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        supplier_id  query     string  false  "Filter by supplier"
// @Param        contract_id  query     string  false  "Filter by contract"
// @Param        payment_id   query     string  false  "Filter by payment"
// @Success      200          {object}  response.Response
// @Failure      400          {object}  response.Response
// @Router       /api/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	documents, err := h.documentService.ListDocuments(c.Request.Context(), principalFrom(c),
		c.Query("supplier_id"), c.Query("contract_id"), c.Query("payment_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, documents))
}

// UploadDocument registers document metadata against a parent entity
// @Summary      Upload document
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateDocumentRequest  true  "Document metadata"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/documents [post]
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req service.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	document, err := h.documentService.UploadDocument(c.Request.Context(), principalFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, document))
}

// GetDocument fetches document metadata by ID
// @Summary      Get document
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	document, err := h.documentService.GetDocument(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, document))
}

// DeleteDocument removes a document
// @Summary      Delete document
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	if err := h.documentService.DeleteDocument(c.Request.Context(), principalFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Document deleted successfully"))
}
