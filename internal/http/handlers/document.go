package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/http/response"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/services"
)

type DocumentHandler struct {
	log       *logger.Logger
	uploads   *services.UploadService
	documents *services.DocumentService
}

func NewDocumentHandler(
	log *logger.Logger,
	uploads *services.UploadService,
	documents *services.DocumentService,
) *DocumentHandler {
	return &DocumentHandler{
		log:       log.With("handler", "DocumentHandler"),
		uploads:   uploads,
		documents: documents,
	}
}

// Upload accepts one multipart PDF under "file" for the tenant named by the
// company_id query parameter and queues it for processing.
func (h *DocumentHandler) Upload(c *gin.Context) {
	companyID := strings.TrimSpace(c.Query("company_id"))
	if companyID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_company_id", errors.New("company_id is required"))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	contentType := fh.Header.Get("Content-Type")
	doc, err := h.uploads.Submit(c.Request.Context(), companyID, fh.Filename, content, contentType)
	if err != nil {
		h.respondUploadError(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"status":      string(doc.Status),
		"document_id": doc.DocumentID,
		"filename":    doc.Filename,
	})
}

func (h *DocumentHandler) respondUploadError(c *gin.Context, err error) {
	var invalidType *domain.InvalidFileTypeError
	var tooLarge *domain.FileTooLargeError
	var overQuota *domain.PageLimitExceededError
	switch {
	case errors.As(err, &invalidType):
		response.RespondError(c, http.StatusBadRequest, "invalid_file_type", err)
	case errors.As(err, &tooLarge):
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err)
	case errors.As(err, &overQuota):
		response.RespondError(c, http.StatusRequestEntityTooLarge, "page_limit_exceeded", err)
	default:
		h.log.Error("Upload failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", err)
	}
}

// List returns the tenant's documents, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	companyID := strings.TrimSpace(c.Query("company_id"))
	if companyID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_company_id", errors.New("company_id is required"))
		return
	}

	docs, err := h.documents.List(c.Request.Context(), companyID)
	if err != nil {
		h.log.Error("Failed to list documents", "company_id", companyID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	response.RespondOK(c, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// Delete removes a document plus its vectors and blob. A document id that
// does not exist for the given tenant is a 404 either way; the handler does
// not distinguish "missing" from "someone else's".
func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID := c.Param("document_id")
	companyID := strings.TrimSpace(c.Query("company_id"))
	if companyID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_company_id", errors.New("company_id is required"))
		return
	}

	err := h.documents.Delete(c.Request.Context(), documentID, companyID)
	if errors.Is(err, domain.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "document_not_found", errors.New("document not found"))
		return
	}
	if err != nil {
		h.log.Error("Failed to delete document", "document_id", documentID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}

	response.RespondOK(c, gin.H{
		"status":      "deleted",
		"document_id": documentID,
	})
}
