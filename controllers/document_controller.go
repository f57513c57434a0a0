package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ip-tracking-api/middleware"
	"ip-tracking-api/repository"
	"ip-tracking-api/services"
	"ip-tracking-api/utils"
)

type DocumentController struct {
	engine *services.Engine
}

func NewDocumentController(engine *services.Engine) *DocumentController {
	return &DocumentController{engine: engine}
}

type attachDocumentRequest struct {
	DocumentID    int    `json:"document_id"`
	RequirementID *int   `json:"requirement_id"`
	Title         string `json:"title"`
	MimeType      string `json:"mime_type"`
	FileSize      int64  `json:"file_size"`
	Extension     string `json:"extension"`
	Notes         string `json:"notes"`
}

type documentStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type updateDocumentRequest struct {
	Title     *string `json:"title"`
	MimeType  *string `json:"mime_type"`
	FileSize  *int64  `json:"file_size"`
	Extension *string `json:"extension"`
}

func (dc *DocumentController) ListDocuments(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, dc.engine)
	if !ok {
		return
	}
	docs, err := dc.engine.Documents.ListDocuments(c.Request.Context(), sub.SubmissionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": docs, "total": len(docs)})
}

// AttachDocument links uploaded document metadata to the submission.
func (dc *DocumentController) AttachDocument(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, dc.engine)
	if !ok {
		return
	}
	var req attachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	doc, err := dc.engine.Documents.AttachDocument(c.Request.Context(), services.AttachDocumentInput{
		SubmissionID:  sub.SubmissionID,
		DocumentID:    req.DocumentID,
		RequirementID: req.RequirementID,
		Title:         utils.SanitizeInput(req.Title),
		MimeType:      req.MimeType,
		FileSize:      req.FileSize,
		Extension:     req.Extension,
		UploadedBy:    middleware.ActorID(c),
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": doc})
}

// UpdateDocumentStatus records a reviewer's decision. Status accepts the
// English or Thai labels used by the review screens.
func (dc *DocumentController) UpdateDocumentStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req documentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := utils.ParseDocumentStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}

	doc, err := dc.engine.Documents.UpdateDocumentStatus(c.Request.Context(), id, status, req.Notes, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

func (dc *DocumentController) UpdateDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !dc.mayEditDocument(c, id) {
		return
	}
	if req.Title != nil {
		title := utils.SanitizeInput(*req.Title)
		req.Title = &title
	}

	doc, err := dc.engine.Documents.UpdateDocument(c.Request.Context(), id, services.DocumentPatch{
		Title:     req.Title,
		MimeType:  req.MimeType,
		FileSize:  req.FileSize,
		Extension: req.Extension,
	}, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

// mayEditDocument lets reviewers edit any document and applicants only their uploads.
func (dc *DocumentController) mayEditDocument(c *gin.Context, id int) bool {
	role, _ := middleware.RoleID(c)
	if role == middleware.RoleReviewer || role == middleware.RoleAdmin {
		return true
	}
	doc, err := dc.engine.Store.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, services.ErrDocumentNotFound)
			return false
		}
		respondError(c, err)
		return false
	}
	if doc.UploadedBy != middleware.ActorID(c) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		return false
	}
	return true
}
