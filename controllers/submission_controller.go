package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ip-tracking-api/middleware"
	"ip-tracking-api/models"
	"ip-tracking-api/services"
)

type SubmissionController struct {
	engine *services.Engine
}

func NewSubmissionController(engine *services.Engine) *SubmissionController {
	return &SubmissionController{engine: engine}
}

type createSubmissionRequest struct {
	SubmissionType string          `json:"submission_type" binding:"required"`
	Title          string          `json:"title" binding:"required"`
	ApplicantEmail string          `json:"applicant_email"`
	TypeDetail     json.RawMessage `json:"type_detail"`
}

type actionRequest struct {
	Comment       string `json:"comment"`
	TargetStageID *int   `json:"target_stage_id"`
	Reason        string `json:"reason"`
	Version       *int   `json:"version"`
}

// CreateSubmission stores a draft owned by the caller.
func (sc *SubmissionController) CreateSubmission(c *gin.Context) {
	var req createSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var detail models.TypeDetail
	if len(req.TypeDetail) > 0 && string(req.TypeDetail) != "null" {
		if !models.IsSubmissionTypeValid(req.SubmissionType) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown submission type " + req.SubmissionType})
			return
		}
		parsed, err := models.DecodeTypeDetail(req.SubmissionType, req.TypeDetail)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid type_detail: " + err.Error()})
			return
		}
		detail = parsed
	}

	email := req.ApplicantEmail
	if email == "" {
		email = middleware.Email(c)
	}

	sub, err := sc.engine.Workflow.CreateSubmission(c.Request.Context(), services.CreateSubmissionInput{
		SubmissionType: req.SubmissionType,
		Title:          req.Title,
		ApplicantID:    middleware.ActorID(c),
		ApplicantEmail: email,
		Detail:         detail,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": sub})
}

func (sc *SubmissionController) GetSubmission(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, sc.engine)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"data":            sub,
		"allowed_actions": nonNilActions(sc.engine.Workflow.GetAvailableActions(sub)),
	})
}

func (sc *SubmissionController) RetireSubmission(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, sc.engine)
	if !ok {
		return
	}
	if err := sc.engine.Workflow.RetireSubmission(c.Request.Context(), sub.SubmissionID, middleware.ActorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "submission retired"})
}

func (sc *SubmissionController) GetAvailableActions(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, sc.engine)
	if !ok {
		return
	}
	ready, err := sc.engine.Workflow.CanAdvance(c.Request.Context(), sub)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"status":      sub.Status,
		"version":     sub.Version,
		"can_advance": ready,
		"data":        nonNilActions(sc.engine.Workflow.GetAvailableActions(sub)),
	})
}

// ProcessAction applies :action. The body's version, when present, pins the
// snapshot the caller decided on.
func (sc *SubmissionController) ProcessAction(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, sc.engine)
	if !ok {
		return
	}

	var req actionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}
	}
	if req.Version != nil {
		sub.Version = *req.Version
	}

	action := c.Param("action")
	if !sc.mayRequest(c, sub, action) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		return
	}

	updated, err := sc.engine.Workflow.ProcessAction(c.Request.Context(), sub, action, services.ActionOptions{
		Comment:       req.Comment,
		TargetStageID: req.TargetStageID,
		Reason:        req.Reason,
		Processor:     middleware.ActorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"data":            updated,
		"allowed_actions": nonNilActions(sc.engine.Workflow.GetAvailableActions(updated)),
	})
}

func (sc *SubmissionController) GetHistory(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, sc.engine)
	if !ok {
		return
	}
	rows, err := sc.engine.Workflow.History(c.Request.Context(), sub.SubmissionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []models.TrackingHistory{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows, "total": len(rows)})
}

func (sc *SubmissionController) GetReadiness(c *gin.Context) {
	sub, ok := loadVisibleSubmission(c, sc.engine)
	if !ok {
		return
	}
	report, err := sc.engine.Workflow.Readiness(c.Request.Context(), sub)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// loadVisibleSubmission reads :id and hides other applicants' submissions.
func loadVisibleSubmission(c *gin.Context, engine *services.Engine) (*models.Submission, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	sub, err := engine.Workflow.GetSubmission(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if sub.IsRetired() || !canView(c, sub) {
		respondError(c, services.ErrSubmissionNotFound)
		return nil, false
	}
	return sub, true
}

func canView(c *gin.Context, sub *models.Submission) bool {
	role, _ := middleware.RoleID(c)
	if role == middleware.RoleReviewer || role == middleware.RoleAdmin {
		return true
	}
	return sub.ApplicantID == middleware.ActorID(c)
}

// mayRequest limits applicants to submitting and resubmitting their own work.
func (sc *SubmissionController) mayRequest(c *gin.Context, sub *models.Submission, action string) bool {
	role, _ := middleware.RoleID(c)
	if role == middleware.RoleReviewer || role == middleware.RoleAdmin {
		return true
	}
	parsed, err := services.ParseAction(action)
	if err != nil {
		// Unknown actions fall through to the dispatcher's error.
		return true
	}
	return sub.ApplicantID == middleware.ActorID(c) &&
		(parsed == services.ActionSubmit || parsed == services.ActionResubmit)
}
