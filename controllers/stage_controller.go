package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ip-tracking-api/middleware"
	"ip-tracking-api/models"
	"ip-tracking-api/services"
)

type StageController struct {
	engine *services.Engine
}

func NewStageController(engine *services.Engine) *StageController {
	return &StageController{engine: engine}
}

type createStageRequest struct {
	SubmissionType string `json:"submission_type" binding:"required"`
	Code           string `json:"code"`
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	StageOrder     int    `json:"stage_order" binding:"required"`
	IsActive       *bool  `json:"is_active"`
}

type createRequirementRequest struct {
	SubmissionType    string `json:"submission_type" binding:"required"`
	StageID           *int   `json:"stage_id"`
	DocumentKind      string `json:"document_kind" binding:"required"`
	Name              string `json:"name"`
	AllowedExtensions string `json:"allowed_extensions"`
	IsRequired        bool   `json:"is_required"`
	DisplayOrder      int    `json:"display_order"`
	IsActive          *bool  `json:"is_active"`
}

// ListStages returns the stages of ?submission_type=, active ones only unless
// ?include_inactive=true.
func (sc *StageController) ListStages(c *gin.Context) {
	submissionType, ok := submissionTypeQuery(c)
	if !ok {
		return
	}
	includeInactive, _ := strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))

	stages, err := sc.engine.Stages.ListStages(c.Request.Context(), submissionType, !includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	if stages == nil {
		stages = []models.WorkflowStage{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stages, "total": len(stages)})
}

func (sc *StageController) CreateStage(c *gin.Context) {
	var req createStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	stage, err := sc.engine.Stages.CreateStage(c.Request.Context(), &models.WorkflowStage{
		SubmissionType: req.SubmissionType,
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		StageOrder:     req.StageOrder,
		IsActive:       active,
	}, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": stage})
}

// UpdateStage applies a partial edit. Order and activation changes are
// reconciled onto in-flight submissions in the background.
func (sc *StageController) UpdateStage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch services.StagePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	stage, err := sc.engine.Stages.UpdateStage(c.Request.Context(), id, patch, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stage})
}

func (sc *StageController) ListRequirements(c *gin.Context) {
	submissionType, ok := submissionTypeQuery(c)
	if !ok {
		return
	}
	reqs, err := sc.engine.Stages.ListRequirements(c.Request.Context(), submissionType)
	if err != nil {
		respondError(c, err)
		return
	}
	if reqs == nil {
		reqs = []models.DocumentRequirement{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reqs,
		"total":   len(reqs),
		"summary": models.SummarizeRequirements(reqs),
	})
}

func (sc *StageController) CreateRequirement(c *gin.Context) {
	var req createRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	name := req.Name
	if name == "" {
		name = req.DocumentKind
	}

	created, err := sc.engine.Stages.CreateRequirement(c.Request.Context(), &models.DocumentRequirement{
		SubmissionType:    req.SubmissionType,
		StageID:           req.StageID,
		DocumentKind:      req.DocumentKind,
		Name:              name,
		AllowedExtensions: req.AllowedExtensions,
		IsRequired:        req.IsRequired,
		DisplayOrder:      req.DisplayOrder,
		IsActive:          active,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": created})
}

func submissionTypeQuery(c *gin.Context) (string, bool) {
	submissionType := c.Query("submission_type")
	if !models.IsSubmissionTypeValid(submissionType) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "submission_type must be one of " + strings.Join(models.ValidSubmissionTypes(), ", ")})
		return "", false
	}
	return submissionType, true
}
