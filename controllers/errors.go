package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ip-tracking-api/services"
)

// respondError maps the workflow error taxonomy onto HTTP.
func respondError(c *gin.Context, err error) {
	body := gin.H{"success": false, "error": err.Error()}
	wfErr, _ := services.AsWorkflowError(err)

	switch {
	case errors.Is(err, services.ErrIllegalTransition):
		if wfErr != nil {
			body["allowed_actions"] = nonNilActions(wfErr.Allowed)
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, services.ErrConcurrentModification):
		body["retry"] = true
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, services.ErrPreconditionFailed):
		if wfErr != nil && len(wfErr.Missing) > 0 {
			body["missing"] = wfErr.Missing
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrStageNotFound),
		errors.Is(err, services.ErrRequirementNotFound),
		errors.Is(err, services.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, body)
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, services.ErrStructuralInconsistency):
		log.Printf("[ALERT] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, body)
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}

func nonNilActions(actions []services.AvailableAction) []services.AvailableAction {
	if actions == nil {
		return []services.AvailableAction{}
	}
	return actions
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}
