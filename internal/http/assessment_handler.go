package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cohabisafe/internal/catalog"
	"cohabisafe/internal/domain"
	"cohabisafe/internal/service"
)

// AssessmentHandler exposes the assessment core over HTTP.
type AssessmentHandler struct {
	logger      *zap.Logger
	assessments *service.AssessmentService
}

func NewAssessmentHandler(logger *zap.Logger, assessments *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{
		logger:      logger,
		assessments: assessments,
	}
}

// SubmitPartial handles POST /assessments/:id/answers, the autosave
// path. Unknown keys are reported but do not fail the merge of the
// valid ones.
func (h *AssessmentHandler) SubmitPartial(c *gin.Context) {
	var req struct {
		Section   string                        `json:"section" binding:"required"`
		Answers   map[string]domain.AnswerValue `json:"answers"`
		SaveToken string                        `json:"save_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid submit request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.assessments.SubmitPartial(c.Request.Context(), c.Param("id"), req.Section, req.Answers, req.SaveToken)
	if err != nil {
		var invalid *service.InvalidQuestionError
		switch {
		case errors.As(err, &invalid):
			// Valid keys were applied; surface the rejected ones.
			c.JSON(http.StatusOK, result)
			return
		case errors.Is(err, service.ErrAssessmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		case errors.Is(err, catalog.ErrUnknownSection):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown section"})
			return
		default:
			h.logger.Error("submit partial failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save answers"})
			return
		}
	}

	c.JSON(http.StatusOK, result)
}

// GetProgress handles GET /assessments/:id/progress.
func (h *AssessmentHandler) GetProgress(c *gin.Context) {
	progress, err := h.assessments.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAssessmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		}
		h.logger.Error("progress failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute progress"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Advance handles POST /assessments/:id/advance.
func (h *AssessmentHandler) Advance(c *gin.Context) {
	result, err := h.assessments.AdvanceSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		var validation *service.ValidationError
		switch {
		case errors.As(err, &validation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":          "section below threshold",
				"section":        validation.Section,
				"unanswered_ids": validation.Unanswered,
			})
			return
		case errors.Is(err, service.ErrAssessmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		default:
			h.logger.Error("advance failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not advance"})
			return
		}
	}
	c.JSON(http.StatusOK, result)
}

// Retreat handles POST /assessments/:id/retreat.
func (h *AssessmentHandler) Retreat(c *gin.Context) {
	assessment, err := h.assessments.Retreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAssessmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		}
		h.logger.Error("retreat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not retreat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// GetProfile handles GET /assessments/:id/profile.
func (h *AssessmentHandler) GetProfile(c *gin.Context) {
	profile, err := h.assessments.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssessmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "assessment not found"})
			return
		case errors.Is(err, service.ErrIncompleteAssessment):
			c.JSON(http.StatusConflict, gin.H{"error": "assessment not complete"})
			return
		default:
			h.logger.Error("get profile failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
