package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cohabisafe/internal/service"
)

// UserHandler holds dependencies for the funnel's user endpoints.
type UserHandler struct {
	logger     *zap.Logger
	onboarding *service.OnboardingService
}

func NewUserHandler(logger *zap.Logger, onboarding *service.OnboardingService) *UserHandler {
	return &UserHandler{
		logger:     logger,
		onboarding: onboarding,
	}
}

// CreateAccount handles POST /users, the account-setup step. It also
// opens the assessment the quiz pages will drive.
func (h *UserHandler) CreateAccount(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		FullName string `json:"full_name" binding:"required"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid account setup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.onboarding.CreateAccount(c.Request.Context(), service.AccountSetupInput{
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and full name are required"})
			return
		}
		h.logger.Error("account setup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// LatestAssessment handles GET /users/:id/assessment, the funnel
// re-entry path.
func (h *UserHandler) LatestAssessment(c *gin.Context) {
	assessment, err := h.onboarding.ResumeAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case errors.Is(err, service.ErrAssessmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no assessment for user"})
			return
		default:
			h.logger.Error("latest assessment failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load assessment"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// BackgroundConsent handles POST /users/:id/background/consent.
func (h *UserHandler) BackgroundConsent(c *gin.Context) {
	var req struct {
		Consent bool `json:"consent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Consent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "explicit consent is required"})
		return
	}

	user, err := h.onboarding.RecordConsent(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case errors.Is(err, service.ErrIncompleteAssessment):
			c.JSON(http.StatusConflict, gin.H{"error": "complete the assessment first"})
			return
		default:
			h.logger.Error("record consent failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record consent"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// BackgroundInfo handles POST /users/:id/background/info. Only the
// bcrypt digest of the SSN is ever stored.
func (h *UserHandler) BackgroundInfo(c *gin.Context) {
	var req struct {
		SSN         string `json:"ssn" binding:"required"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.onboarding.RecordBackgroundInfo(c.Request.Context(), c.Param("id"), req.SSN, req.DateOfBirth)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case errors.Is(err, service.ErrConsentRequired):
			c.JSON(http.StatusConflict, gin.H{"error": "background consent required"})
			return
		case errors.Is(err, service.ErrInvalidSSN), errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		default:
			h.logger.Error("record background info failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record background info"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
