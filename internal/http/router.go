package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the Gin router with middlewares and funnel routes.
func NewRouter(
	logger *zap.Logger,
	userH *UserHandler,
	assessH *AssessmentHandler,
	catalogH *CatalogHandler,
) *gin.Engine {
	r := gin.New()

	// Base middlewares: logging, recovery, JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	users := r.Group("/users")
	users.POST("", userH.CreateAccount)
	users.GET("/:id/assessment", userH.LatestAssessment)
	users.POST("/:id/background/consent", userH.BackgroundConsent)
	users.POST("/:id/background/info", userH.BackgroundInfo)

	r.GET("/catalog/sections/:id", catalogH.GetSection)

	assessments := r.Group("/assessments")
	assessments.POST("/:id/answers", assessH.SubmitPartial)
	assessments.GET("/:id/progress", assessH.GetProgress)
	assessments.POST("/:id/advance", assessH.Advance)
	assessments.POST("/:id/retreat", assessH.Retreat)
	assessments.GET("/:id/profile", assessH.GetProfile)

	return r
}

// zapLoggerMiddleware is a simple zap request logger.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware forces Content-Type: application/json on responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
