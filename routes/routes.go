package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ip-tracking-api/controllers"
	"ip-tracking-api/middleware"
	"ip-tracking-api/services"
)

// Deps carries what the routes need from main.
type Deps struct {
	Engine    *services.Engine
	JWTSecret string
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	submissions := controllers.NewSubmissionController(deps.Engine)
	documents := controllers.NewDocumentController(deps.Engine)
	stages := controllers.NewStageController(deps.Engine)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"status":  "ok",
					"message": "IP Tracking API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTSecret))
		{
			// Submissions
			sub := protected.Group("/submissions")
			{
				sub.POST("", submissions.CreateSubmission)
				sub.GET("/:id", submissions.GetSubmission)
				sub.DELETE("/:id", submissions.RetireSubmission)
				sub.GET("/:id/actions", submissions.GetAvailableActions)
				sub.POST("/:id/actions/:action", submissions.ProcessAction)
				sub.GET("/:id/history", submissions.GetHistory)
				sub.GET("/:id/readiness", submissions.GetReadiness)
				sub.GET("/:id/documents", documents.ListDocuments)
				sub.POST("/:id/documents", documents.AttachDocument)
			}

			protected.PATCH("/documents/:id", documents.UpdateDocument)

			// Reviewer routes
			reviewer := protected.Group("")
			reviewer.Use(middleware.RequireRole(middleware.RoleReviewer, middleware.RoleAdmin))
			{
				reviewer.PATCH("/submission-documents/:id/status", documents.UpdateDocumentStatus)
				reviewer.GET("/workflow-stages", stages.ListStages)
				reviewer.GET("/document-requirements", stages.ListRequirements)
			}

			// Admin routes
			admin := protected.Group("")
			admin.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				admin.POST("/workflow-stages", stages.CreateStage)
				admin.PUT("/workflow-stages/:id", stages.UpdateStage)
				admin.POST("/document-requirements", stages.CreateRequirement)
			}
		}
	}
}
