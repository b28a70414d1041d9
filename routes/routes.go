package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"bookiovoice/handlers"
	"bookiovoice/middleware"
)

// RegisterWebhookRoutes registers the endpoints the voice agent calls.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle, secret string) {
	api := r.Group("/api/webhook")
	api.Use(middleware.WebhookSecret(secret))
	{
		api.POST("/elevenlabs", hb.ElevenLabsHandler)
		api.POST("/elevenlabs/text", hb.ElevenLabsTextHandler)
		api.POST("/tools/:tool", hb.ToolHandler)
	}
}

// RegisterHealthRoute registers health and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.HealthHandler != nil {
		r.GET("/health", hb.HealthHandler)
	} else {
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if hb.MetricsHandler != nil {
		r.GET("/metrics", hb.MetricsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, secret string) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.WebhookSecretHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	RegisterWebhookRoutes(r, hb, secret)
	RegisterHealthRoute(r, hb)
}
