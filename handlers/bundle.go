package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle groups the endpoint handlers routes need.
type HandlerBundle struct {
	// Voice agent webhooks
	ElevenLabsHandler     gin.HandlerFunc
	ElevenLabsTextHandler gin.HandlerFunc
	ToolHandler           gin.HandlerFunc

	// Operations
	HealthHandler  gin.HandlerFunc
	MetricsHandler gin.HandlerFunc
}
