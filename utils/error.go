package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VoiceError is the body written when a request cannot be handled normally.
// The voice agent reads Response aloud, so it is never empty.
type VoiceError struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ErrorHandler recovers panics and answers 200 with an apology so the call
// does not end in silence.
func ErrorHandler(apology string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusOK, VoiceError{Response: apology, Error: "internal"})
			}
		}()
		c.Next()
	}
}

// JSONError logs and writes a VoiceError with the given status.
func JSONError(c *gin.Context, status int, response, details string) {
	GetLogger().Warn(response, zap.Int("status", status), zap.String("details", details))
	c.AbortWithStatusJSON(status, VoiceError{Response: response, Error: details})
}
