package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/skinvault/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx response.
//
// RequestID echoes the X-Request-ID response header so a client report can
// be matched to the server log line.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// fail aborts the chain with an ErrorResponse. Server-side failures are
// logged with the request-scoped logger and recorded on the context so the
// access log line is raised to error.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("request failed")
		_ = c.Error(errors.New(code + ": " + msg))
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router reuse the error envelope for its fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success body, normally a domain.Envelope.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
