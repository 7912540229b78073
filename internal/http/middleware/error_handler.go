package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"sslrelay.com/app/internal/shared/apperr"
)

// failureBody is the relay's JSON error shape.
type failureBody struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Data      any               `json:"data,omitempty"`
}

// WantsJSON is true for /api routes and explicit JSON clients. Everything
// else is a browser following a processor redirect.
func WantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}

// Fail records err for ErrorHandler and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler renders the last recorded error once the chain unwinds,
// unless a handler already wrote a response. Browsers are redirected to
// failureURL with error_message instead of seeing an error body.
func ErrorHandler(l *slog.Logger, failureURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		err := last.Err
		status := apperr.HTTPStatus(err)
		body := failureBody{
			Status:    "FAILED",
			Message:   apperr.PublicMessage(err),
			RequestID: GetRequestID(c),
		}
		if ae, ok := apperr.As(err); ok {
			body.Fields = ae.Fields
			body.Data = ae.Data
		}

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		l.LogAttrs(c.Request.Context(), level, "request_failed",
			slog.String("request_id", body.RequestID),
			slog.String("tran_id", GetTranID(c)),
			slog.Int("status", status),
			slog.Any("err", err),
		)

		if WantsJSON(c) {
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Abort()
		c.Redirect(http.StatusFound, failureURL+"?"+url.Values{"error_message": {body.Message}}.Encode())
	}
}
