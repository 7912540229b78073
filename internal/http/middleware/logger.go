package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// quietPaths are polled by infrastructure and only logged when they fail.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Logger emits one "http_request" record per request. Redirect targets are
// included so a browser callback's destination is visible in the log; the
// query string of the request itself is not, since processors put
// credentials-adjacent fields there.
func Logger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if quietPaths[path] && status < http.StatusBadRequest {
			return
		}

		var level slog.Level
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		default:
			level = slog.LevelInfo
		}

		req := []any{
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.String("path", path),
			slog.String("client_ip", c.ClientIP()),
		}
		resp := []any{
			slog.Int("status", status),
			slog.Int("bytes", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
		}
		if loc := c.Writer.Header().Get("Location"); loc != "" {
			resp = append(resp, slog.String("location", loc))
		}

		attrs := []slog.Attr{
			slog.String("request_id", GetRequestID(c)),
			slog.Group("req", req...),
			slog.Group("resp", resp...),
		}
		if id := GetTranID(c); id != "" {
			attrs = append(attrs, slog.String("tran_id", id))
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, slog.String("errors", errs.String()))
		}

		l.LogAttrs(c.Request.Context(), level, "http_request", attrs...)
	}
}
