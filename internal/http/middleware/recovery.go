package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"sslrelay.com/app/internal/shared/apperr"
)

// Recovery turns a handler panic into an internal error for ErrorHandler, so
// a browser mid-payment still gets its failure redirect. A client that hung
// up (broken pipe) is only logged.
func Recovery(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if brokenPipe(rec) {
				l.WarnContext(c.Request.Context(), "client connection lost",
					"request_id", GetRequestID(c), "panic", rec)
				c.Abort()
				return
			}

			l.LogAttrs(c.Request.Context(), slog.LevelError, "panic_recovered",
				slog.String("request_id", GetRequestID(c)),
				slog.String("tran_id", GetTranID(c)),
				slog.String("route", c.FullPath()),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			Fail(c, apperr.Wrap(fmt.Errorf("panic: %v", rec)))
		}()

		c.Next()
	}
}

func brokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
