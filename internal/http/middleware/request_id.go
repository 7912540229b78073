package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	CtxKeyRequestID = "request_id"
	CtxKeyTranID    = "tran_id"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" || len(rid) > 64 {
			rid = uuid.NewString()
		}

		c.Set(CtxKeyRequestID, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)

		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(CtxKeyRequestID)
}

// SetTranID tags the request with the transaction it concerns, for logs.
func SetTranID(c *gin.Context, tranID string) {
	if tranID != "" {
		c.Set(CtxKeyTranID, tranID)
	}
}

func GetTranID(c *gin.Context) string {
	return c.GetString(CtxKeyTranID)
}
