package apphttp

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sslrelay.com/app/internal/http/handlers"
	"sslrelay.com/app/internal/http/middleware"
	"sslrelay.com/app/internal/modules/payments"
	"sslrelay.com/app/internal/storage"
)

type Deps struct {
	Logger       *slog.Logger
	Payments     *payments.Coordinator
	FrontendURL  string
	Archive      storage.Storage
	MaxBodyBytes int64
}

func NewRouter(d Deps) *gin.Engine {
	frontend := strings.TrimRight(d.FrontendURL, "/")

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.ErrorHandler(d.Logger, frontend+"/payment-failed"),
		middleware.Recovery(d.Logger),
		middleware.MaxBody(d.MaxBodyBytes),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewPaymentHandler(d.Logger, d.Payments, frontend, d.Archive)

	api := r.Group("/api")
	api.POST("/initiate-payment", h.Initiate)
	api.POST("/payment-notification", h.Notification)
	api.GET("/transactions/:tran_id", h.Status)

	// Browser callbacks from the processor's hosted page.
	r.POST("/payment-success", h.Success)
	r.POST("/payment-failed", h.Failed)
	r.POST("/payment-cancel", h.Cancel)

	return r
}
