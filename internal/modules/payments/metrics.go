package payments

import (
	"github.com/prometheus/client_golang/prometheus"

	"sslrelay.com/app/internal/shared/metrics"
)

var (
	transitionsTotal = metrics.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Terminal transitions applied, by callback channel and resulting status.",
	}, []string{"channel", "status"}))

	callbacksTotal = metrics.Register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Inbound callbacks handled, by channel and result.",
	}, []string{"channel", "result"}))
)
