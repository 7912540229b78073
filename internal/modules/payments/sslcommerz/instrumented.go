package sslcommerz

import (
	"context"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sslrelay.com/app/internal/modules/payments"
	"sslrelay.com/app/internal/shared/metrics"
)

var clientDuration = metrics.Register(prometheus.NewSummaryVec(prometheus.SummaryOpts{
	Name:       "processor_client_duration_seconds",
	Help:       "processor client runtime duration and result",
	MaxAge:     time.Minute,
	Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
}, []string{"instance_name", "method", "result"}))

// InstrumentedProcessor decorates a Processor with a duration summary.
type InstrumentedProcessor struct {
	name string
	next payments.Processor
}

var _ payments.Processor = (*InstrumentedProcessor)(nil)

func NewInstrumented(name string, next payments.Processor) *InstrumentedProcessor {
	return &InstrumentedProcessor{name: name, next: next}
}

func (p *InstrumentedProcessor) InitiateTransaction(ctx context.Context, fields url.Values) (resp payments.InitResponse, err error) {
	defer p.observe("InitiateTransaction", time.Now(), &err)
	return p.next.InitiateTransaction(ctx, fields)
}

func (p *InstrumentedProcessor) ValidateTransaction(ctx context.Context, valID string) (resp payments.ValidationResponse, err error) {
	defer p.observe("ValidateTransaction", time.Now(), &err)
	return p.next.ValidateTransaction(ctx, valID)
}

func (p *InstrumentedProcessor) observe(method string, since time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = "error"
	}
	clientDuration.WithLabelValues(p.name, method, result).Observe(time.Since(since).Seconds())
}
