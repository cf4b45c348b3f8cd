package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const servicesMeterName = "github.com/baovptse192440/NongSanProject-sub002/internal/services"

// SideEffectKind names a best-effort action taken after a primary write.
type SideEffectKind string

const (
	SideEffectAdminEmail           SideEffectKind = "email.admin"
	SideEffectAdminNotification    SideEffectKind = "notification.admin"
	SideEffectCustomerEmail        SideEffectKind = "email.customer"
	SideEffectCustomerNotification SideEffectKind = "notification.customer"
)

// SideEffectStatus is the outcome of a side effect.
type SideEffectStatus string

const (
	SideEffectSucceeded SideEffectStatus = "succeeded"
	SideEffectFailed    SideEffectStatus = "failed"
	SideEffectSkipped   SideEffectStatus = "skipped"
)

// SideEffectOutcome records one attempted side effect.
type SideEffectOutcome struct {
	Kind   SideEffectKind
	Target string
	Status SideEffectStatus
	Detail string
}

// SideEffectLog collects outcomes in the order they were attempted.
type SideEffectLog struct {
	Outcomes []SideEffectOutcome
}

func (l *SideEffectLog) succeeded(kind SideEffectKind, target string) {
	l.Outcomes = append(l.Outcomes, SideEffectOutcome{Kind: kind, Target: target, Status: SideEffectSucceeded})
}

func (l *SideEffectLog) failed(kind SideEffectKind, target string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	l.Outcomes = append(l.Outcomes, SideEffectOutcome{Kind: kind, Target: target, Status: SideEffectFailed, Detail: detail})
}

func (l *SideEffectLog) skipped(kind SideEffectKind, reason string) {
	l.Outcomes = append(l.Outcomes, SideEffectOutcome{Kind: kind, Status: SideEffectSkipped, Detail: reason})
}

// Count returns how many outcomes of the given kind ended with status.
func (l SideEffectLog) Count(kind SideEffectKind, status SideEffectStatus) int {
	n := 0
	for _, outcome := range l.Outcomes {
		if outcome.Kind == kind && outcome.Status == status {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes.
func (l SideEffectLog) Failures() []SideEffectOutcome {
	var out []SideEffectOutcome
	for _, outcome := range l.Outcomes {
		if outcome.Status == SideEffectFailed {
			out = append(out, outcome)
		}
	}
	return out
}

type sideEffectMetrics struct {
	counter metric.Int64Counter
	enabled bool
}

func newSideEffectMetrics(meter metric.Meter) sideEffectMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(servicesMeterName)
	}
	counter, err := meter.Int64Counter(
		"orders.side_effects",
		metric.WithDescription("Count of order side effects by kind and outcome"),
	)
	return sideEffectMetrics{counter: counter, enabled: err == nil}
}

func (m sideEffectMetrics) record(ctx context.Context, operation string, log SideEffectLog) {
	if !m.enabled {
		return
	}
	for _, outcome := range log.Outcomes {
		m.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("kind", string(outcome.Kind)),
			attribute.String("status", string(outcome.Status)),
		))
	}
}
