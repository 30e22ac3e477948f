package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dinecircle/authz-service/internal/core/domain"
	"github.com/dinecircle/authz-service/internal/infra/config"
)

// Provider represents a telemetry provider handle. HTTP request metrics are
// owned by the transport middleware; this provider carries the authorization
// decision counter only.
type Provider struct {
	decisionCounter *prometheus.CounterVec
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	decisions := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dinecircle",
		Name:      "authz_decisions_total",
		Help:      "Capability check outcomes partitioned by capability and result",
	}, []string{"capability", "outcome"})

	return &Provider{
		decisionCounter: decisions,
	}, nil
}

// RecordDecision counts one capability check outcome (allow, deny, error).
func (p *Provider) RecordDecision(capability domain.Capability, outcome string) {
	if p == nil || p.decisionCounter == nil {
		return
	}
	p.decisionCounter.WithLabelValues(string(capability), outcome).Inc()
}
