// Package metrics exposes prometheus collectors for safety checks and tool calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mcp-baby-meals/internal/models"
)

const namespace = "baby_meals"

type Metrics struct {
	checks       prometheus.Counter
	alerts       *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_checks_total",
			Help:      "Safety checks evaluated for a known baby.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_alerts_total",
			Help:      "Safety rules triggered, by severity.",
		}, []string{"severity"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool calls, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "MCP tool call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}

	reg.MustRegister(m.checks, m.alerts, m.toolCalls, m.toolDuration)

	return m
}

// ObserveCheck records one safety check and the alerts it produced.
func (m *Metrics) ObserveCheck(alerts []models.SafetyRule) {
	m.checks.Inc()
	for _, a := range alerts {
		m.alerts.WithLabelValues(string(a.Severity)).Inc()
	}
}

func (m *Metrics) ObserveToolCall(tool string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(took.Seconds())
}
