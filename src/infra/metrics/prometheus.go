// Package metrics records service measurements in a Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

const namespace = "scholarduel"

// Prometheus implements ports.Metrics on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	duelsCreated    prometheus.Counter
	transitions     *prometheus.CounterVec
	rounds          *prometheus.CounterVec
	scoringDuration *prometheus.HistogramVec
	connections     prometheus.Gauge
	rateLimited     *prometheus.CounterVec
}

var _ ports.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the service collectors plus the Go and process
// collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		duelsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duels_created_total",
			Help:      "Duels opened by a challenger.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duel_transitions_total",
			Help:      "Duel status changes by resulting status.",
		}, []string{"status"}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_submitted_total",
			Help:      "Rounds stored, by whether the judge scored them.",
		}, []string{"scored"}),
		scoringDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Time spent waiting on the judge.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		}, []string{"outcome"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Open websocket connections.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.duelsCreated,
		p.transitions,
		p.rounds,
		p.scoringDuration,
		p.connections,
		p.rateLimited,
	)
	return p
}

// Registry exposes the registry for handlers and tests.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) DuelCreated() { p.duelsCreated.Inc() }

func (p *Prometheus) DuelTransition(status domain.DuelStatus) {
	p.transitions.WithLabelValues(string(status)).Inc()
}

func (p *Prometheus) RoundSubmitted(scored bool) {
	p.rounds.WithLabelValues(strconv.FormatBool(scored)).Inc()
}

func (p *Prometheus) ScoringDuration(d time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	p.scoringDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *Prometheus) RealtimeConnections(delta int) { p.connections.Add(float64(delta)) }

func (p *Prometheus) RateLimited(scope string) { p.rateLimited.WithLabelValues(scope).Inc() }
