// Package metrics expone las métricas Prometheus de dominio del mesh:
// decisiones de autoridad/consentimiento y estado de los circuit breakers.
// Las métricas HTTP viven en internal/http.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/cogmesh/internal/resilience"
)

var (
	once sync.Once

	authorityDecisions *prometheus.CounterVec
	consentDecisions   *prometheus.CounterVec
	overrideEvents     *prometheus.CounterVec
)

// Register inicializa y registra las métricas de dominio. Idempotente.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	once.Do(func() {
		authorityDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authority_decisions_total",
			Help: "Decisiones del evaluador de autoridad por resultado",
		}, []string{"tenant", "outcome"})

		consentDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consent_decisions_total",
			Help: "Decisiones del evaluador de consentimiento por fuente",
		}, []string{"tenant", "source", "granted"})

		overrideEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "override_events_total",
			Help: "Eventos de overrides (authority y emergency) por tipo",
		}, []string{"kind", "event"})

		_ = register(reg, authorityDecisions)
		_ = register(reg, consentDecisions)
		_ = register(reg, overrideEvents)
	})
}

func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// RecordAuthorityDecision incrementa el contador de decisiones de autoridad.
func RecordAuthorityDecision(tenant, outcome string) {
	if authorityDecisions != nil {
		authorityDecisions.WithLabelValues(tenant, outcome).Inc()
	}
}

// RecordConsentDecision incrementa el contador de decisiones de consentimiento.
func RecordConsentDecision(tenant, source string, granted bool) {
	if consentDecisions != nil {
		g := "false"
		if granted {
			g = "true"
		}
		consentDecisions.WithLabelValues(tenant, source, g).Inc()
	}
}

// RecordOverrideEvent incrementa el contador de eventos de override.
// kind: authority | emergency; event: granted | revoked | used.
func RecordOverrideEvent(kind, event string) {
	if overrideEvents != nil {
		overrideEvents.WithLabelValues(kind, event).Inc()
	}
}

// breakerCollector expone el estado de los circuit breakers como gauge
// (0 = closed, 0.5 = half_open, 1 = open).
type breakerCollector struct {
	executors []*resilience.Executor
	desc      *prometheus.Desc
}

// NewBreakerCollector crea el collector para los executors dados.
func NewBreakerCollector(executors ...*resilience.Executor) prometheus.Collector {
	return &breakerCollector{
		executors: executors,
		desc: prometheus.NewDesc("circuit_breaker_state",
			"Estado del circuit breaker (0 closed, 0.5 half_open, 1 open)",
			[]string{"name"}, nil),
	}
}

func (c *breakerCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *breakerCollector) Collect(ch chan<- prometheus.Metric) {
	for _, e := range c.executors {
		var v float64
		switch e.State() {
		case resilience.StateOpen:
			v = 1
		case resilience.StateHalfOpen:
			v = 0.5
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, v, e.Name())
	}
}
