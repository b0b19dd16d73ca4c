// Package metrics holds the Prometheus collectors of the signal server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proximity_voice"

type Metrics struct {
	reg *prometheus.Registry

	lobbies       prometheus.Gauge
	members       prometheus.Gauge
	connections   prometheus.Gauge
	relayed       *prometheus.CounterVec
	undeliverable prometheus.Counter
	dropped       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		lobbies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "lobbies",
			Help: "Open lobbies.",
		}),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "members",
			Help: "Members across all lobbies.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Open signal connections.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "relayed_signals_total",
			Help: "Negotiation messages forwarded to a peer.",
		}, []string{"kind"}),
		undeliverable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "undeliverable_signals_total",
			Help: "Negotiation messages whose target was unknown or congested.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_frames_total",
			Help: "Outbound frames rejected by a full connection queue.",
		}),
	}
	m.reg.MustRegister(
		m.lobbies, m.members, m.connections,
		m.relayed, m.undeliverable, m.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) SetLobbies(n int) {
	if m == nil {
		return
	}
	m.lobbies.Set(float64(n))
}

func (m *Metrics) MemberJoined() {
	if m == nil {
		return
	}
	m.members.Inc()
}

func (m *Metrics) MemberLeft() {
	if m == nil {
		return
	}
	m.members.Dec()
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) Relayed(kind string) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(kind).Inc()
}

func (m *Metrics) Undeliverable() {
	if m == nil {
		return
	}
	m.undeliverable.Inc()
}

func (m *Metrics) Dropped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.Add(float64(n))
}
