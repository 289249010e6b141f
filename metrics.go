package cda

import "github.com/prometheus/client_golang/prometheus"

// Metrics is optional, all methods are safe on a nil receiver.
type Metrics struct {
	Fetches   *prometheus.CounterVec
	Commands  *prometheus.CounterVec
	Events    *prometheus.CounterVec
	CacheHits prometheus.Counter
	Online    *prometheus.GaugeVec
	PollTicks *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cda",
			Name:      "status_fetches_total",
			Help:      "Remote status fetches by result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cda",
			Name:      "commands_total",
			Help:      "Remote command batches by result.",
		}, []string{"result"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cda",
			Name:      "events_total",
			Help:      "Push events by outcome.",
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cda",
			Name:      "status_cache_hits_total",
			Help:      "Status requests served from cache.",
		}),
		Online: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cda",
			Name:      "device_online",
			Help:      "1 if the device is considered online.",
		}, []string{"device"}),
		PollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cda",
			Name:      "poll_ticks_total",
			Help:      "Poll ticks by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.Fetches, m.Commands, m.Events, m.CacheHits, m.Online, m.PollTicks)
	}

	return m
}

func result(ok bool) string {
	if ok {
		return "success"
	}

	return "failure"
}

func (m *Metrics) fetch(ok bool) {
	if m != nil {
		m.Fetches.WithLabelValues(result(ok)).Inc()
	}
}

func (m *Metrics) command(ok bool) {
	if m != nil {
		m.Commands.WithLabelValues(result(ok)).Inc()
	}
}

func (m *Metrics) event(outcome string) {
	if m != nil {
		m.Events.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) online(device string, online bool) {
	if m != nil {
		v := 0.0
		if online {
			v = 1.0
		}
		m.Online.WithLabelValues(device).Set(v)
	}
}

func (m *Metrics) pollTick(outcome string) {
	if m != nil {
		m.PollTicks.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) forget(device string) {
	if m != nil {
		m.Online.DeleteLabelValues(device)
	}
}
