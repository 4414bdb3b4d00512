// Package metrics exposes the agent's prometheus counters. Registration is
// lazy and happens once, so any package can record without ordering concerns.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	announces     *prometheus.CounterVec
	heartbeats    prometheus.Counter
	rounds        prometheus.Counter
	offers        prometheus.Counter
	confirmations prometheus.Counter
)

func ensure() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		announces = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "announces_total",
			Help:      "Directory announcements attempted, by result.",
		}, []string{"result"})
		heartbeats = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "heartbeats_total",
			Help:      "Directory heartbeats delivered.",
		})
		rounds = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "matching_rounds_total",
			Help:      "Active-matching rounds executed.",
		})
		offers = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "match_offers_total",
			Help:      "Duplicate-reduction trade offers dispatched.",
		})
		confirmations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "confirmations_total",
			Help:      "Mobile confirmations accepted for dispatched offers.",
		})

		registry.MustRegister(announces, heartbeats, rounds, offers, confirmations)
	})
}

func RecordAnnounce(ok bool) {
	ensure()
	result := "ok"
	if !ok {
		result = "error"
	}
	announces.WithLabelValues(result).Inc()
}

func RecordHeartbeat() {
	ensure()
	heartbeats.Inc()
}

func RecordRound() {
	ensure()
	rounds.Inc()
}

func RecordOffer() {
	ensure()
	offers.Inc()
}

func RecordConfirmations(n int) {
	ensure()
	confirmations.Add(float64(n))
}

// Handler serves the agent's registry over HTTP.
func Handler() http.Handler {
	ensure()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
