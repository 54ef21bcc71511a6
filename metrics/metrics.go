// Package metrics holds the storefront's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vogue"

var (
	// SyncPushes counts sync gateway sends by store and outcome (ok, error).
	SyncPushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "pushes_total",
		Help:      "Remote sync sends by store and outcome.",
	}, []string{"store", "outcome"})

	// SyncCoalesced counts pushes that replaced a not-yet-sent value.
	SyncCoalesced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "coalesced_total",
		Help:      "Pushes folded into a pending send.",
	}, []string{"store"})

	// Resolutions counts which tier answered a product lookup.
	Resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "products",
		Name:      "resolutions_total",
		Help:      "Product lookups by answering tier.",
	}, []string{"tier"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "shown_total",
		Help:      "Notifications shown by kind.",
	}, []string{"kind"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Storefront sessions held in memory.",
	})
)

var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(SyncPushes, SyncCoalesced, Resolutions, Notifications, ActiveSessions)
}

// Handler serves the registry for httprouter.
func Handler() httprouter.Handle {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}
