// Package server wires HTTP handlers into a ServeMux for the hub via
// routing helpers.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns an HTTP ServeMux with all hub routes.
// The root path upgrades WebSocket requests so peers may dial the bare
// host:port. A nil gatherer leaves /metrics unregistered.
func SetupRoutes(h *Hub, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.RootHandler)
	mux.HandleFunc("/ws", h.ServeWS)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}
