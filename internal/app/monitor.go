package app

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health records the outcome of the latest run for the /health endpoint.
type Health struct {
	mu      sync.RWMutex
	lastRun time.Time
	lastErr error
}

func (h *Health) Record(at time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun = at
	h.lastErr = err
}

type healthResponse struct {
	Status    string     `json:"status"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	resp := healthResponse{Status: "ok"}
	if !h.lastRun.IsZero() {
		t := h.lastRun
		resp.LastRun = &t
	}
	if h.lastErr != nil {
		resp.Status = "error"
		resp.LastError = h.lastErr.Error()
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// MonitoringHandler serves /health and the prometheus /metrics page.
func MonitoringHandler(health *Health, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
