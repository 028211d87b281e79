// Package health exposes the kiosk's only inbound network surface: a
// /healthz liveness probe and a /metrics prometheus endpoint, used by
// on-site monitoring rather than the operator UI (which never talks HTTP
// per spec.md §6).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maniegokryz-prog/EndDev/pkg/localstore"
	"github.com/maniegokryz-prog/EndDev/pkg/remotestore"
)

// status is the /healthz response body.
type status struct {
	Local         string `json:"local"`
	RemoteBreaker string `json:"remote_breaker"`
}

// Handler builds the kiosk's health/metrics mux. remote may be nil if the
// kiosk is configured to run local-only.
func Handler(local *localstore.Store, remote *remotestore.Store) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		st := status{Local: "ok", RemoteBreaker: "unconfigured"}
		code := http.StatusOK
		if err := local.Ping(ctx); err != nil {
			st.Local = "error: " + err.Error()
			code = http.StatusServiceUnavailable
		}
		if remote != nil {
			st.RemoteBreaker = remote.BreakerState()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(st)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
