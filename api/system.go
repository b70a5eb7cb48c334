package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Pinger is anything the health check can probe, e.g. the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function, such as (*ollama.Client).Health, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const probeTimeout = 2 * time.Second

// SystemHandler serves /health and /version. A failing DB makes the service
// unavailable; a failing optional probe only marks it degraded.
type SystemHandler struct {
	DB     Pinger
	Probes map[string]Pinger
}

type healthReport struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	report := healthReport{Status: "ok", Service: "rojgar"}
	code := http.StatusOK

	probe := func(name string, p Pinger) bool {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		if report.Checks == nil {
			report.Checks = map[string]string{}
		}
		if err := p.Ping(ctx); err != nil {
			logger.Warn("health probe failed", slog.String("probe", name), slog.Any("err", err))
			report.Checks[name] = "unavailable"
			return false
		}
		report.Checks[name] = "ok"
		return true
	}

	if h.DB != nil && !probe("database", h.DB) {
		report.Status = "down"
		code = http.StatusServiceUnavailable
	}

	names := make([]string, 0, len(h.Probes))
	for name := range h.Probes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !probe(name, h.Probes[name]) && report.Status == "ok" {
			report.Status = "degraded"
		}
	}

	writeJSON(w, report, code)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	body := map[string]string{"version": version, "buildTime": buildTime}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, body, http.StatusOK)
	}
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write json response", "err", err)
	}
}
