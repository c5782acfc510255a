// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"
)

// ReadinessCheck reports whether one dependency is ready to serve traffic.
type ReadinessCheck func() bool

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks map[string]ReadinessCheck
}

// NewHealthHandler creates a HealthHandler that is ready when every check passes.
func NewHealthHandler(checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HandleLivez reports that the process is running.
func (h *HealthHandler) HandleLivez(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// HandleReadyz reports 503 with the names of failing checks until all pass.
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	failing := map[string]string{}
	for name, check := range h.checks {
		if check == nil || !check() {
			failing[name] = "not ready"
		}
	}
	if len(failing) > 0 {
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, failing)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}
