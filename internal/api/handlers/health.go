// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/http"

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccessResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready reports readiness; it pings the backing store.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("readiness probe failed", "error", err)
		writeErrorResponse(w, http.StatusServiceUnavailable, "database unreachable", CodeInternalError)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}
