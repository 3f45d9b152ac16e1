// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"

	"github.com/realmgate/realmgate/internal/api/models"
	"github.com/realmgate/realmgate/internal/rbac"
)

// Check decides an authorization request built from the caller identity
// and the action/resource/scope query parameters. Remaining query
// parameters become the constraint context.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}

	q := r.URL.Query()
	action := q.Get("action")
	resource := q.Get("resource")
	if action == "" || resource == "" {
		writeErrorResponse(w, http.StatusBadRequest, "action and resource query parameters are required", CodeInvalidRequest)
		return
	}

	for key, values := range q {
		switch key {
		case "action", "resource", "scope":
		default:
			if len(values) > 0 {
				sc.Properties[key] = coerceValue(values[0])
			}
		}
	}

	req := rbac.NewPermissionRequest(sc, action, resource, q.Get("scope"))
	effect, err := h.engine.Check(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, models.CheckResponse{Effect: string(effect)})
}

// coerceValue parses a query value into the richest context type it fits:
// bool, int, float, then string.
func coerceValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
