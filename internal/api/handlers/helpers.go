// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/realmgate/realmgate/internal/api/models"
	"github.com/realmgate/realmgate/internal/domain"
	"github.com/realmgate/realmgate/internal/server/middleware/principal"
	"github.com/realmgate/realmgate/internal/store"
)

// API error codes returned alongside HTTP statuses.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicate        = "DUPLICATE"
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
	CodeEvaluationFailed = "EVALUATION_FAILED"
	CodeSecurity         = "SECURITY"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInternalError    = "INTERNAL_ERROR"
)

var validate = validator.New()

// writeSuccessResponse writes a successful API response
func writeSuccessResponse[T any](w http.ResponseWriter, statusCode int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := models.SuccessResponse(data)
	_ = json.NewEncoder(w).Encode(response) // Ignore encoding errors for response
}

// writeListResponse writes a list response
func writeListResponse[T any](w http.ResponseWriter, items []T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := models.ListSuccessResponse(items)
	_ = json.NewEncoder(w).Encode(response) // Ignore encoding errors for response
}

// writeErrorResponse writes an error API response
func writeErrorResponse(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := models.ErrorResponse(message, code)
	_ = json.NewEncoder(w).Encode(response) // Ignore encoding errors for response
}

// writeError translates a repository error into the HTTP status and API
// code for its kind.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, CodeInternalError
	switch store.KindOf(err) {
	case store.KindNotFound:
		status, code = http.StatusNotFound, CodeNotFound
	case store.KindDuplicate:
		status, code = http.StatusConflict, CodeDuplicate
	case store.KindQuotaExceeded:
		status, code = http.StatusConflict, CodeQuotaExceeded
	case store.KindEvaluation:
		status, code = http.StatusUnauthorized, CodeEvaluationFailed
	case store.KindSecurity:
		status, code = http.StatusUnauthorized, CodeSecurity
	}
	writeErrorResponse(w, status, err.Error(), code)
}

// decodeAndValidate parses the request body into a validated payload.
func decodeAndValidate[T any](r *http.Request) (*T, error) {
	var payload T
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if err := validate.Struct(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// securityContext extracts the caller identity; requests without one are
// rejected at the edge.
func securityContext(r *http.Request) (domain.SecurityContext, bool) {
	return principal.FromContext(r.Context())
}

// windowFromQuery reads the optional association window query parameters
// (ISO-8601 UTC).
func windowFromQuery(r *http.Request) (effectiveAt, expiredAt time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("effective_at"); v != "" {
		effectiveAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return
		}
	}
	if v := q.Get("expired_at"); v != "" {
		expiredAt, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return
		}
	}
	return
}
