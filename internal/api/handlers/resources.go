// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/realmgate/realmgate/internal/api/models"
	"github.com/realmgate/realmgate/internal/domain"
)

// CreateResource handles POST /api/realms/{realm}/resources
func (h *Handler) CreateResource(w http.ResponseWriter, r *http.Request) {
	h.saveResource(w, r, "")
}

// UpdateResource handles PUT /api/realms/{realm}/resources/{res}
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	h.saveResource(w, r, r.PathValue("res"))
}

func (h *Handler) saveResource(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.ResourceRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	resource := domain.Resource{
		ID:               id,
		RealmID:          r.PathValue("realm"),
		ResourceName:     payload.ResourceName,
		Description:      payload.Description,
		AllowableActions: payload.AllowableActions,
	}
	if err := h.store.SaveResource(r.Context(), sc, &resource); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, resource)
}

// ListResources handles GET /api/realms/{realm}/resources
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.store.ListResources(r.Context(), r.PathValue("realm"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, resources)
}

// GetResource handles GET /api/realms/{realm}/resources/{res}
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	resource, err := h.store.GetResource(r.Context(), r.PathValue("realm"), r.PathValue("res"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *resource)
}

// DeleteResource handles DELETE /api/realms/{realm}/resources/{res}
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteResource(r.Context(), sc, r.PathValue("realm"), r.PathValue("res")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("res")})
}

// ListResourceClaims handles GET /api/realms/{realm}/resources/{res}/claims
func (h *Handler) ListResourceClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.store.ListClaimsByResource(r.Context(), r.PathValue("realm"), r.PathValue("res"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, claims)
}

// CreateQuota handles POST /api/realms/{realm}/resources/{res}/quota
func (h *Handler) CreateQuota(w http.ResponseWriter, r *http.Request) {
	h.saveQuota(w, r, "")
}

// UpdateQuota handles PUT /api/realms/{realm}/resources/{res}/quota/{id}
func (h *Handler) UpdateQuota(w http.ResponseWriter, r *http.Request) {
	h.saveQuota(w, r, r.PathValue("id"))
}

func (h *Handler) saveQuota(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.ResourceQuotaRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	quota := domain.ResourceQuota{
		ID:              id,
		ResourceID:      r.PathValue("res"),
		LicensePolicyID: payload.LicensePolicyID,
		Scope:           payload.Scope,
		MaxValue:        payload.MaxValue,
	}
	if payload.EffectiveAt != nil {
		quota.EffectiveAt = *payload.EffectiveAt
	} else {
		quota.EffectiveAt = time.Now().UTC()
	}
	if payload.ExpiredAt != nil {
		quota.ExpiredAt = *payload.ExpiredAt
	}
	if err := h.store.SaveResourceQuota(r.Context(), sc, &quota); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, quota)
}

// ListQuotas handles GET /api/realms/{realm}/resources/{res}/quota
func (h *Handler) ListQuotas(w http.ResponseWriter, r *http.Request) {
	quotas, err := h.store.ListResourceQuotas(r.Context(), r.PathValue("res"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, quotas)
}

// GetQuota handles GET /api/realms/{realm}/resources/{res}/quota/{id}
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	quota, err := h.store.GetResourceQuota(r.Context(), r.PathValue("res"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *quota)
}

// DeleteQuota handles DELETE /api/realms/{realm}/resources/{res}/quota/{id}
func (h *Handler) DeleteQuota(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteResourceQuota(r.Context(), sc, r.PathValue("res"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}

// CreateInstance handles POST /api/realms/{realm}/resources/{res}/instances.
// Creation passes through the quota enforcer.
func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.ResourceInstanceRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	instance := domain.ResourceInstance{
		ResourceID:  r.PathValue("res"),
		Scope:       payload.Scope,
		RefID:       payload.RefID,
		Status:      domain.InstanceStatus(payload.Status),
		Description: payload.Description,
	}
	if err := h.engine.CreateInstance(r.Context(), sc, &instance); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, instance)
}

// UpdateInstance handles PUT /api/realms/{realm}/resources/{res}/instances/{id}
func (h *Handler) UpdateInstance(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.ResourceInstanceRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	existing, err := h.store.GetResourceInstance(r.Context(), r.PathValue("res"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	existing.Scope = payload.Scope
	existing.RefID = payload.RefID
	existing.Status = domain.InstanceStatus(payload.Status)
	existing.Description = payload.Description
	if err := h.store.UpdateResourceInstance(r.Context(), sc, existing); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *existing)
}

// ListInstances handles GET /api/realms/{realm}/resources/{res}/instances
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := h.store.ListResourceInstances(r.Context(), r.PathValue("res"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, instances)
}

// GetInstance handles GET /api/realms/{realm}/resources/{res}/instances/{id}
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	instance, err := h.store.GetResourceInstance(r.Context(), r.PathValue("res"), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *instance)
}

// DeleteInstance handles DELETE /api/realms/{realm}/resources/{res}/instances/{id}
func (h *Handler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteResourceInstance(r.Context(), sc, r.PathValue("res"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}
