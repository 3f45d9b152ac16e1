// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"

	"github.com/realmgate/realmgate/internal/api/models"
	"github.com/realmgate/realmgate/internal/domain"
)

// CreateRealm handles POST /api/realms
func (h *Handler) CreateRealm(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.RealmRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	realm := domain.Realm{ID: payload.ID, Description: payload.Description}
	if err := h.store.SaveRealm(r.Context(), sc, &realm); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, realm)
}

// ListRealms handles GET /api/realms
func (h *Handler) ListRealms(w http.ResponseWriter, r *http.Request) {
	realms, err := h.store.ListRealms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, realms)
}

// GetRealm handles GET /api/realms/{realm}
func (h *Handler) GetRealm(w http.ResponseWriter, r *http.Request) {
	realm, err := h.store.GetRealm(r.Context(), r.PathValue("realm"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *realm)
}

// UpdateRealm handles PUT /api/realms/{realm}
func (h *Handler) UpdateRealm(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.RealmRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	realm := domain.Realm{ID: r.PathValue("realm"), Description: payload.Description}
	if err := h.store.SaveRealm(r.Context(), sc, &realm); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, realm)
}

// DeleteRealm handles DELETE /api/realms/{realm}
func (h *Handler) DeleteRealm(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteRealm(r.Context(), sc, r.PathValue("realm")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("realm")})
}

// ListAuditRecords handles GET /api/realms/{realm}/audit_records
func (h *Handler) ListAuditRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	records, err := h.store.ListAuditRecords(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, records)
}

// CreateClaim handles POST /api/realms/{realm}/claims
func (h *Handler) CreateClaim(w http.ResponseWriter, r *http.Request) {
	h.saveClaim(w, r, "")
}

// UpdateClaim handles PUT /api/realms/{realm}/claims/{claim}
func (h *Handler) UpdateClaim(w http.ResponseWriter, r *http.Request) {
	h.saveClaim(w, r, r.PathValue("claim"))
}

func (h *Handler) saveClaim(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.ClaimRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	claim := domain.Claim{
		ID:          id,
		RealmID:     r.PathValue("realm"),
		ResourceID:  payload.ResourceID,
		Action:      payload.Action,
		Effect:      domain.Effect(payload.Effect),
		Description: payload.Description,
	}
	if err := h.store.SaveClaim(r.Context(), sc, &claim); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, claim)
}

// ListClaims handles GET /api/realms/{realm}/claims
func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.store.ListClaims(r.Context(), r.PathValue("realm"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, claims)
}

// GetClaim handles GET /api/realms/{realm}/claims/{claim}
func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.store.GetClaim(r.Context(), r.PathValue("realm"), r.PathValue("claim"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *claim)
}

// DeleteClaim handles DELETE /api/realms/{realm}/claims/{claim}
func (h *Handler) DeleteClaim(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteClaim(r.Context(), sc, r.PathValue("realm"), r.PathValue("claim")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("claim")})
}

// grantClaim adds a claim association row from path and query parameters.
func (h *Handler) grantClaim(w http.ResponseWriter, r *http.Request, claimableID string, claimableType domain.ClaimableType) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	effectiveAt, expiredAt, err := windowFromQuery(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	grant := domain.ClaimClaimable{
		ClaimID:       r.PathValue("claim"),
		ClaimableID:   claimableID,
		ClaimableType: claimableType,
		Scope:         r.URL.Query().Get("scope"),
		Constraints:   r.URL.Query().Get("constraints"),
		EffectiveAt:   effectiveAt,
		ExpiredAt:     expiredAt,
	}
	if err := h.store.AddClaimGrant(r.Context(), sc, &grant); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, grant)
}

// revokeClaim removes a claim association row.
func (h *Handler) revokeClaim(w http.ResponseWriter, r *http.Request, claimableID string, claimableType domain.ClaimableType) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	err := h.store.RemoveClaimGrant(r.Context(), sc, r.PathValue("claim"), claimableID, claimableType, r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"revoked": r.PathValue("claim")})
}

// GrantClaimToPrincipal handles PUT /api/realms/{realm}/claims/{claim}/principals/{principal}
func (h *Handler) GrantClaimToPrincipal(w http.ResponseWriter, r *http.Request) {
	h.grantClaim(w, r, r.PathValue("principal"), domain.ClaimablePrincipal)
}

// RevokeClaimFromPrincipal handles DELETE /api/realms/{realm}/claims/{claim}/principals/{principal}
func (h *Handler) RevokeClaimFromPrincipal(w http.ResponseWriter, r *http.Request) {
	h.revokeClaim(w, r, r.PathValue("principal"), domain.ClaimablePrincipal)
}

// GrantClaimToRole handles PUT /api/realms/{realm}/claims/{claim}/roles/{role}
func (h *Handler) GrantClaimToRole(w http.ResponseWriter, r *http.Request) {
	h.grantClaim(w, r, r.PathValue("role"), domain.ClaimableRole)
}

// RevokeClaimFromRole handles DELETE /api/realms/{realm}/claims/{claim}/roles/{role}
func (h *Handler) RevokeClaimFromRole(w http.ResponseWriter, r *http.Request) {
	h.revokeClaim(w, r, r.PathValue("role"), domain.ClaimableRole)
}

// GrantClaimToLicense handles PUT /api/realms/{realm}/claims/{claim}/licenses/{license}
func (h *Handler) GrantClaimToLicense(w http.ResponseWriter, r *http.Request) {
	h.grantClaim(w, r, r.PathValue("license"), domain.ClaimableLicensePolicy)
}

// RevokeClaimFromLicense handles DELETE /api/realms/{realm}/claims/{claim}/licenses/{license}
func (h *Handler) RevokeClaimFromLicense(w http.ResponseWriter, r *http.Request) {
	h.revokeClaim(w, r, r.PathValue("license"), domain.ClaimableLicensePolicy)
}
