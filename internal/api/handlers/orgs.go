// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/realmgate/realmgate/internal/api/models"
	"github.com/realmgate/realmgate/internal/domain"
)

// CreateOrganization handles POST /api/orgs
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	h.saveOrganization(w, r, "")
}

// UpdateOrganization handles PUT /api/orgs/{org}
func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	h.saveOrganization(w, r, r.PathValue("org"))
}

func (h *Handler) saveOrganization(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.OrganizationRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	org := domain.Organization{
		ID:          id,
		ParentID:    payload.ParentID,
		Name:        payload.Name,
		URL:         payload.URL,
		Description: payload.Description,
	}
	if err := h.store.SaveOrganization(r.Context(), sc, &org); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, org)
}

// ListOrganizations handles GET /api/orgs
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.store.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, orgs)
}

// GetOrganization handles GET /api/orgs/{org}. The caller's realm selects
// the entitlement layer the aggregate is hydrated with.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	org, err := h.engine.PopulateOrganization(r.Context(), sc, sc.RealmID, r.PathValue("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *org)
}

// DeleteOrganization handles DELETE /api/orgs/{org}
func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteOrganization(r.Context(), sc, r.PathValue("org")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("org")})
}

// CreateGroup handles POST /api/orgs/{org}/groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	h.saveGroup(w, r, "")
}

// UpdateGroup handles PUT /api/orgs/{org}/groups/{group}
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	h.saveGroup(w, r, r.PathValue("group"))
}

func (h *Handler) saveGroup(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.GroupRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	group := domain.Group{
		ID:             id,
		OrganizationID: r.PathValue("org"),
		ParentID:       payload.ParentID,
		Name:           payload.Name,
		Description:    payload.Description,
	}
	if err := h.store.SaveGroup(r.Context(), sc, &group); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, group)
}

// ListGroups handles GET /api/orgs/{org}/groups
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ListGroups(r.Context(), r.PathValue("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, groups)
}

// GetGroup handles GET /api/orgs/{org}/groups/{group}
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.store.GetGroup(r.Context(), r.PathValue("org"), r.PathValue("group"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *group)
}

// DeleteGroup handles DELETE /api/orgs/{org}/groups/{group}
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteGroup(r.Context(), sc, r.PathValue("org"), r.PathValue("group")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("group")})
}

// AddGroupMember handles PUT /api/orgs/{org}/groups/{group}/principals/{principal}
func (h *Handler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.AddGroupPrincipal(r.Context(), sc, r.PathValue("group"), r.PathValue("principal")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"group": r.PathValue("group"), "principal": r.PathValue("principal")})
}

// RemoveGroupMember handles DELETE /api/orgs/{org}/groups/{group}/principals/{principal}
func (h *Handler) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.RemoveGroupPrincipal(r.Context(), sc, r.PathValue("group"), r.PathValue("principal")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"removed": r.PathValue("principal")})
}

// CreateRole handles POST /api/orgs/{org}/roles
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	h.saveRole(w, r, "")
}

// UpdateRole handles PUT /api/orgs/{org}/roles/{role}
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	h.saveRole(w, r, r.PathValue("role"))
}

func (h *Handler) saveRole(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.RoleRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	role := domain.Role{
		ID:             id,
		RealmID:        payload.RealmID,
		OrganizationID: r.PathValue("org"),
		ParentID:       payload.ParentID,
		Name:           payload.Name,
		Description:    payload.Description,
	}
	if err := h.store.SaveRole(r.Context(), sc, &role); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, role)
}

// ListRoles handles GET /api/orgs/{org}/roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.ListRoles(r.Context(), r.PathValue("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, roles)
}

// GetRole handles GET /api/orgs/{org}/roles/{role}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.store.GetRole(r.Context(), r.PathValue("org"), r.PathValue("role"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *role)
}

// DeleteRole handles DELETE /api/orgs/{org}/roles/{role}
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteRole(r.Context(), sc, r.PathValue("org"), r.PathValue("role")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("role")})
}

// grantRole adds a role association row from path and query parameters.
func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request, roleableID string, roleableType domain.RoleableType) {
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
	grant := domain.RoleRoleable{
		RoleID:       r.PathValue("role"),
		RoleableID:   roleableID,
		RoleableType: roleableType,
		Constraints:  r.URL.Query().Get("constraints"),
		EffectiveAt:  effectiveAt,
		ExpiredAt:    expiredAt,
	}
	if err := h.store.AddRoleGrant(r.Context(), sc, &grant); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, grant)
}

// revokeRole removes a role association row.
func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request, roleableID string, roleableType domain.RoleableType) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.RemoveRoleGrant(r.Context(), sc, r.PathValue("role"), roleableID, roleableType); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"revoked": r.PathValue("role")})
}

// GrantRoleToPrincipal handles PUT /api/orgs/{org}/roles/{role}/principals/{principal}
func (h *Handler) GrantRoleToPrincipal(w http.ResponseWriter, r *http.Request) {
	h.grantRole(w, r, r.PathValue("principal"), domain.RoleablePrincipal)
}

// RevokeRoleFromPrincipal handles DELETE /api/orgs/{org}/roles/{role}/principals/{principal}
func (h *Handler) RevokeRoleFromPrincipal(w http.ResponseWriter, r *http.Request) {
	h.revokeRole(w, r, r.PathValue("principal"), domain.RoleablePrincipal)
}

// GrantRoleToGroup handles PUT /api/orgs/{org}/roles/{role}/groups/{group}
func (h *Handler) GrantRoleToGroup(w http.ResponseWriter, r *http.Request) {
	h.grantRole(w, r, r.PathValue("group"), domain.RoleableGroup)
}

// RevokeRoleFromGroup handles DELETE /api/orgs/{org}/roles/{role}/groups/{group}
func (h *Handler) RevokeRoleFromGroup(w http.ResponseWriter, r *http.Request) {
	h.revokeRole(w, r, r.PathValue("group"), domain.RoleableGroup)
}

// CreatePrincipal handles POST /api/orgs/{org}/principals
func (h *Handler) CreatePrincipal(w http.ResponseWriter, r *http.Request) {
	h.savePrincipal(w, r, "")
}

// UpdatePrincipal handles PUT /api/orgs/{org}/principals/{principal}
func (h *Handler) UpdatePrincipal(w http.ResponseWriter, r *http.Request) {
	h.savePrincipal(w, r, r.PathValue("principal"))
}

func (h *Handler) savePrincipal(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.PrincipalRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	principal := domain.Principal{
		ID:             id,
		OrganizationID: r.PathValue("org"),
		Username:       payload.Username,
		Description:    payload.Description,
	}
	if err := h.store.SavePrincipal(r.Context(), sc, &principal); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, principal)
}

// ListPrincipals handles GET /api/orgs/{org}/principals
func (h *Handler) ListPrincipals(w http.ResponseWriter, r *http.Request) {
	principals, err := h.store.ListPrincipals(r.Context(), r.PathValue("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, principals)
}

// GetPrincipal handles GET /api/orgs/{org}/principals/{principal}. The
// result is the hydrated aggregate under the caller's realm.
func (h *Handler) GetPrincipal(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	principal, err := h.engine.PopulatePrincipal(r.Context(), sc, sc.RealmID, r.PathValue("principal"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *principal)
}

// DeletePrincipal handles DELETE /api/orgs/{org}/principals/{principal}
func (h *Handler) DeletePrincipal(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeletePrincipal(r.Context(), sc, r.PathValue("org"), r.PathValue("principal")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("principal")})
}

// CreateLicense handles POST /api/orgs/{org}/licenses
func (h *Handler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	h.saveLicense(w, r, "")
}

// UpdateLicense handles PUT /api/orgs/{org}/licenses/{license}
func (h *Handler) UpdateLicense(w http.ResponseWriter, r *http.Request) {
	h.saveLicense(w, r, r.PathValue("license"))
}

func (h *Handler) saveLicense(w http.ResponseWriter, r *http.Request, id string) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	payload, err := decodeAndValidate[models.LicensePolicyRequest](r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}
	if id == "" {
		id = payload.ID
	}
	policy := domain.LicensePolicy{
		ID:             id,
		OrganizationID: r.PathValue("org"),
		Name:           payload.Name,
		Description:    payload.Description,
	}
	if payload.EffectiveAt != nil {
		policy.EffectiveAt = *payload.EffectiveAt
	} else {
		policy.EffectiveAt = time.Now().UTC()
	}
	if payload.ExpiredAt != nil {
		policy.ExpiredAt = *payload.ExpiredAt
	}
	if err := h.store.SaveLicensePolicy(r.Context(), sc, &policy); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, policy)
}

// ListLicenses handles GET /api/orgs/{org}/licenses
func (h *Handler) ListLicenses(w http.ResponseWriter, r *http.Request) {
	policies, err := h.store.ListLicensePolicies(r.Context(), r.PathValue("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, policies)
}

// GetLicense handles GET /api/orgs/{org}/licenses/{license}
func (h *Handler) GetLicense(w http.ResponseWriter, r *http.Request) {
	policy, err := h.store.GetLicensePolicy(r.Context(), r.PathValue("org"), r.PathValue("license"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, *policy)
}

// DeleteLicense handles DELETE /api/orgs/{org}/licenses/{license}
func (h *Handler) DeleteLicense(w http.ResponseWriter, r *http.Request) {
	sc, ok := securityContext(r)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "missing caller identity", CodeSecurity)
		return
	}
	if err := h.store.DeleteLicensePolicy(r.Context(), sc, r.PathValue("org"), r.PathValue("license")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccessResponse(w, http.StatusOK, map[string]string{"deleted": r.PathValue("license")})
}

// ListLicenseClaims handles GET /api/orgs/{org}/licenses/{license}/claims.
// It returns the active claim grants of the policy.
func (h *Handler) ListLicenseClaims(w http.ResponseWriter, r *http.Request) {
	grants, err := h.store.ClaimGrantsFor(r.Context(), r.PathValue("license"), domain.ClaimableLicensePolicy, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeListResponse(w, grants)
}
