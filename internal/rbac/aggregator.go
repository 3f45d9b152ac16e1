// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package rbac

import (
	"context"
	"sort"
	"time"

	"github.com/realmgate/realmgate/internal/domain"
	"github.com/realmgate/realmgate/internal/store"
)

// PopulatePrincipal hydrates a principal with its roles, groups and the
// effective claim grants under the given realm.
func (e *Engine) PopulatePrincipal(ctx context.Context, sc domain.SecurityContext, realmID, principalID string) (*domain.Principal, error) {
	principal, _, err := e.hydratePrincipal(ctx, sc, realmID, principalID, e.now())
	return principal, err
}

// hydratePrincipal resolves role inheritance, group memberships and claim
// grants, filtering the grants through the organization's license layer.
// It returns the hydrated principal together with the org claim layer so
// the decision engine can apply the license gate without reloading it.
func (e *Engine) hydratePrincipal(ctx context.Context, sc domain.SecurityContext, realmID, principalID string, now time.Time) (*domain.Principal, []domain.ClaimGrant, error) {
	principal, err := e.store.GetPrincipal(ctx, principalID)
	if err != nil {
		return nil, nil, err
	}
	principal.Roles = make(map[string]*domain.Role)
	principal.Groups = make(map[string]*domain.Group)

	orgRoles, err := e.orgRoleMap(ctx, principal.OrganizationID)
	if err != nil {
		return nil, nil, err
	}

	// Direct role grants, expanded with ancestors.
	roleGrants, err := e.store.RoleGrantsFor(ctx, principalID, domain.RoleablePrincipal, now)
	if err != nil {
		return nil, nil, err
	}
	for _, grant := range roleGrants {
		e.addRoleWithAncestors(ctx, sc, principal, grant.RoleID, orgRoles)
	}

	// Group memberships contribute their roles the same way.
	groupIDs, err := e.store.GroupIDsForPrincipal(ctx, principalID)
	if err != nil {
		return nil, nil, err
	}
	for _, groupID := range groupIDs {
		group, err := e.store.GetGroup(ctx, principal.OrganizationID, groupID)
		if err != nil {
			if store.IsKind(err, store.KindNotFound) {
				e.auditSkip(ctx, sc, "skipped dangling group %s for principal %s", groupID, principalID)
				continue
			}
			return nil, nil, err
		}
		principal.Groups[group.ID] = group

		groupRoleGrants, err := e.store.RoleGrantsFor(ctx, groupID, domain.RoleableGroup, now)
		if err != nil {
			return nil, nil, err
		}
		for _, grant := range groupRoleGrants {
			e.addRoleWithAncestors(ctx, sc, principal, grant.RoleID, orgRoles)
		}
	}

	orgClaims, err := e.orgClaimLayer(ctx, sc, realmID, principal.OrganizationID, now)
	if err != nil {
		return nil, nil, err
	}

	// The license filter: (claim id, scope) pairs the policy explicitly
	// narrows. Entries without scope or constraints do not participate.
	claimIDScopes := make(map[string]struct{})
	claimsByID := make(map[string]domain.Claim)
	for _, grant := range orgClaims {
		claimsByID[grant.Claim.ID] = grant.Claim
		if grant.Scoped() {
			claimIDScopes[grant.LicenseKey()] = struct{}{}
		}
	}

	roleIDs := make([]string, 0, len(principal.Roles))
	for id := range principal.Roles {
		roleIDs = append(roleIDs, id)
	}
	sort.Strings(roleIDs)

	for _, roleID := range roleIDs {
		grants, err := e.store.ClaimGrantsFor(ctx, roleID, domain.ClaimableRole, now)
		if err != nil {
			return nil, nil, err
		}
		e.appendFilteredGrants(ctx, sc, principal, grants, domain.GrantRole, realmID, claimsByID, claimIDScopes)
	}

	directGrants, err := e.store.ClaimGrantsFor(ctx, principalID, domain.ClaimablePrincipal, now)
	if err != nil {
		return nil, nil, err
	}
	e.appendFilteredGrants(ctx, sc, principal, directGrants, domain.GrantPrincipal, realmID, claimsByID, claimIDScopes)

	sortGrants(principal.Claims)

	if err := e.attachResources(ctx, realmID, principal); err != nil {
		return nil, nil, err
	}
	return principal, orgClaims, nil
}

// addRoleWithAncestors adds the role and walks its parent chain. Ids not
// present in the organization's role map are skipped with an audit entry.
// The principal's role map doubles as the visited set, so cyclic parent
// links cannot loop.
func (e *Engine) addRoleWithAncestors(ctx context.Context, sc domain.SecurityContext, principal *domain.Principal, roleID string, orgRoles map[string]*domain.Role) {
	for roleID != "" {
		if _, seen := principal.Roles[roleID]; seen {
			return
		}
		role, ok := orgRoles[roleID]
		if !ok {
			e.auditSkip(ctx, sc, "skipped unknown role %s for principal %s", roleID, principal.ID)
			return
		}
		principal.Roles[roleID] = role
		roleID = role.ParentID
	}
}

// appendFilteredGrants resolves association rows to claim grants, applying
// the license filter when the policy distinguishes scopes.
func (e *Engine) appendFilteredGrants(ctx context.Context, sc domain.SecurityContext, principal *domain.Principal, grants []domain.ClaimClaimable, source domain.GrantSource, realmID string, claimsByID map[string]domain.Claim, claimIDScopes map[string]struct{}) {
	for _, row := range grants {
		claim, ok := claimsByID[row.ClaimID]
		if !ok {
			e.auditSkip(ctx, sc, "skipped claim %s granted to %s %s: not entitled in realm %s",
				row.ClaimID, row.ClaimableType, row.ClaimableID, realmID)
			continue
		}
		grant := domain.ClaimGrant{
			Source:      source,
			Claim:       claim,
			RealmID:     realmID,
			GranteeID:   row.ClaimableID,
			Scope:       row.Scope,
			Constraints: row.Constraints,
		}
		if len(claimIDScopes) > 0 && grant.Scoped() {
			if _, ok := claimIDScopes[grant.LicenseKey()]; !ok {
				e.auditSkip(ctx, sc, "skipped claim %s scope %q for %s %s: outside license envelope",
					row.ClaimID, row.Scope, row.ClaimableType, row.ClaimableID)
				continue
			}
		}
		principal.Claims = append(principal.Claims, grant)
	}
}

// orgClaimLayer builds the organization's entitlement layer. With an
// active license policy the layer is the policy's claim grants; without
// one the realm's claims are ambiently available.
func (e *Engine) orgClaimLayer(ctx context.Context, sc domain.SecurityContext, realmID, orgID string, now time.Time) ([]domain.ClaimGrant, error) {
	policies, err := e.store.ActiveLicensePolicies(ctx, orgID, now)
	if err != nil {
		return nil, err
	}

	if len(policies) == 0 {
		claims, err := e.store.ListClaims(ctx, realmID)
		if err != nil {
			return nil, err
		}
		layer := make([]domain.ClaimGrant, 0, len(claims))
		for _, claim := range claims {
			layer = append(layer, domain.ClaimGrant{
				Source:  domain.GrantRealm,
				Claim:   claim,
				RealmID: realmID,
			})
		}
		return layer, nil
	}

	policy := policies[0]
	rows, err := e.store.ClaimGrantsFor(ctx, policy.ID, domain.ClaimableLicensePolicy, now)
	if err != nil {
		return nil, err
	}
	layer := make([]domain.ClaimGrant, 0, len(rows))
	for _, row := range rows {
		claim, err := e.store.GetClaim(ctx, realmID, row.ClaimID)
		if err != nil {
			if store.IsKind(err, store.KindNotFound) {
				e.auditSkip(ctx, sc, "skipped dangling claim %s on license policy %s", row.ClaimID, policy.ID)
				continue
			}
			return nil, err
		}
		layer = append(layer, domain.ClaimGrant{
			Source:      domain.GrantLicensePolicy,
			Claim:       *claim,
			RealmID:     realmID,
			GranteeID:   policy.ID,
			Scope:       row.Scope,
			Constraints: row.Constraints,
		})
	}
	return layer, nil
}

// PopulateOrganization hydrates a tenant aggregate: its active policies,
// entitlement layer, entitled resources, and role/group maps.
func (e *Engine) PopulateOrganization(ctx context.Context, sc domain.SecurityContext, realmID, orgID string) (*domain.Organization, error) {
	now := e.now()

	org, err := e.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org.Policies, err = e.store.ActiveLicensePolicies(ctx, orgID, now)
	if err != nil {
		return nil, err
	}
	org.ClaimLayer, err = e.orgClaimLayer(ctx, sc, realmID, orgID, now)
	if err != nil {
		return nil, err
	}

	resourceIDs := make([]string, 0, len(org.ClaimLayer))
	seen := make(map[string]struct{})
	for _, grant := range org.ClaimLayer {
		if _, ok := seen[grant.Claim.ResourceID]; ok {
			continue
		}
		seen[grant.Claim.ResourceID] = struct{}{}
		resourceIDs = append(resourceIDs, grant.Claim.ResourceID)
	}
	org.Resources, err = e.store.GetResourcesByIDs(ctx, realmID, resourceIDs)
	if err != nil {
		return nil, err
	}

	org.Roles, err = e.orgRoleMap(ctx, orgID)
	if err != nil {
		return nil, err
	}
	groups, err := e.store.ListGroups(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org.Groups = make(map[string]*domain.Group, len(groups))
	for i := range groups {
		org.Groups[groups[i].ID] = &groups[i]
	}
	return org, nil
}

// orgRoleMap loads every role of an organization keyed by id.
func (e *Engine) orgRoleMap(ctx context.Context, orgID string) (map[string]*domain.Role, error) {
	roles, err := e.store.ListRoles(ctx, orgID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*domain.Role, len(roles))
	for i := range roles {
		m[roles[i].ID] = &roles[i]
	}
	return m, nil
}

// attachResources loads the resources referenced by the principal's
// resolved claims.
func (e *Engine) attachResources(ctx context.Context, realmID string, principal *domain.Principal) error {
	ids := make([]string, 0, len(principal.Claims))
	seen := make(map[string]struct{})
	for _, grant := range principal.Claims {
		if _, ok := seen[grant.Claim.ResourceID]; ok {
			continue
		}
		seen[grant.Claim.ResourceID] = struct{}{}
		ids = append(ids, grant.Claim.ResourceID)
	}
	resources, err := e.store.GetResourcesByIDs(ctx, realmID, ids)
	if err != nil {
		return err
	}
	principal.Resources = resources
	return nil
}

// sortGrants orders claims by claim id with Deny before Allow on ties so
// decisions are reproducible for a fixed policy snapshot.
func sortGrants(grants []domain.ClaimGrant) {
	sort.SliceStable(grants, func(i, j int) bool {
		if grants[i].Claim.ID != grants[j].Claim.ID {
			return grants[i].Claim.ID < grants[j].Claim.ID
		}
		return grants[i].Claim.EffectOrDefault() == domain.EffectDeny &&
			grants[j].Claim.EffectOrDefault() != domain.EffectDeny
	})
}

// auditSkip records a dangling-reference warning on the audit trail.
func (e *Engine) auditSkip(ctx context.Context, sc domain.SecurityContext, format string, args ...any) {
	e.logger.Warn("reference skipped during aggregation", "detail", formatSkip(format, args...))
	e.store.RecordAudit(ctx, sc, domain.AuditGet, formatSkip(format, args...))
}
