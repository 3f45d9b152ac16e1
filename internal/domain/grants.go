// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package domain

// GrantSource tags how a claim grant reached a principal or an
// organization's claim layer.
type GrantSource string

const (
	// GrantRealm marks ambient realm claims for organizations without a
	// license policy.
	GrantRealm GrantSource = "Realm"
	// GrantLicensePolicy marks claims entitled by the active license policy.
	GrantLicensePolicy GrantSource = "LicensePolicy"
	// GrantRole marks claims reaching a principal through a role.
	GrantRole GrantSource = "Role"
	// GrantPrincipal marks claims granted to a principal directly.
	GrantPrincipal GrantSource = "Principal"
)

// ClaimGrant is the resolved view of a claim association: the claim itself
// plus the scope and constraints the grant carries. GranteeID holds the
// role, principal or policy id the grant came through; it is empty for
// ambient realm grants.
type ClaimGrant struct {
	Source      GrantSource `json:"source"`
	Claim       Claim       `json:"claim"`
	RealmID     string      `json:"realmId"`
	GranteeID   string      `json:"granteeId,omitempty"`
	Scope       string      `json:"scope,omitempty"`
	Constraints string      `json:"constraints,omitempty"`
}

// LicenseKey returns the lookup key used by the license filter.
func (g ClaimGrant) LicenseKey() string {
	return g.Claim.ID + "_" + g.Scope
}

// Scoped reports whether the grant narrows the claim with a scope or a
// constraint expression.
func (g ClaimGrant) Scoped() bool {
	return g.Scope != "" || g.Constraints != ""
}
