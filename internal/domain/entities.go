// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package domain

import "time"

// AuditFields carries the actor/timestamp columns present on every entity.
type AuditFields struct {
	CreatedBy string    `json:"createdBy,omitempty" gorm:"column:created_by"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedBy string    `json:"updatedBy,omitempty" gorm:"column:updated_by"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

// Realm is a top-level security namespace owning resources and claims.
type Realm struct {
	ID          string `json:"id" gorm:"primaryKey;column:id"`
	Description string `json:"description,omitempty" gorm:"column:description"`
	AuditFields `gorm:"embedded"`
}

func (Realm) TableName() string { return "realms" }

// Resource is a protected resource kind inside a realm.
type Resource struct {
	ID               string `json:"id" gorm:"primaryKey;column:id"`
	RealmID          string `json:"realmId" gorm:"column:realm_id;index"`
	ResourceName     string `json:"resourceName" gorm:"column:resource_name"`
	Description      string `json:"description,omitempty" gorm:"column:description"`
	AllowableActions string `json:"allowableActions,omitempty" gorm:"column:allowable_actions"`
	AuditFields      `gorm:"embedded"`
}

func (Resource) TableName() string { return "resources" }

// Claim is a permission template: an action regex with an effect on one
// resource of one realm.
type Claim struct {
	ID          string `json:"id" gorm:"primaryKey;column:id"`
	RealmID     string `json:"realmId" gorm:"column:realm_id;index"`
	ResourceID  string `json:"resourceId" gorm:"column:resource_id;index"`
	Action      string `json:"action" gorm:"column:action"`
	Effect      Effect `json:"effect" gorm:"column:effect"`
	Description string `json:"description,omitempty" gorm:"column:description"`
	AuditFields `gorm:"embedded"`
}

func (Claim) TableName() string { return "claims" }

// EffectOrDefault returns the claim effect, defaulting to Allow when the
// column is empty.
func (c Claim) EffectOrDefault() Effect {
	if c.Effect == EffectDeny {
		return EffectDeny
	}
	return EffectAllow
}

// Organization is a tenant. Organizations may form a tree via ParentID but
// license entitlement is never inherited across the tree.
type Organization struct {
	ID          string `json:"id" gorm:"primaryKey;column:id"`
	ParentID    string `json:"parentId,omitempty" gorm:"column:parent_id"`
	Name        string `json:"name" gorm:"column:name"`
	URL         string `json:"url,omitempty" gorm:"column:url"`
	Description string `json:"description,omitempty" gorm:"column:description"`
	AuditFields `gorm:"embedded"`

	// Hydrated by the aggregator, not persisted.
	ClaimLayer []ClaimGrant         `json:"claims,omitempty" gorm:"-"`
	Resources  []Resource           `json:"resources,omitempty" gorm:"-"`
	Roles      map[string]*Role     `json:"roles,omitempty" gorm:"-"`
	Groups     map[string]*Group    `json:"groups,omitempty" gorm:"-"`
	Policies   []LicensePolicy      `json:"licensePolicies,omitempty" gorm:"-"`
}

func (Organization) TableName() string { return "organizations" }

// LicensePolicy is a tenant-wide entitlement window. At most one policy may
// be active per organization at any instant.
type LicensePolicy struct {
	ID             string    `json:"id" gorm:"primaryKey;column:id"`
	OrganizationID string    `json:"organizationId" gorm:"column:organization_id;index"`
	Name           string    `json:"name" gorm:"column:name"`
	Description    string    `json:"description,omitempty" gorm:"column:description"`
	EffectiveAt    time.Time `json:"effectiveAt" gorm:"column:effective_at"`
	ExpiredAt      time.Time `json:"expiredAt" gorm:"column:expired_at"`
	AuditFields    `gorm:"embedded"`
}

func (LicensePolicy) TableName() string { return "license_policies" }

// Active reports whether the policy window covers the given instant.
func (p LicensePolicy) Active(now time.Time) bool {
	return !p.EffectiveAt.After(now) && !p.ExpiredAt.Before(now)
}

// Principal is a user or service identity inside an organization.
type Principal struct {
	ID             string `json:"id" gorm:"primaryKey;column:id"`
	OrganizationID string `json:"organizationId" gorm:"column:organization_id;index"`
	Username       string `json:"username" gorm:"column:username"`
	Description    string `json:"description,omitempty" gorm:"column:description"`
	AuditFields    `gorm:"embedded"`

	// Hydrated by the aggregator, not persisted.
	Roles     map[string]*Role  `json:"roles,omitempty" gorm:"-"`
	Groups    map[string]*Group `json:"groups,omitempty" gorm:"-"`
	Claims    []ClaimGrant      `json:"claims,omitempty" gorm:"-"`
	Resources []Resource        `json:"resources,omitempty" gorm:"-"`
}

func (Principal) TableName() string { return "principals" }

// Group is an optional hierarchy of principals inside an organization.
type Group struct {
	ID             string `json:"id" gorm:"primaryKey;column:id"`
	OrganizationID string `json:"organizationId" gorm:"column:organization_id;index"`
	ParentID       string `json:"parentId,omitempty" gorm:"column:parent_id"`
	Name           string `json:"name" gorm:"column:name"`
	Description    string `json:"description,omitempty" gorm:"column:description"`
	AuditFields    `gorm:"embedded"`
}

func (Group) TableName() string { return "groups" }

// Role lives in a realm and an organization; inheritance via ParentID.
type Role struct {
	ID             string `json:"id" gorm:"primaryKey;column:id"`
	RealmID        string `json:"realmId" gorm:"column:realm_id;index"`
	OrganizationID string `json:"organizationId" gorm:"column:organization_id;index"`
	ParentID       string `json:"parentId,omitempty" gorm:"column:parent_id"`
	Name           string `json:"name" gorm:"column:name"`
	Description    string `json:"description,omitempty" gorm:"column:description"`
	AuditFields    `gorm:"embedded"`
}

func (Role) TableName() string { return "roles" }

// ResourceInstance is the accounting row the quota enforcer counts.
type ResourceInstance struct {
	ID              string         `json:"id" gorm:"primaryKey;column:id"`
	ResourceID      string         `json:"resourceId" gorm:"column:resource_id;index:idx_instances_resource_scope"`
	LicensePolicyID string         `json:"licensePolicyId" gorm:"column:license_policy_id"`
	Scope           string         `json:"scope" gorm:"column:scope;index:idx_instances_resource_scope"`
	RefID           string         `json:"refId,omitempty" gorm:"column:ref_id"`
	Status          InstanceStatus `json:"status" gorm:"column:status"`
	Description     string         `json:"description,omitempty" gorm:"column:description"`
	AuditFields     `gorm:"embedded"`
}

func (ResourceInstance) TableName() string { return "resource_instances" }

// ResourceQuota caps instances for a (resource, scope) pair while active.
type ResourceQuota struct {
	ID              string    `json:"id" gorm:"primaryKey;column:id"`
	ResourceID      string    `json:"resourceId" gorm:"column:resource_id;index"`
	LicensePolicyID string    `json:"licensePolicyId" gorm:"column:license_policy_id"`
	Scope           string    `json:"scope" gorm:"column:scope"`
	MaxValue        int       `json:"maxValue" gorm:"column:max_value"`
	EffectiveAt     time.Time `json:"effectiveAt" gorm:"column:effective_at"`
	ExpiredAt       time.Time `json:"expiredAt" gorm:"column:expired_at"`
	AuditFields     `gorm:"embedded"`
}

func (ResourceQuota) TableName() string { return "resource_quotas" }

// GroupPrincipal records group membership.
type GroupPrincipal struct {
	GroupID     string `json:"groupId" gorm:"primaryKey;column:group_id"`
	PrincipalID string `json:"principalId" gorm:"primaryKey;column:principal_id"`
	AuditFields `gorm:"embedded"`
}

func (GroupPrincipal) TableName() string { return "group_principals" }

// RoleRoleable grants a role to a principal or a group within a validity
// window, optionally guarded by a constraint expression.
type RoleRoleable struct {
	RoleID       string       `json:"roleId" gorm:"primaryKey;column:role_id"`
	RoleableID   string       `json:"roleableId" gorm:"primaryKey;column:roleable_id"`
	RoleableType RoleableType `json:"roleableType" gorm:"primaryKey;column:roleable_type"`
	Constraints  string       `json:"constraints,omitempty" gorm:"column:constraints"`
	EffectiveAt  time.Time    `json:"effectiveAt" gorm:"column:effective_at"`
	ExpiredAt    time.Time    `json:"expiredAt" gorm:"column:expired_at"`
	AuditFields  `gorm:"embedded"`
}

func (RoleRoleable) TableName() string { return "role_roleables" }

// ClaimClaimable grants a claim to a principal, role or license policy.
// Scope is part of the key: the same claim may be granted to the same
// claimant under several scopes.
type ClaimClaimable struct {
	ClaimID       string        `json:"claimId" gorm:"primaryKey;column:claim_id"`
	ClaimableID   string        `json:"claimableId" gorm:"primaryKey;column:claimable_id"`
	ClaimableType ClaimableType `json:"claimableType" gorm:"primaryKey;column:claimable_type"`
	Scope         string        `json:"scope,omitempty" gorm:"primaryKey;column:scope"`
	Constraints   string        `json:"constraints,omitempty" gorm:"column:constraints"`
	EffectiveAt   time.Time     `json:"effectiveAt" gorm:"column:effective_at"`
	ExpiredAt     time.Time     `json:"expiredAt" gorm:"column:expired_at"`
	AuditFields   `gorm:"embedded"`
}

func (ClaimClaimable) TableName() string { return "claim_claimables" }

// AuditRecord is the append-only mutation trail.
type AuditRecord struct {
	ID        string      `json:"id" gorm:"primaryKey;column:id"`
	Message   string      `json:"message" gorm:"column:message"`
	Action    AuditAction `json:"action" gorm:"column:action"`
	Context   string      `json:"context,omitempty" gorm:"column:context"`
	CreatedBy string      `json:"createdBy,omitempty" gorm:"column:created_by"`
	CreatedAt time.Time   `json:"createdAt" gorm:"column:created_at"`
}

func (AuditRecord) TableName() string { return "audit_records" }
