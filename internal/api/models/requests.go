// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package models

import "time"

// RealmRequest creates or updates a realm.
type RealmRequest struct {
	ID          string `json:"id" validate:"required"`
	Description string `json:"description,omitempty"`
}

// ResourceRequest creates or updates a resource in a realm.
type ResourceRequest struct {
	ID               string `json:"id,omitempty"`
	ResourceName     string `json:"resourceName" validate:"required"`
	Description      string `json:"description,omitempty"`
	AllowableActions string `json:"allowableActions,omitempty"`
}

// ClaimRequest creates or updates a claim.
type ClaimRequest struct {
	ID          string `json:"id,omitempty"`
	ResourceID  string `json:"resourceId" validate:"required"`
	Action      string `json:"action" validate:"required"`
	Effect      string `json:"effect,omitempty" validate:"omitempty,oneof=Allow Deny"`
	Description string `json:"description,omitempty"`
}

// OrganizationRequest creates or updates a tenant.
type OrganizationRequest struct {
	ID          string `json:"id,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Name        string `json:"name" validate:"required"`
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
	Description string `json:"description,omitempty"`
}

// LicensePolicyRequest creates or updates an entitlement window.
type LicensePolicyRequest struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description,omitempty"`
	EffectiveAt *time.Time `json:"effectiveAt,omitempty"`
	ExpiredAt   *time.Time `json:"expiredAt,omitempty"`
}

// PrincipalRequest creates or updates an identity.
type PrincipalRequest struct {
	ID          string `json:"id,omitempty"`
	Username    string `json:"username" validate:"required"`
	Description string `json:"description,omitempty"`
}

// GroupRequest creates or updates a group.
type GroupRequest struct {
	ID          string `json:"id,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// RoleRequest creates or updates a role. RealmID names the realm the role
// grants claims in.
type RoleRequest struct {
	ID          string `json:"id,omitempty"`
	RealmID     string `json:"realmId" validate:"required"`
	ParentID    string `json:"parentId,omitempty"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// ResourceQuotaRequest creates or updates a quota row.
type ResourceQuotaRequest struct {
	ID              string     `json:"id,omitempty"`
	LicensePolicyID string     `json:"licensePolicyId,omitempty"`
	Scope           string     `json:"scope,omitempty"`
	MaxValue        int        `json:"maxValue" validate:"min=0"`
	EffectiveAt     *time.Time `json:"effectiveAt,omitempty"`
	ExpiredAt       *time.Time `json:"expiredAt,omitempty"`
}

// ResourceInstanceRequest creates an accounting row; creation is gated by
// the quota enforcer.
type ResourceInstanceRequest struct {
	Scope       string `json:"scope,omitempty"`
	RefID       string `json:"refId,omitempty"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=INFLIGHT PENDING FAILED COMPLETED UNKNOWN"`
	Description string `json:"description,omitempty"`
}
