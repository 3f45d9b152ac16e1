// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package domain defines the entity model shared by the store, the
// resolution engine and the API layer.
package domain

import "time"

// Effect is the outcome a claim produces when it matches.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// InstanceStatus tracks the lifecycle of a resource instance for quota
// accounting.
type InstanceStatus string

const (
	StatusInflight  InstanceStatus = "INFLIGHT"
	StatusPending   InstanceStatus = "PENDING"
	StatusFailed    InstanceStatus = "FAILED"
	StatusCompleted InstanceStatus = "COMPLETED"
	StatusUnknown   InstanceStatus = "UNKNOWN"
)

// ClaimableType discriminates the claimant side of a claim association.
type ClaimableType string

const (
	ClaimablePrincipal     ClaimableType = "Principal"
	ClaimableRole          ClaimableType = "Role"
	ClaimableLicensePolicy ClaimableType = "LicensePolicy"
)

// RoleableType discriminates the grantee side of a role association.
type RoleableType string

const (
	RoleablePrincipal RoleableType = "Principal"
	RoleableGroup     RoleableType = "Group"
)

// AuditAction classifies a mutation for the audit trail.
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
	AuditGet    AuditAction = "GET"
)

// Well-known action tokens. Claims usually carry regex alternations over
// these, e.g. "(CREATE|DELETE)".
const (
	ActionRead     = "READ"
	ActionView     = "VIEW"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionCreate   = "CREATE"
	ActionApprove  = "APPROVE"
	ActionSubmit   = "SUBMIT"
	ActionUpload   = "UPLOAD"
	ActionDownload = "DOWNLOAD"
	ActionBuild    = "BUILD"
	ActionExecute  = "EXECUTE"
)

// DefaultExpiry is the expiry stamped on association rows created without
// an explicit window end.
func DefaultExpiry() time.Time {
	return time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// SecurityContext identifies the caller of every operation. It travels as
// an explicit argument, never as process-global state.
type SecurityContext struct {
	RealmID     string
	PrincipalID string
	Properties  map[string]any
}

// NewSecurityContext creates a context for the given realm and principal.
func NewSecurityContext(realmID, principalID string) SecurityContext {
	return SecurityContext{
		RealmID:     realmID,
		PrincipalID: principalID,
		Properties:  make(map[string]any),
	}
}
