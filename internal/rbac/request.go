// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package rbac resolves principals, filters claims through license
// entitlements and decides authorization requests.
package rbac

import (
	"fmt"

	"github.com/realmgate/realmgate/internal/domain"
)

// PermissionRequest asks whether a principal may perform an action on a
// named resource under a scope, given a context bag for constraints.
type PermissionRequest struct {
	RealmID       string
	PrincipalID   string
	Action        string
	ResourceName  string
	ResourceScope string
	Context       map[string]any
}

// NewPermissionRequest builds a request from the caller's security context.
func NewPermissionRequest(sc domain.SecurityContext, action, resourceName, resourceScope string) PermissionRequest {
	return PermissionRequest{
		RealmID:       sc.RealmID,
		PrincipalID:   sc.PrincipalID,
		Action:        action,
		ResourceName:  resourceName,
		ResourceScope: resourceScope,
		Context:       sc.Properties,
	}
}

func (r PermissionRequest) String() string {
	return fmt.Sprintf("%s %s scope=%q realm=%s principal=%s",
		r.Action, r.ResourceName, r.ResourceScope, r.RealmID, r.PrincipalID)
}

// candidate pairs a claim grant with the resource it applies to during
// decision evaluation.
type candidate struct {
	grant    domain.ClaimGrant
	resource domain.Resource
}
