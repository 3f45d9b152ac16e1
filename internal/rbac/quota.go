// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package rbac

import (
	"context"
	"time"

	"github.com/realmgate/realmgate/internal/domain"
	"github.com/realmgate/realmgate/internal/metrics"
	"github.com/realmgate/realmgate/internal/store"
)

// inflightWindow bounds how long an INFLIGHT instance reserves quota.
// Older reservations are treated as abandoned and stop blocking new work.
const inflightWindow = time.Hour

// CreateInstance admits a resource instance against the active quota and
// persists it. The instance is stamped with the active license policy of
// the acting principal's organization. The quota check and the insert run
// in one transaction so concurrent creators cannot both slip under the
// cap.
func (e *Engine) CreateInstance(ctx context.Context, sc domain.SecurityContext, instance *domain.ResourceInstance) error {
	now := e.now()

	principal, err := e.store.GetPrincipal(ctx, sc.PrincipalID)
	if err != nil {
		return err
	}
	policies, err := e.store.ActiveLicensePolicies(ctx, principal.OrganizationID, now)
	if err != nil {
		return err
	}
	if len(policies) == 0 {
		return store.E(store.KindNotFound,
			"no active license policy for organization %s", principal.OrganizationID)
	}
	instance.LicensePolicyID = policies[0].ID

	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		quota, err := tx.ActiveQuota(ctx, instance.ResourceID, instance.Scope, now)
		if err != nil {
			if store.IsKind(err, store.KindNotFound) {
				return store.E(store.KindQuotaExceeded,
					"quota not found for resource %s scope %q", instance.ResourceID, instance.Scope)
			}
			return err
		}

		completed, err := tx.CountInstances(ctx, instance.ResourceID, instance.Scope, domain.StatusCompleted)
		if err != nil {
			return err
		}
		recent, err := tx.CountInstancesSince(ctx, instance.ResourceID, instance.Scope,
			domain.StatusInflight, now.Add(-inflightWindow))
		if err != nil {
			return err
		}

		if completed+recent >= int64(quota.MaxValue) {
			return store.E(store.KindQuotaExceeded,
				"quota %s exceeded for resource %s scope %q: %d of %d used",
				quota.ID, instance.ResourceID, instance.Scope, completed+recent, quota.MaxValue)
		}
		return tx.CreateResourceInstance(ctx, sc, instance)
	})
	if err != nil {
		if store.IsKind(err, store.KindQuotaExceeded) {
			metrics.QuotaRejected(instance.ResourceID, instance.Scope)
		}
		return err
	}
	return nil
}
