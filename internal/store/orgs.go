// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/realmgate/realmgate/internal/domain"
)

// SaveOrganization creates or updates a tenant.
func (s *Store) SaveOrganization(ctx context.Context, sc domain.SecurityContext, org *domain.Organization) error {
	if org.Name == "" {
		return E(KindCustom, "organization name is required")
	}
	if org.ID == "" {
		org.ID = newID()
		stamp(&org.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(org).Error; err != nil {
			return translate(err, "failed to create organization %s", org.Name)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created organization %s (%s)", org.Name, org.ID)
		return nil
	}

	var existing domain.Organization
	err := s.db.WithContext(ctx).First(&existing, "id = ?", org.ID).Error
	switch {
	case err == nil:
		org.AuditFields = existing.AuditFields
		stamp(&org.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(org).Error; err != nil {
			return translate(err, "failed to update organization %s", org.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated organization %s", org.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&org.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(org).Error; err != nil {
			return translate(err, "failed to create organization %s", org.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created organization %s", org.ID)
	default:
		return translate(err, "failed to load organization %s", org.ID)
	}
	return nil
}

// GetOrganization loads a tenant by id.
func (s *Store) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	var org domain.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, translate(err, "organization %s not found", id)
	}
	return &org, nil
}

// ListOrganizations returns all tenants.
func (s *Store) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	var orgs []domain.Organization
	if err := s.db.WithContext(ctx).Order("name").Find(&orgs).Error; err != nil {
		return nil, translate(err, "failed to list organizations")
	}
	return orgs, nil
}

// DeleteOrganization removes a tenant.
func (s *Store) DeleteOrganization(ctx context.Context, sc domain.SecurityContext, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Organization{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "failed to delete organization %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "organization %s not found", id)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted organization %s", id)
	return nil
}

// SaveLicensePolicy creates or updates an entitlement window. Creating a
// second policy that would be active alongside an existing one fails with
// Duplicate; exactly one active policy per organization is allowed.
// Updates refuse to move the policy to another organization.
func (s *Store) SaveLicensePolicy(ctx context.Context, sc domain.SecurityContext, policy *domain.LicensePolicy) error {
	if policy.OrganizationID == "" || policy.Name == "" {
		return E(KindCustom, "license policy organization and name are required")
	}
	now := time.Now().UTC()
	if policy.EffectiveAt.IsZero() {
		policy.EffectiveAt = now
	}
	if policy.ExpiredAt.IsZero() {
		policy.ExpiredAt = domain.DefaultExpiry()
	}

	// The active-policy check and the write share one transaction so
	// concurrent saves cannot both count zero and insert two active
	// policies.
	return s.Transaction(ctx, func(tx *Store) error {
		if policy.Active(now) {
			var active int64
			err := windowActive(tx.db.WithContext(ctx), now).
				Model(&domain.LicensePolicy{}).
				Where("organization_id = ? AND id <> ?", policy.OrganizationID, policy.ID).
				Count(&active).Error
			if err != nil {
				return translate(err, "failed to check active policies for organization %s", policy.OrganizationID)
			}
			if active > 0 {
				return E(KindDuplicate, "organization %s already has an active license policy", policy.OrganizationID)
			}
		}

		if policy.ID == "" {
			policy.ID = newID()
			stamp(&policy.AuditFields, sc, true)
			if err := tx.db.WithContext(ctx).Create(policy).Error; err != nil {
				return translate(err, "failed to create license policy %s", policy.Name)
			}
			tx.audit(ctx, sc, domain.AuditCreate, "created license policy %s for organization %s",
				policy.ID, policy.OrganizationID)
			return nil
		}

		var existing domain.LicensePolicy
		err := tx.db.WithContext(ctx).First(&existing, "id = ?", policy.ID).Error
		switch {
		case err == nil:
			if existing.OrganizationID != policy.OrganizationID {
				return E(KindCustom, "license policy %s cannot change organization", policy.ID)
			}
			policy.AuditFields = existing.AuditFields
			stamp(&policy.AuditFields, sc, false)
			if err := tx.db.WithContext(ctx).Save(policy).Error; err != nil {
				return translate(err, "failed to update license policy %s", policy.ID)
			}
			tx.warnStaleDependents(ctx, policy)
			tx.audit(ctx, sc, domain.AuditUpdate, "updated license policy %s", policy.ID)
		case errors.Is(err, gorm.ErrRecordNotFound):
			stamp(&policy.AuditFields, sc, true)
			if err := tx.db.WithContext(ctx).Create(policy).Error; err != nil {
				return translate(err, "failed to create license policy %s", policy.ID)
			}
			tx.audit(ctx, sc, domain.AuditCreate, "created license policy %s", policy.ID)
		default:
			return translate(err, "failed to load license policy %s", policy.ID)
		}
		return nil
	})
}

// warnStaleDependents flags quota rows that fall outside an updated policy
// window. The rows are retained; only a warning is logged.
func (s *Store) warnStaleDependents(ctx context.Context, policy *domain.LicensePolicy) {
	var stale int64
	err := s.db.WithContext(ctx).Model(&domain.ResourceQuota{}).
		Where("license_policy_id = ? AND (effective_at < ? OR expired_at > ?)",
			policy.ID, policy.EffectiveAt, policy.ExpiredAt).
		Count(&stale).Error
	if err != nil {
		s.logger.Warn("failed to check quota rows for updated policy", "policy", policy.ID, "error", err)
		return
	}
	if stale > 0 {
		s.logger.Warn("license policy updated with quota rows outside its window",
			"policy", policy.ID, "staleQuotas", stale)
	}
}

// GetLicensePolicy loads a policy scoped to its organization.
func (s *Store) GetLicensePolicy(ctx context.Context, orgID, id string) (*domain.LicensePolicy, error) {
	var policy domain.LicensePolicy
	if err := s.db.WithContext(ctx).
		First(&policy, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, translate(err, "license policy %s not found for organization %s", id, orgID)
	}
	return &policy, nil
}

// ListLicensePolicies returns all policies of an organization.
func (s *Store) ListLicensePolicies(ctx context.Context, orgID string) ([]domain.LicensePolicy, error) {
	var policies []domain.LicensePolicy
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).Order("effective_at").Find(&policies).Error; err != nil {
		return nil, translate(err, "failed to list license policies for organization %s", orgID)
	}
	return policies, nil
}

// ActiveLicensePolicies returns the policies of an organization whose
// window covers now, oldest first.
func (s *Store) ActiveLicensePolicies(ctx context.Context, orgID string, now time.Time) ([]domain.LicensePolicy, error) {
	var policies []domain.LicensePolicy
	err := windowActive(s.db.WithContext(ctx), now).
		Where("organization_id = ?", orgID).
		Order("effective_at").
		Find(&policies).Error
	if err != nil {
		return nil, translate(err, "failed to load active policies for organization %s", orgID)
	}
	return policies, nil
}

// DeleteLicensePolicy removes a policy from an organization.
func (s *Store) DeleteLicensePolicy(ctx context.Context, sc domain.SecurityContext, orgID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.LicensePolicy{}, "id = ? AND organization_id = ?", id, orgID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete license policy %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "license policy %s not found for organization %s", id, orgID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted license policy %s from organization %s", id, orgID)
	return nil
}
