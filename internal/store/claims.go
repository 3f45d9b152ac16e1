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

// SaveClaim creates or updates a claim in a realm.
func (s *Store) SaveClaim(ctx context.Context, sc domain.SecurityContext, claim *domain.Claim) error {
	if claim.RealmID == "" || claim.ResourceID == "" || claim.Action == "" {
		return E(KindCustom, "claim realm, resource and action are required")
	}
	if claim.Effect == "" {
		claim.Effect = domain.EffectAllow
	}
	if claim.ID == "" {
		claim.ID = newID()
		stamp(&claim.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(claim).Error; err != nil {
			return translate(err, "failed to create claim in realm %s", claim.RealmID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created claim %s action %q on resource %s",
			claim.ID, claim.Action, claim.ResourceID)
		return nil
	}

	var existing domain.Claim
	err := s.db.WithContext(ctx).First(&existing, "id = ? AND realm_id = ?", claim.ID, claim.RealmID).Error
	switch {
	case err == nil:
		claim.AuditFields = existing.AuditFields
		stamp(&claim.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(claim).Error; err != nil {
			return translate(err, "failed to update claim %s", claim.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated claim %s", claim.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&claim.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(claim).Error; err != nil {
			return translate(err, "failed to create claim %s", claim.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created claim %s", claim.ID)
	default:
		return translate(err, "failed to load claim %s", claim.ID)
	}
	return nil
}

// GetClaim loads a claim scoped to its realm.
func (s *Store) GetClaim(ctx context.Context, realmID, id string) (*domain.Claim, error) {
	var claim domain.Claim
	if err := s.db.WithContext(ctx).First(&claim, "id = ? AND realm_id = ?", id, realmID).Error; err != nil {
		return nil, translate(err, "claim %s not found in realm %s", id, realmID)
	}
	return &claim, nil
}

// ListClaims returns all claims of a realm ordered by id.
func (s *Store) ListClaims(ctx context.Context, realmID string) ([]domain.Claim, error) {
	var claims []domain.Claim
	if err := s.db.WithContext(ctx).
		Where("realm_id = ?", realmID).Order("id").Find(&claims).Error; err != nil {
		return nil, translate(err, "failed to list claims for realm %s", realmID)
	}
	return claims, nil
}

// ListClaimsByResource returns the claims of one resource in a realm.
func (s *Store) ListClaimsByResource(ctx context.Context, realmID, resourceID string) ([]domain.Claim, error) {
	var claims []domain.Claim
	if err := s.db.WithContext(ctx).
		Where("realm_id = ? AND resource_id = ?", realmID, resourceID).
		Order("id").Find(&claims).Error; err != nil {
		return nil, translate(err, "failed to list claims for resource %s", resourceID)
	}
	return claims, nil
}

// DeleteClaim removes a claim from a realm.
func (s *Store) DeleteClaim(ctx context.Context, sc domain.SecurityContext, realmID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Claim{}, "id = ? AND realm_id = ?", id, realmID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete claim %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "claim %s not found in realm %s", id, realmID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted claim %s from realm %s", id, realmID)
	return nil
}

// AddClaimGrant inserts a claim association row. Duplicate composite keys
// fail with Duplicate.
func (s *Store) AddClaimGrant(ctx context.Context, sc domain.SecurityContext, grant *domain.ClaimClaimable) error {
	if grant.ClaimID == "" || grant.ClaimableID == "" || grant.ClaimableType == "" {
		return E(KindCustom, "claim grant key is incomplete")
	}
	if grant.EffectiveAt.IsZero() {
		grant.EffectiveAt = time.Now().UTC()
	}
	if grant.ExpiredAt.IsZero() {
		grant.ExpiredAt = domain.DefaultExpiry()
	}
	stamp(&grant.AuditFields, sc, true)
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return translate(err, "failed to grant claim %s to %s %s",
			grant.ClaimID, grant.ClaimableType, grant.ClaimableID)
	}
	s.audit(ctx, sc, domain.AuditCreate, "granted claim %s to %s %s scope %q",
		grant.ClaimID, grant.ClaimableType, grant.ClaimableID, grant.Scope)
	return nil
}

// RemoveClaimGrant deletes a claim association row. An empty scope removes
// every scope of the grant.
func (s *Store) RemoveClaimGrant(ctx context.Context, sc domain.SecurityContext, claimID, claimableID string, claimableType domain.ClaimableType, scope string) error {
	q := s.db.WithContext(ctx).
		Where("claim_id = ? AND claimable_id = ? AND claimable_type = ?", claimID, claimableID, claimableType)
	if scope != "" {
		q = q.Where("scope = ?", scope)
	}
	result := q.Delete(&domain.ClaimClaimable{})
	if result.Error != nil {
		return translate(result.Error, "failed to revoke claim %s from %s %s", claimID, claimableType, claimableID)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "claim %s is not granted to %s %s", claimID, claimableType, claimableID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "revoked claim %s from %s %s", claimID, claimableType, claimableID)
	return nil
}

// ClaimGrantsFor returns the active claim association rows granted to one
// claimant, ordered by claim id for deterministic resolution.
func (s *Store) ClaimGrantsFor(ctx context.Context, claimableID string, claimableType domain.ClaimableType, now time.Time) ([]domain.ClaimClaimable, error) {
	var grants []domain.ClaimClaimable
	err := windowActive(s.db.WithContext(ctx), now).
		Where("claimable_id = ? AND claimable_type = ?", claimableID, claimableType).
		Order("claim_id, scope").
		Find(&grants).Error
	if err != nil {
		return nil, translate(err, "failed to load claim grants for %s %s", claimableType, claimableID)
	}
	return grants, nil
}
