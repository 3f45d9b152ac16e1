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

// SaveRole creates or updates a role. Updates refuse to move the role to
// another realm or organization.
func (s *Store) SaveRole(ctx context.Context, sc domain.SecurityContext, role *domain.Role) error {
	if role.RealmID == "" || role.OrganizationID == "" || role.Name == "" {
		return E(KindCustom, "role realm, organization and name are required")
	}
	if role.ID == "" {
		role.ID = newID()
		stamp(&role.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
			return translate(err, "failed to create role %s", role.Name)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created role %s (%s)", role.Name, role.ID)
		return nil
	}

	var existing domain.Role
	err := s.db.WithContext(ctx).First(&existing, "id = ?", role.ID).Error
	switch {
	case err == nil:
		if existing.RealmID != role.RealmID || existing.OrganizationID != role.OrganizationID {
			return E(KindCustom, "role %s cannot change realm or organization", role.ID)
		}
		role.AuditFields = existing.AuditFields
		stamp(&role.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(role).Error; err != nil {
			return translate(err, "failed to update role %s", role.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated role %s", role.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&role.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
			return translate(err, "failed to create role %s", role.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created role %s", role.ID)
	default:
		return translate(err, "failed to load role %s", role.ID)
	}
	return nil
}

// GetRole loads a role scoped to its organization.
func (s *Store) GetRole(ctx context.Context, orgID, id string) (*domain.Role, error) {
	var role domain.Role
	if err := s.db.WithContext(ctx).
		First(&role, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, translate(err, "role %s not found in organization %s", id, orgID)
	}
	return &role, nil
}

// ListRoles returns the roles of an organization.
func (s *Store) ListRoles(ctx context.Context, orgID string) ([]domain.Role, error) {
	var roles []domain.Role
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).Order("name").Find(&roles).Error; err != nil {
		return nil, translate(err, "failed to list roles for organization %s", orgID)
	}
	return roles, nil
}

// DeleteRole removes a role.
func (s *Store) DeleteRole(ctx context.Context, sc domain.SecurityContext, orgID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Role{}, "id = ? AND organization_id = ?", id, orgID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete role %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "role %s not found in organization %s", id, orgID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted role %s from organization %s", id, orgID)
	return nil
}

// AddRoleGrant inserts a role association row for a principal or group.
func (s *Store) AddRoleGrant(ctx context.Context, sc domain.SecurityContext, grant *domain.RoleRoleable) error {
	if grant.RoleID == "" || grant.RoleableID == "" || grant.RoleableType == "" {
		return E(KindCustom, "role grant key is incomplete")
	}
	if grant.EffectiveAt.IsZero() {
		grant.EffectiveAt = time.Now().UTC()
	}
	if grant.ExpiredAt.IsZero() {
		grant.ExpiredAt = domain.DefaultExpiry()
	}
	stamp(&grant.AuditFields, sc, true)
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return translate(err, "failed to grant role %s to %s %s",
			grant.RoleID, grant.RoleableType, grant.RoleableID)
	}
	s.audit(ctx, sc, domain.AuditCreate, "granted role %s to %s %s",
		grant.RoleID, grant.RoleableType, grant.RoleableID)
	return nil
}

// RemoveRoleGrant deletes a role association row.
func (s *Store) RemoveRoleGrant(ctx context.Context, sc domain.SecurityContext, roleID, roleableID string, roleableType domain.RoleableType) error {
	result := s.db.WithContext(ctx).
		Delete(&domain.RoleRoleable{}, "role_id = ? AND roleable_id = ? AND roleable_type = ?",
			roleID, roleableID, roleableType)
	if result.Error != nil {
		return translate(result.Error, "failed to revoke role %s from %s %s", roleID, roleableType, roleableID)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "role %s is not granted to %s %s", roleID, roleableType, roleableID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "revoked role %s from %s %s", roleID, roleableType, roleableID)
	return nil
}

// RoleGrantsFor returns the active role association rows for a principal
// or a group.
func (s *Store) RoleGrantsFor(ctx context.Context, roleableID string, roleableType domain.RoleableType, now time.Time) ([]domain.RoleRoleable, error) {
	var grants []domain.RoleRoleable
	err := windowActive(s.db.WithContext(ctx), now).
		Where("roleable_id = ? AND roleable_type = ?", roleableID, roleableType).
		Order("role_id").
		Find(&grants).Error
	if err != nil {
		return nil, translate(err, "failed to load role grants for %s %s", roleableType, roleableID)
	}
	return grants, nil
}
