// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/realmgate/realmgate/internal/domain"
)

// SavePrincipal creates or updates an identity. Updates refuse to move the
// principal to another organization.
func (s *Store) SavePrincipal(ctx context.Context, sc domain.SecurityContext, principal *domain.Principal) error {
	if principal.OrganizationID == "" || principal.Username == "" {
		return E(KindCustom, "principal organization and username are required")
	}
	if principal.ID == "" {
		principal.ID = newID()
		stamp(&principal.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(principal).Error; err != nil {
			return translate(err, "failed to create principal %s", principal.Username)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created principal %s (%s)", principal.Username, principal.ID)
		return nil
	}

	var existing domain.Principal
	err := s.db.WithContext(ctx).First(&existing, "id = ?", principal.ID).Error
	switch {
	case err == nil:
		if existing.OrganizationID != principal.OrganizationID {
			return E(KindCustom, "principal %s cannot change organization", principal.ID)
		}
		principal.AuditFields = existing.AuditFields
		stamp(&principal.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(principal).Error; err != nil {
			return translate(err, "failed to update principal %s", principal.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated principal %s", principal.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&principal.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(principal).Error; err != nil {
			return translate(err, "failed to create principal %s", principal.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created principal %s", principal.ID)
	default:
		return translate(err, "failed to load principal %s", principal.ID)
	}
	return nil
}

// GetPrincipal loads an identity by id.
func (s *Store) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	var principal domain.Principal
	if err := s.db.WithContext(ctx).First(&principal, "id = ?", id).Error; err != nil {
		return nil, translate(err, "principal %s not found", id)
	}
	return &principal, nil
}

// ListPrincipals returns the identities of an organization.
func (s *Store) ListPrincipals(ctx context.Context, orgID string) ([]domain.Principal, error) {
	var principals []domain.Principal
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).Order("username").Find(&principals).Error; err != nil {
		return nil, translate(err, "failed to list principals for organization %s", orgID)
	}
	return principals, nil
}

// DeletePrincipal removes an identity.
func (s *Store) DeletePrincipal(ctx context.Context, sc domain.SecurityContext, orgID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Principal{}, "id = ? AND organization_id = ?", id, orgID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete principal %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "principal %s not found in organization %s", id, orgID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted principal %s from organization %s", id, orgID)
	return nil
}

// SaveGroup creates or updates a group. Updates refuse to move the group
// to another organization.
func (s *Store) SaveGroup(ctx context.Context, sc domain.SecurityContext, group *domain.Group) error {
	if group.OrganizationID == "" || group.Name == "" {
		return E(KindCustom, "group organization and name are required")
	}
	if group.ID == "" {
		group.ID = newID()
		stamp(&group.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
			return translate(err, "failed to create group %s", group.Name)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created group %s (%s)", group.Name, group.ID)
		return nil
	}

	var existing domain.Group
	err := s.db.WithContext(ctx).First(&existing, "id = ?", group.ID).Error
	switch {
	case err == nil:
		if existing.OrganizationID != group.OrganizationID {
			return E(KindCustom, "group %s cannot change organization", group.ID)
		}
		group.AuditFields = existing.AuditFields
		stamp(&group.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(group).Error; err != nil {
			return translate(err, "failed to update group %s", group.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated group %s", group.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&group.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
			return translate(err, "failed to create group %s", group.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created group %s", group.ID)
	default:
		return translate(err, "failed to load group %s", group.ID)
	}
	return nil
}

// GetGroup loads a group scoped to its organization.
func (s *Store) GetGroup(ctx context.Context, orgID, id string) (*domain.Group, error) {
	var group domain.Group
	if err := s.db.WithContext(ctx).
		First(&group, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, translate(err, "group %s not found in organization %s", id, orgID)
	}
	return &group, nil
}

// ListGroups returns the groups of an organization.
func (s *Store) ListGroups(ctx context.Context, orgID string) ([]domain.Group, error) {
	var groups []domain.Group
	if err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).Order("name").Find(&groups).Error; err != nil {
		return nil, translate(err, "failed to list groups for organization %s", orgID)
	}
	return groups, nil
}

// DeleteGroup removes a group.
func (s *Store) DeleteGroup(ctx context.Context, sc domain.SecurityContext, orgID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Group{}, "id = ? AND organization_id = ?", id, orgID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete group %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "group %s not found in organization %s", id, orgID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted group %s from organization %s", id, orgID)
	return nil
}

// AddGroupPrincipal records a group membership.
func (s *Store) AddGroupPrincipal(ctx context.Context, sc domain.SecurityContext, groupID, principalID string) error {
	membership := domain.GroupPrincipal{GroupID: groupID, PrincipalID: principalID}
	stamp(&membership.AuditFields, sc, true)
	if err := s.db.WithContext(ctx).Create(&membership).Error; err != nil {
		return translate(err, "failed to add principal %s to group %s", principalID, groupID)
	}
	s.audit(ctx, sc, domain.AuditCreate, "added principal %s to group %s", principalID, groupID)
	return nil
}

// RemoveGroupPrincipal deletes a group membership.
func (s *Store) RemoveGroupPrincipal(ctx context.Context, sc domain.SecurityContext, groupID, principalID string) error {
	result := s.db.WithContext(ctx).
		Delete(&domain.GroupPrincipal{}, "group_id = ? AND principal_id = ?", groupID, principalID)
	if result.Error != nil {
		return translate(result.Error, "failed to remove principal %s from group %s", principalID, groupID)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "principal %s is not a member of group %s", principalID, groupID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "removed principal %s from group %s", principalID, groupID)
	return nil
}

// GroupIDsForPrincipal returns the ids of groups the principal belongs to.
func (s *Store) GroupIDsForPrincipal(ctx context.Context, principalID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.GroupPrincipal{}).
		Where("principal_id = ?", principalID).
		Order("group_id").
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, translate(err, "failed to load groups for principal %s", principalID)
	}
	return ids, nil
}

// PrincipalIDsForGroup returns the member ids of a group.
func (s *Store) PrincipalIDsForGroup(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&domain.GroupPrincipal{}).
		Where("group_id = ?", groupID).
		Order("principal_id").
		Pluck("principal_id", &ids).Error
	if err != nil {
		return nil, translate(err, "failed to load members for group %s", groupID)
	}
	return ids, nil
}
