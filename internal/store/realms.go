// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/realmgate/realmgate/internal/domain"
)

// SaveRealm creates the realm, or updates its mutable fields when a realm
// with the same id already exists. Realm ids are caller-chosen names.
func (s *Store) SaveRealm(ctx context.Context, sc domain.SecurityContext, realm *domain.Realm) error {
	if realm.ID == "" {
		return E(KindCustom, "realm id is required")
	}

	var existing domain.Realm
	err := s.db.WithContext(ctx).First(&existing, "id = ?", realm.ID).Error
	switch {
	case err == nil:
		realm.AuditFields = existing.AuditFields
		stamp(&realm.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(realm).Error; err != nil {
			return translate(err, "failed to update realm %s", realm.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated realm %s", realm.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&realm.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(realm).Error; err != nil {
			return translate(err, "failed to create realm %s", realm.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created realm %s", realm.ID)
	default:
		return translate(err, "failed to load realm %s", realm.ID)
	}
	return nil
}

// GetRealm loads a realm by id.
func (s *Store) GetRealm(ctx context.Context, id string) (*domain.Realm, error) {
	var realm domain.Realm
	if err := s.db.WithContext(ctx).First(&realm, "id = ?", id).Error; err != nil {
		return nil, translate(err, "realm %s not found", id)
	}
	return &realm, nil
}

// ListRealms returns all realms.
func (s *Store) ListRealms(ctx context.Context) ([]domain.Realm, error) {
	var realms []domain.Realm
	if err := s.db.WithContext(ctx).Order("id").Find(&realms).Error; err != nil {
		return nil, translate(err, "failed to list realms")
	}
	return realms, nil
}

// DeleteRealm removes a realm. Dependent rows are left behind as weak
// references; resolution skips them.
func (s *Store) DeleteRealm(ctx context.Context, sc domain.SecurityContext, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Realm{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "failed to delete realm %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "realm %s not found", id)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted realm %s", id)
	return nil
}
