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

// SaveResource creates or updates a resource inside a realm. A new
// resource without an explicit id is keyed by its resource name.
func (s *Store) SaveResource(ctx context.Context, sc domain.SecurityContext, resource *domain.Resource) error {
	if resource.RealmID == "" || resource.ResourceName == "" {
		return E(KindCustom, "resource realm and name are required")
	}
	if resource.ID == "" {
		resource.ID = resource.ResourceName
	}

	var existing domain.Resource
	err := s.db.WithContext(ctx).
		First(&existing, "id = ? AND realm_id = ?", resource.ID, resource.RealmID).Error
	switch {
	case err == nil:
		resource.AuditFields = existing.AuditFields
		stamp(&resource.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(resource).Error; err != nil {
			return translate(err, "failed to update resource %s", resource.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated resource %s in realm %s", resource.ID, resource.RealmID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&resource.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(resource).Error; err != nil {
			return translate(err, "failed to create resource %s", resource.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created resource %s in realm %s", resource.ID, resource.RealmID)
	default:
		return translate(err, "failed to load resource %s", resource.ID)
	}
	return nil
}

// GetResource loads a resource scoped to its realm.
func (s *Store) GetResource(ctx context.Context, realmID, id string) (*domain.Resource, error) {
	var resource domain.Resource
	if err := s.db.WithContext(ctx).
		First(&resource, "id = ? AND realm_id = ?", id, realmID).Error; err != nil {
		return nil, translate(err, "resource %s not found in realm %s", id, realmID)
	}
	return &resource, nil
}

// ListResources returns all resources of a realm.
func (s *Store) ListResources(ctx context.Context, realmID string) ([]domain.Resource, error) {
	var resources []domain.Resource
	if err := s.db.WithContext(ctx).
		Where("realm_id = ?", realmID).Order("id").Find(&resources).Error; err != nil {
		return nil, translate(err, "failed to list resources for realm %s", realmID)
	}
	return resources, nil
}

// GetResourcesByIDs loads the realm resources named by ids, skipping
// missing entries.
func (s *Store) GetResourcesByIDs(ctx context.Context, realmID string, ids []string) ([]domain.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resources []domain.Resource
	if err := s.db.WithContext(ctx).
		Where("realm_id = ? AND id IN ?", realmID, ids).Order("id").Find(&resources).Error; err != nil {
		return nil, translate(err, "failed to load resources for realm %s", realmID)
	}
	return resources, nil
}

// DeleteResource removes a resource from a realm.
func (s *Store) DeleteResource(ctx context.Context, sc domain.SecurityContext, realmID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Resource{}, "id = ? AND realm_id = ?", id, realmID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete resource %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "resource %s not found in realm %s", id, realmID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted resource %s from realm %s", id, realmID)
	return nil
}

// SaveResourceQuota creates or updates a quota row for a resource. Updates
// refuse to move the quota to another resource.
func (s *Store) SaveResourceQuota(ctx context.Context, sc domain.SecurityContext, quota *domain.ResourceQuota) error {
	if quota.ResourceID == "" {
		return E(KindCustom, "quota resource id is required")
	}
	if quota.ExpiredAt.IsZero() {
		quota.ExpiredAt = domain.DefaultExpiry()
	}
	if quota.ID == "" {
		quota.ID = newID()
		stamp(&quota.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(quota).Error; err != nil {
			return translate(err, "failed to create quota for resource %s", quota.ResourceID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created quota %s for resource %s scope %q",
			quota.ID, quota.ResourceID, quota.Scope)
		return nil
	}

	var existing domain.ResourceQuota
	err := s.db.WithContext(ctx).First(&existing, "id = ?", quota.ID).Error
	switch {
	case err == nil:
		if existing.ResourceID != quota.ResourceID {
			return E(KindCustom, "quota %s cannot change resource", quota.ID)
		}
		quota.AuditFields = existing.AuditFields
		stamp(&quota.AuditFields, sc, false)
		if err := s.db.WithContext(ctx).Save(quota).Error; err != nil {
			return translate(err, "failed to update quota %s", quota.ID)
		}
		s.audit(ctx, sc, domain.AuditUpdate, "updated quota %s for resource %s", quota.ID, quota.ResourceID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		stamp(&quota.AuditFields, sc, true)
		if err := s.db.WithContext(ctx).Create(quota).Error; err != nil {
			return translate(err, "failed to create quota %s", quota.ID)
		}
		s.audit(ctx, sc, domain.AuditCreate, "created quota %s for resource %s", quota.ID, quota.ResourceID)
	default:
		return translate(err, "failed to load quota %s", quota.ID)
	}
	return nil
}

// GetResourceQuota loads a quota by id.
func (s *Store) GetResourceQuota(ctx context.Context, resourceID, id string) (*domain.ResourceQuota, error) {
	var quota domain.ResourceQuota
	if err := s.db.WithContext(ctx).
		First(&quota, "id = ? AND resource_id = ?", id, resourceID).Error; err != nil {
		return nil, translate(err, "quota %s not found for resource %s", id, resourceID)
	}
	return &quota, nil
}

// ListResourceQuotas returns all quota rows of a resource.
func (s *Store) ListResourceQuotas(ctx context.Context, resourceID string) ([]domain.ResourceQuota, error) {
	var quotas []domain.ResourceQuota
	if err := s.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).Order("id").Find(&quotas).Error; err != nil {
		return nil, translate(err, "failed to list quotas for resource %s", resourceID)
	}
	return quotas, nil
}

// ActiveQuota returns the quota for (resource, scope) whose window covers
// now, or NotFound.
func (s *Store) ActiveQuota(ctx context.Context, resourceID, scope string, now time.Time) (*domain.ResourceQuota, error) {
	var quota domain.ResourceQuota
	err := windowActive(s.db.WithContext(ctx), now).
		Where("resource_id = ? AND scope = ?", resourceID, scope).
		First(&quota).Error
	if err != nil {
		return nil, translate(err, "no active quota for resource %s scope %q", resourceID, scope)
	}
	return &quota, nil
}

// DeleteResourceQuota removes a quota row.
func (s *Store) DeleteResourceQuota(ctx context.Context, sc domain.SecurityContext, resourceID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.ResourceQuota{}, "id = ? AND resource_id = ?", id, resourceID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete quota %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "quota %s not found for resource %s", id, resourceID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted quota %s from resource %s", id, resourceID)
	return nil
}

// CreateResourceInstance inserts an accounting row. Quota admission happens
// in the enforcer; this is the raw insert used inside its transaction.
func (s *Store) CreateResourceInstance(ctx context.Context, sc domain.SecurityContext, instance *domain.ResourceInstance) error {
	if instance.ID == "" {
		instance.ID = newID()
	}
	if instance.Status == "" {
		instance.Status = domain.StatusUnknown
	}
	stamp(&instance.AuditFields, sc, true)
	if err := s.db.WithContext(ctx).Create(instance).Error; err != nil {
		return translate(err, "failed to create instance for resource %s", instance.ResourceID)
	}
	s.audit(ctx, sc, domain.AuditCreate, "created instance %s for resource %s scope %q",
		instance.ID, instance.ResourceID, instance.Scope)
	return nil
}

// UpdateResourceInstance updates the mutable fields of an existing row.
func (s *Store) UpdateResourceInstance(ctx context.Context, sc domain.SecurityContext, instance *domain.ResourceInstance) error {
	var existing domain.ResourceInstance
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", instance.ID).Error; err != nil {
		return translate(err, "instance %s not found", instance.ID)
	}
	instance.AuditFields = existing.AuditFields
	stamp(&instance.AuditFields, sc, false)
	if err := s.db.WithContext(ctx).Save(instance).Error; err != nil {
		return translate(err, "failed to update instance %s", instance.ID)
	}
	s.audit(ctx, sc, domain.AuditUpdate, "updated instance %s status %s", instance.ID, instance.Status)
	return nil
}

// GetResourceInstance loads an instance scoped to its resource.
func (s *Store) GetResourceInstance(ctx context.Context, resourceID, id string) (*domain.ResourceInstance, error) {
	var instance domain.ResourceInstance
	if err := s.db.WithContext(ctx).
		First(&instance, "id = ? AND resource_id = ?", id, resourceID).Error; err != nil {
		return nil, translate(err, "instance %s not found for resource %s", id, resourceID)
	}
	return &instance, nil
}

// ListResourceInstances returns all instances of a resource.
func (s *Store) ListResourceInstances(ctx context.Context, resourceID string) ([]domain.ResourceInstance, error) {
	var instances []domain.ResourceInstance
	if err := s.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).Order("created_at").Find(&instances).Error; err != nil {
		return nil, translate(err, "failed to list instances for resource %s", resourceID)
	}
	return instances, nil
}

// DeleteResourceInstance removes an accounting row.
func (s *Store) DeleteResourceInstance(ctx context.Context, sc domain.SecurityContext, resourceID, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.ResourceInstance{}, "id = ? AND resource_id = ?", id, resourceID)
	if result.Error != nil {
		return translate(result.Error, "failed to delete instance %s", id)
	}
	if result.RowsAffected == 0 {
		return E(KindNotFound, "instance %s not found for resource %s", id, resourceID)
	}
	s.audit(ctx, sc, domain.AuditDelete, "deleted instance %s from resource %s", id, resourceID)
	return nil
}

// CountInstances counts instances for (resource, scope, status).
func (s *Store) CountInstances(ctx context.Context, resourceID, scope string, status domain.InstanceStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.ResourceInstance{}).
		Where("resource_id = ? AND scope = ? AND status = ?", resourceID, scope, status).
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "failed to count instances for resource %s", resourceID)
	}
	return count, nil
}

// CountInstancesSince counts instances for (resource, scope, status)
// created at or after the given instant.
func (s *Store) CountInstancesSince(ctx context.Context, resourceID, scope string, status domain.InstanceStatus, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.ResourceInstance{}).
		Where("resource_id = ? AND scope = ? AND status = ? AND created_at >= ?", resourceID, scope, status, since).
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "failed to count recent instances for resource %s", resourceID)
	}
	return count, nil
}
