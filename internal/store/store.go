// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists the entity model and exposes typed read APIs used
// by the aggregator, the decision engine and the quota enforcer.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/realmgate/realmgate/internal/domain"
)

// Store wraps the database handle. All repository methods hang off it so a
// transaction-bound copy can be substituted transparently.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the database named by databaseURL and returns a Store.
// The URL is a sqlite DSN (a file path, optionally with query options).
func Open(databaseURL string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", databaseURL, err)
	}
	return &Store{db: db, logger: logger.With("module", "store")}, nil
}

// Migrate creates or updates the schema for every entity table.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&domain.Realm{},
		&domain.Resource{},
		&domain.Claim{},
		&domain.Organization{},
		&domain.LicensePolicy{},
		&domain.Principal{},
		&domain.Group{},
		&domain.Role{},
		&domain.ResourceInstance{},
		&domain.ResourceQuota{},
		&domain.GroupPrincipal{},
		&domain.RoleRoleable{},
		&domain.ClaimClaimable{},
		&domain.AuditRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Transaction runs fn against a Store bound to a database transaction.
// The quota enforcer relies on this for its check-then-insert path.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}

// newID returns a fresh hyphenated UUID for entity rows.
func newID() string { return uuid.NewString() }

// stamp fills the audit columns on create or update.
func stamp(f *domain.AuditFields, sc domain.SecurityContext, create bool) {
	now := time.Now().UTC()
	if create {
		f.CreatedBy = sc.PrincipalID
		f.CreatedAt = now
	}
	f.UpdatedBy = sc.PrincipalID
	f.UpdatedAt = now
}

// windowActive composes the effective/expired predicate used on
// association and entitlement rows.
func windowActive(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("effective_at <= ? AND expired_at >= ?", now, now)
}
