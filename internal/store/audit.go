// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/realmgate/realmgate/internal/domain"
)

// audit appends a record to the mutation trail. Failures are logged and
// swallowed so the triggering operation is never aborted.
func (s *Store) audit(ctx context.Context, sc domain.SecurityContext, action domain.AuditAction, format string, args ...any) {
	record := domain.AuditRecord{
		ID:        newID(),
		Message:   fmt.Sprintf(format, args...),
		Action:    action,
		Context:   fmt.Sprintf("realm=%s principal=%s", sc.RealmID, sc.PrincipalID),
		CreatedBy: sc.PrincipalID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logger.Warn("failed to write audit record",
			"action", record.Action, "message", record.Message, "error", err)
	}
}

// RecordAudit writes an audit entry on behalf of a caller outside the
// repository layer, for example the aggregator skipping a dangling grant.
func (s *Store) RecordAudit(ctx context.Context, sc domain.SecurityContext, action domain.AuditAction, message string) {
	s.audit(ctx, sc, action, "%s", message)
}

// ListAuditRecords returns the most recent audit entries, newest first.
func (s *Store) ListAuditRecords(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []domain.AuditRecord
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, translate(err, "failed to list audit records")
	}
	return records, nil
}
