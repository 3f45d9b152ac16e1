// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/realmgate/realmgate/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	return st
}

func testSC() domain.SecurityContext {
	return domain.NewSecurityContext("banking", "tester")
}

func TestRealmRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	realm := domain.Realm{ID: "banking", Description: "retail banking"}
	require.NoError(t, st.SaveRealm(ctx, sc, &realm))

	got, err := st.GetRealm(ctx, "banking")
	require.NoError(t, err)
	require.Equal(t, "retail banking", got.Description)
	require.Equal(t, "tester", got.CreatedBy)
	require.False(t, got.CreatedAt.IsZero())

	realm.Description = "retail and commercial banking"
	require.NoError(t, st.SaveRealm(ctx, sc, &realm))

	got, err = st.GetRealm(ctx, "banking")
	require.NoError(t, err)
	require.Equal(t, "retail and commercial banking", got.Description)

	realms, err := st.ListRealms(ctx)
	require.NoError(t, err)
	require.Len(t, realms, 1)

	require.NoError(t, st.DeleteRealm(ctx, sc, "banking"))
	_, err = st.GetRealm(ctx, "banking")
	require.True(t, IsKind(err, KindNotFound))
}

func TestDeleteMissingRealmIsNotFound(t *testing.T) {
	st := newTestStore(t)

	err := st.DeleteRealm(context.Background(), testSC(), "nope")
	require.True(t, IsKind(err, KindNotFound))
}

func TestMutationsLeaveAuditTrail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	require.NoError(t, st.SaveRealm(ctx, sc, &domain.Realm{ID: "banking"}))
	require.NoError(t, st.DeleteRealm(ctx, sc, "banking"))

	records, err := st.ListAuditRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	actions := make(map[domain.AuditAction]bool)
	for _, record := range records {
		require.Equal(t, "tester", record.CreatedBy)
		actions[record.Action] = true
	}
	require.True(t, actions[domain.AuditCreate])
	require.True(t, actions[domain.AuditDelete])
}

func TestTransactionRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	err := st.Transaction(ctx, func(tx *Store) error {
		if err := tx.SaveRealm(ctx, sc, &domain.Realm{ID: "banking"}); err != nil {
			return err
		}
		return E(KindCustom, "boom")
	})
	require.Error(t, err)

	_, err = st.GetRealm(ctx, "banking")
	require.True(t, IsKind(err, KindNotFound))
}

func TestErrorKinds(t *testing.T) {
	err := E(KindQuotaExceeded, "quota %s exhausted", "q1")
	require.True(t, IsKind(err, KindQuotaExceeded))
	require.Equal(t, KindQuotaExceeded, KindOf(err))
	require.Contains(t, err.Error(), "q1")

	require.Equal(t, KindCustom, KindOf(io.EOF))
	require.False(t, IsKind(nil, KindNotFound))
}
