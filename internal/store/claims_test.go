// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/realmgate/realmgate/internal/domain"
)

func TestSaveClaimDefaultsEffectToAllow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	claim := domain.Claim{RealmID: "banking", ResourceID: "DepositAccount", Action: "(READ|UPDATE)"}
	require.NoError(t, st.SaveClaim(ctx, sc, &claim))
	require.NotEmpty(t, claim.ID)

	got, err := st.GetClaim(ctx, "banking", claim.ID)
	require.NoError(t, err)
	require.Equal(t, domain.EffectAllow, got.Effect)
	require.Equal(t, "(READ|UPDATE)", got.Action)
}

func TestClaimGrantsAreTimeFiltered(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()
	now := time.Now().UTC()

	active := domain.ClaimClaimable{
		ClaimID:       "c1",
		ClaimableID:   "teller",
		ClaimableType: domain.ClaimableRole,
		Scope:         "U.S.",
	}
	require.NoError(t, st.AddClaimGrant(ctx, sc, &active))
	require.Equal(t, domain.DefaultExpiry(), active.ExpiredAt)

	expired := domain.ClaimClaimable{
		ClaimID:       "c2",
		ClaimableID:   "teller",
		ClaimableType: domain.ClaimableRole,
		EffectiveAt:   now.Add(-48 * time.Hour),
		ExpiredAt:     now.Add(-24 * time.Hour),
	}
	require.NoError(t, st.AddClaimGrant(ctx, sc, &expired))

	future := domain.ClaimClaimable{
		ClaimID:       "c3",
		ClaimableID:   "teller",
		ClaimableType: domain.ClaimableRole,
		EffectiveAt:   now.Add(24 * time.Hour),
		ExpiredAt:     domain.DefaultExpiry(),
	}
	require.NoError(t, st.AddClaimGrant(ctx, sc, &future))

	grants, err := st.ClaimGrantsFor(ctx, "teller", domain.ClaimableRole, now)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "c1", grants[0].ClaimID)
}

func TestSameClaimGrantedUnderTwoScopes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	basic := domain.ClaimClaimable{
		ClaimID:       "view-feature",
		ClaimableID:   "customer",
		ClaimableType: domain.ClaimableRole,
		Scope:         "UI::Flag::BasicReport",
	}
	require.NoError(t, st.AddClaimGrant(ctx, sc, &basic))

	advanced := domain.ClaimClaimable{
		ClaimID:       "view-feature",
		ClaimableID:   "customer",
		ClaimableType: domain.ClaimableRole,
		Scope:         "UI::Flag::AdvancedReport",
	}
	require.NoError(t, st.AddClaimGrant(ctx, sc, &advanced))

	// Re-adding an existing (claim, claimant, scope) row is a Duplicate.
	dup := domain.ClaimClaimable{
		ClaimID:       "view-feature",
		ClaimableID:   "customer",
		ClaimableType: domain.ClaimableRole,
		Scope:         "UI::Flag::BasicReport",
	}
	err := st.AddClaimGrant(ctx, sc, &dup)
	require.True(t, IsKind(err, KindDuplicate))

	grants, err := st.ClaimGrantsFor(ctx, "customer", domain.ClaimableRole, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, grants, 2)
}

func TestRemoveClaimGrantByScope(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()
	now := time.Now().UTC()

	for _, scope := range []string{"U.S.", "U.K."} {
		grant := domain.ClaimClaimable{
			ClaimID:       "c1",
			ClaimableID:   "teller",
			ClaimableType: domain.ClaimableRole,
			Scope:         scope,
		}
		require.NoError(t, st.AddClaimGrant(ctx, sc, &grant))
	}

	require.NoError(t, st.RemoveClaimGrant(ctx, sc, "c1", "teller", domain.ClaimableRole, "U.K."))
	grants, err := st.ClaimGrantsFor(ctx, "teller", domain.ClaimableRole, now)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "U.S.", grants[0].Scope)

	// Empty scope removes every remaining row.
	require.NoError(t, st.RemoveClaimGrant(ctx, sc, "c1", "teller", domain.ClaimableRole, ""))
	grants, err = st.ClaimGrantsFor(ctx, "teller", domain.ClaimableRole, now)
	require.NoError(t, err)
	require.Empty(t, grants)

	err = st.RemoveClaimGrant(ctx, sc, "c1", "teller", domain.ClaimableRole, "")
	require.True(t, IsKind(err, KindNotFound))
}

func TestRoleGrantsAreTimeFiltered(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()
	now := time.Now().UTC()

	require.NoError(t, st.AddRoleGrant(ctx, sc, &domain.RoleRoleable{
		RoleID:       "teller",
		RoleableID:   "tom",
		RoleableType: domain.RoleablePrincipal,
	}))
	require.NoError(t, st.AddRoleGrant(ctx, sc, &domain.RoleRoleable{
		RoleID:       "csr",
		RoleableID:   "tom",
		RoleableType: domain.RoleablePrincipal,
		EffectiveAt:  now.Add(-48 * time.Hour),
		ExpiredAt:    now.Add(-24 * time.Hour),
	}))

	grants, err := st.RoleGrantsFor(ctx, "tom", domain.RoleablePrincipal, now)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "teller", grants[0].RoleID)
}
