// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/realmgate/realmgate/internal/domain"
)

func TestSecondActiveLicensePolicyIsDuplicate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	require.NoError(t, st.SaveOrganization(ctx, sc, &domain.Organization{ID: "abc", Name: "ABC"}))

	first := domain.LicensePolicy{OrganizationID: "abc", Name: "Freemium"}
	require.NoError(t, st.SaveLicensePolicy(ctx, sc, &first))

	second := domain.LicensePolicy{OrganizationID: "abc", Name: "Paid"}
	err := st.SaveLicensePolicy(ctx, sc, &second)
	require.True(t, IsKind(err, KindDuplicate))

	active, err := st.ActiveLicensePolicies(ctx, "abc", time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, first.ID, active[0].ID)
}

func TestExpiredPolicyDoesNotBlockNewActive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()
	now := time.Now().UTC()

	expired := domain.LicensePolicy{
		OrganizationID: "abc",
		Name:           "Trial",
		EffectiveAt:    now.Add(-48 * time.Hour),
		ExpiredAt:      now.Add(-24 * time.Hour),
	}
	require.NoError(t, st.SaveLicensePolicy(ctx, sc, &expired))

	current := domain.LicensePolicy{OrganizationID: "abc", Name: "Paid"}
	require.NoError(t, st.SaveLicensePolicy(ctx, sc, &current))

	active, err := st.ActiveLicensePolicies(ctx, "abc", now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, current.ID, active[0].ID)

	all, err := st.ListLicensePolicies(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdatingPolicyKeepsSingleActiveInvariant(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()
	now := time.Now().UTC()

	first := domain.LicensePolicy{OrganizationID: "abc", Name: "Freemium"}
	require.NoError(t, st.SaveLicensePolicy(ctx, sc, &first))

	dormant := domain.LicensePolicy{
		OrganizationID: "abc",
		Name:           "Paid",
		EffectiveAt:    now.Add(24 * time.Hour),
		ExpiredAt:      domain.DefaultExpiry(),
	}
	require.NoError(t, st.SaveLicensePolicy(ctx, sc, &dormant))

	// Pulling the dormant policy's window over now would make two active.
	dormant.EffectiveAt = now.Add(-time.Hour)
	err := st.SaveLicensePolicy(ctx, sc, &dormant)
	require.True(t, IsKind(err, KindDuplicate))
}

func TestConcurrentActiveLicenseCreatesKeepOneActive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	require.NoError(t, st.SaveOrganization(ctx, sc, &domain.Organization{ID: "abc", Name: "ABC"}))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.SaveLicensePolicy(ctx, sc, &domain.LicensePolicy{
				OrganizationID: "abc",
				Name:           fmt.Sprintf("plan-%d", i),
			})
		}()
	}
	wg.Wait()

	active, err := st.ActiveLicensePolicies(ctx, "abc", time.Now().UTC())
	require.NoError(t, err)
	require.LessOrEqual(t, len(active), 1)
}

func TestLicensePolicyCannotChangeOrganization(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	policy := domain.LicensePolicy{ID: "pol-1", OrganizationID: "abc", Name: "Freemium"}
	require.NoError(t, st.SaveLicensePolicy(ctx, sc, &policy))

	moved := domain.LicensePolicy{ID: "pol-1", OrganizationID: "xyz", Name: "Freemium"}
	err := st.SaveLicensePolicy(ctx, sc, &moved)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot change organization")

	got, err := st.GetLicensePolicy(ctx, "abc", "pol-1")
	require.NoError(t, err)
	require.Equal(t, "abc", got.OrganizationID)
}

func TestGroupCannotChangeOrganization(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	group := domain.Group{ID: "tellers", OrganizationID: "abc", Name: "Tellers"}
	require.NoError(t, st.SaveGroup(ctx, sc, &group))

	moved := domain.Group{ID: "tellers", OrganizationID: "xyz", Name: "Tellers"}
	err := st.SaveGroup(ctx, sc, &moved)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot change organization")

	got, err := st.GetGroup(ctx, "abc", "tellers")
	require.NoError(t, err)
	require.Equal(t, "abc", got.OrganizationID)
}

func TestPrincipalCannotChangeOrganization(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	principal := domain.Principal{ID: "tom", OrganizationID: "abc", Username: "tom"}
	require.NoError(t, st.SavePrincipal(ctx, sc, &principal))

	moved := domain.Principal{ID: "tom", OrganizationID: "xyz", Username: "tom"}
	err := st.SavePrincipal(ctx, sc, &moved)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot change organization")
}

func TestGroupMembership(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sc := testSC()

	require.NoError(t, st.SaveGroup(ctx, sc, &domain.Group{ID: "tellers", OrganizationID: "abc", Name: "Tellers"}))
	require.NoError(t, st.SavePrincipal(ctx, sc, &domain.Principal{ID: "tom", OrganizationID: "abc", Username: "tom"}))

	require.NoError(t, st.AddGroupPrincipal(ctx, sc, "tellers", "tom"))

	// Duplicate membership rows are rejected.
	err := st.AddGroupPrincipal(ctx, sc, "tellers", "tom")
	require.True(t, IsKind(err, KindDuplicate))

	groups, err := st.GroupIDsForPrincipal(ctx, "tom")
	require.NoError(t, err)
	require.Equal(t, []string{"tellers"}, groups)

	members, err := st.PrincipalIDsForGroup(ctx, "tellers")
	require.NoError(t, err)
	require.Equal(t, []string{"tom"}, members)

	require.NoError(t, st.RemoveGroupPrincipal(ctx, sc, "tellers", "tom"))
	groups, err = st.GroupIDsForPrincipal(ctx, "tom")
	require.NoError(t, err)
	require.Empty(t, groups)
}
