// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/realmgate/realmgate/internal/api/models"
	"github.com/realmgate/realmgate/internal/domain"
	"github.com/realmgate/realmgate/internal/evaluator"
	"github.com/realmgate/realmgate/internal/rbac"
	"github.com/realmgate/realmgate/internal/server/middleware/principal"
	"github.com/realmgate/realmgate/internal/store"
)

type testEnv struct {
	t      *testing.T
	st     *store.Store
	router http.Handler
	sc     domain.SecurityContext
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	require.NoError(t, st.Migrate())

	eval, err := evaluator.New()
	require.NoError(t, err)
	engine := rbac.New(st, eval, logger)
	handler := New(st, engine, logger, "")

	return &testEnv{
		t:      t,
		st:     st,
		router: handler.Routes(),
		sc:     domain.NewSecurityContext("banking", "admin"),
	}
}

func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(principal.HeaderRealm, "banking")
	req.Header.Set(principal.HeaderPrincipal, "admin")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp models.APIResponse[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRealmCRUDOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/realms", models.RealmRequest{ID: "banking", Description: "retail"})
	require.Equal(t, http.StatusOK, rec.Code)
	realm := decodeData[domain.Realm](t, rec)
	require.Equal(t, "banking", realm.ID)

	rec = env.do(http.MethodGet, "/api/realms/banking", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/realms/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/realms/banking", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/api/realms/banking", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationFailureIsBadRequest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/realms", models.RealmRequest{Description: "missing id"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecondActiveLicenseIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.st.SaveOrganization(ctx, env.sc, &domain.Organization{ID: "abc", Name: "ABC"}))

	rec := env.do(http.MethodPost, "/api/orgs/abc/licenses", models.LicensePolicyRequest{Name: "Freemium"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/orgs/abc/licenses", models.LicensePolicyRequest{Name: "Paid"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/check?action=READ&resource=DepositAccount", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sc := env.sc

	require.NoError(t, env.st.SaveRealm(ctx, sc, &domain.Realm{ID: "banking"}))
	require.NoError(t, env.st.SaveOrganization(ctx, sc, &domain.Organization{ID: "bank-of-flakes", Name: "Bank of Flakes"}))
	require.NoError(t, env.st.SavePrincipal(ctx, sc, &domain.Principal{
		ID: "tom", OrganizationID: "bank-of-flakes", Username: "tom",
	}))
	require.NoError(t, env.st.SaveRole(ctx, sc, &domain.Role{
		ID: "teller", RealmID: "banking", OrganizationID: "bank-of-flakes", Name: "Teller",
	}))
	require.NoError(t, env.st.SaveResource(ctx, sc, &domain.Resource{
		RealmID: "banking", ResourceName: "DepositAccount",
	}))
	require.NoError(t, env.st.SaveClaim(ctx, sc, &domain.Claim{
		ID: "read-deposit", RealmID: "banking", ResourceID: "DepositAccount", Action: "(READ|UPDATE)",
	}))
	require.NoError(t, env.st.AddRoleGrant(ctx, sc, &domain.RoleRoleable{
		RoleID: "teller", RoleableID: "tom", RoleableType: domain.RoleablePrincipal,
	}))
	require.NoError(t, env.st.AddClaimGrant(ctx, sc, &domain.ClaimClaimable{
		ClaimID: "read-deposit", ClaimableID: "teller", ClaimableType: domain.ClaimableRole,
		Scope: "U.S.", Constraints: `employeeRegion == "Midwest"`,
	}))

	check := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/check?"+query, nil)
		req.Header.Set(principal.HeaderRealm, "banking")
		req.Header.Set(principal.HeaderPrincipal, "tom")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	rec := check("action=READ&resource=DepositAccount&scope=U.S.&employeeRegion=Midwest")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeData[models.CheckResponse](t, rec)
	require.Equal(t, "Allow", result.Effect)

	rec = check("action=READ&resource=DepositAccount&scope=U.S.&employeeRegion=Northeast")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = check("action=READ&resource=DepositAccount")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = check("resource=DepositAccount")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuotaOfZeroIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.st.SaveRealm(ctx, env.sc, &domain.Realm{ID: "banking"}))
	require.NoError(t, env.st.SaveResource(ctx, env.sc, &domain.Resource{
		ID: "Project", RealmID: "banking", ResourceName: "Project",
	}))

	rec := env.do(http.MethodPost, "/api/realms/banking/resources/Project/quota",
		models.ResourceQuotaRequest{Scope: "ABC Project", MaxValue: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	quota := decodeData[domain.ResourceQuota](t, rec)
	require.Zero(t, quota.MaxValue)

	rec = env.do(http.MethodPost, "/api/realms/banking/resources/Project/quota",
		models.ResourceQuotaRequest{Scope: "ABC Project", MaxValue: -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstanceCreationIsQuotaGated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sc := env.sc

	require.NoError(t, env.st.SaveRealm(ctx, sc, &domain.Realm{ID: "banking"}))
	require.NoError(t, env.st.SaveOrganization(ctx, sc, &domain.Organization{ID: "abc", Name: "ABC"}))
	require.NoError(t, env.st.SavePrincipal(ctx, sc, &domain.Principal{
		ID: "admin", OrganizationID: "abc", Username: "admin",
	}))
	require.NoError(t, env.st.SaveLicensePolicy(ctx, sc, &domain.LicensePolicy{
		ID: "abc-policy", OrganizationID: "abc", Name: "ABC Policy",
	}))
	require.NoError(t, env.st.SaveResource(ctx, sc, &domain.Resource{
		ID: "Project", RealmID: "banking", ResourceName: "Project",
	}))
	require.NoError(t, env.st.SaveResourceQuota(ctx, sc, &domain.ResourceQuota{
		ResourceID: "Project", Scope: "ABC Project", MaxValue: 1,
	}))

	body := models.ResourceInstanceRequest{Scope: "ABC Project", Status: "COMPLETED"}

	rec := env.do(http.MethodPost, "/api/realms/banking/resources/Project/instances", body)
	require.Equal(t, http.StatusOK, rec.Code)
	instance := decodeData[domain.ResourceInstance](t, rec)
	require.Equal(t, "abc-policy", instance.LicensePolicyID)

	rec = env.do(http.MethodPost, "/api/realms/banking/resources/Project/instances", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}
