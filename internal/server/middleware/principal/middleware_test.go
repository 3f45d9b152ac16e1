// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package principal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/realmgate/realmgate/internal/domain"
)

func capture(t *testing.T, secret string, prepare func(*http.Request)) (domain.SecurityContext, bool) {
	t.Helper()
	var sc domain.SecurityContext
	var ok bool
	handler := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	prepare(req)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return sc, ok
}

func signToken(t *testing.T, secret, realm, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"realm": realm,
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHeadersIdentifyCaller(t *testing.T) {
	sc, ok := capture(t, "", func(req *http.Request) {
		req.Header.Set(HeaderRealm, "banking")
		req.Header.Set(HeaderPrincipal, "tom")
	})
	require.True(t, ok)
	require.Equal(t, "banking", sc.RealmID)
	require.Equal(t, "tom", sc.PrincipalID)
}

func TestMissingIdentityPassesThrough(t *testing.T) {
	_, ok := capture(t, "", func(req *http.Request) {})
	require.False(t, ok)
}

func TestBearerTokenFallback(t *testing.T) {
	const secret = "test-secret"
	sc, ok := capture(t, secret, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "banking", "tom"))
	})
	require.True(t, ok)
	require.Equal(t, "banking", sc.RealmID)
	require.Equal(t, "tom", sc.PrincipalID)
}

func TestHeadersTakePriorityOverToken(t *testing.T) {
	const secret = "test-secret"
	sc, ok := capture(t, secret, func(req *http.Request) {
		req.Header.Set(HeaderRealm, "banking")
		req.Header.Set(HeaderPrincipal, "alice")
		req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "other", "bob"))
	})
	require.True(t, ok)
	require.Equal(t, "banking", sc.RealmID)
	require.Equal(t, "alice", sc.PrincipalID)
}

func TestBadSignatureIsIgnored(t *testing.T) {
	_, ok := capture(t, "test-secret", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", "banking", "tom"))
	})
	require.False(t, ok)
}

func TestTokenIgnoredWithoutSecret(t *testing.T) {
	_, ok := capture(t, "", func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+signToken(t, "any", "banking", "tom"))
	})
	require.False(t, ok)
}
