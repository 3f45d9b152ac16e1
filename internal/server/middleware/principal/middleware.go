// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package principal extracts the caller identity for every request. The
// X-Realm and X-Principal headers are authoritative; when both are absent
// and a shared secret is configured, a bearer token's realm and subject
// claims are used instead.
package principal

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/realmgate/realmgate/internal/domain"
)

// HeaderRealm and HeaderPrincipal identify the caller on every
// authenticated request.
const (
	HeaderRealm     = "X-Realm"
	HeaderPrincipal = "X-Principal"
)

type contextKey struct{}

var securityContextKey = contextKey{}

// FromContext returns the caller's security context. The second return is
// false when the request carried no identity.
func FromContext(ctx context.Context) (domain.SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey).(domain.SecurityContext)
	return sc, ok
}

// NewContext attaches a security context; exported for handler tests.
func NewContext(ctx context.Context, sc domain.SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey, sc)
}

// Middleware resolves the caller identity and stores it on the request
// context. Requests without identity pass through; handlers that require
// one reject them.
func Middleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			realm := r.Header.Get(HeaderRealm)
			principal := r.Header.Get(HeaderPrincipal)

			if (realm == "" || principal == "") && jwtSecret != "" {
				if tokenRealm, tokenSubject, ok := fromBearer(r, jwtSecret); ok {
					if realm == "" {
						realm = tokenRealm
					}
					if principal == "" {
						principal = tokenSubject
					}
				}
			}

			if realm != "" && principal != "" {
				ctx := NewContext(r.Context(), domain.NewSecurityContext(realm, principal))
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// fromBearer validates an HS256 bearer token and reads the realm and
// subject claims.
func fromBearer(r *http.Request, secret string) (realm, subject string, ok bool) {
	authz := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(authz, "Bearer ")
	if !found || raw == "" {
		return "", "", false
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", "", false
	}

	subject, _ = claims.GetSubject()
	realm, _ = claims["realm"].(string)
	return realm, subject, realm != "" && subject != ""
}
