// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP surface: the authorization check
// endpoint and CRUD over realms, organizations and their nested entities.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realmgate/realmgate/internal/rbac"
	"github.com/realmgate/realmgate/internal/server/middleware/logger"
	"github.com/realmgate/realmgate/internal/server/middleware/principal"
	"github.com/realmgate/realmgate/internal/store"
	"github.com/realmgate/realmgate/pkg/middleware"
)

// Handler holds the dependencies shared by all endpoints.
type Handler struct {
	store     *store.Store
	engine    *rbac.Engine
	logger    *slog.Logger
	jwtSecret string
}

// New creates the handler set.
func New(st *store.Store, engine *rbac.Engine, logger *slog.Logger, jwtSecret string) *Handler {
	return &Handler{
		store:     st,
		engine:    engine,
		logger:    logger.With("module", "api"),
		jwtSecret: jwtSecret,
	}
}

// Routes builds the HTTP routing table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	loggerMiddleware := logger.Middleware(h.logger)
	principalMiddleware := principal.Middleware(h.jwtSecret)

	routes := middleware.NewRouteBuilder(mux).With(loggerMiddleware)

	routes.HandleFunc("GET /health", h.Health)
	routes.HandleFunc("GET /ready", h.Ready)
	routes.Handle("GET /metrics", promhttp.Handler())

	authed := routes.Group(principalMiddleware)

	// Authorization check
	authed.HandleFunc("GET /check", h.Check)

	const api = "/api"

	// Realms and their claims
	authed.HandleFunc("POST "+api+"/realms", h.CreateRealm)
	authed.HandleFunc("GET "+api+"/realms", h.ListRealms)
	authed.HandleFunc("GET "+api+"/realms/{realm}", h.GetRealm)
	authed.HandleFunc("PUT "+api+"/realms/{realm}", h.UpdateRealm)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}", h.DeleteRealm)
	authed.HandleFunc("GET "+api+"/realms/{realm}/audit_records", h.ListAuditRecords)

	authed.HandleFunc("POST "+api+"/realms/{realm}/claims", h.CreateClaim)
	authed.HandleFunc("GET "+api+"/realms/{realm}/claims", h.ListClaims)
	authed.HandleFunc("GET "+api+"/realms/{realm}/claims/{claim}", h.GetClaim)
	authed.HandleFunc("PUT "+api+"/realms/{realm}/claims/{claim}", h.UpdateClaim)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}/claims/{claim}", h.DeleteClaim)

	// Claim association subpaths
	authed.HandleFunc("PUT "+api+"/realms/{realm}/claims/{claim}/principals/{principal}", h.GrantClaimToPrincipal)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}/claims/{claim}/principals/{principal}", h.RevokeClaimFromPrincipal)
	authed.HandleFunc("PUT "+api+"/realms/{realm}/claims/{claim}/roles/{role}", h.GrantClaimToRole)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}/claims/{claim}/roles/{role}", h.RevokeClaimFromRole)
	authed.HandleFunc("PUT "+api+"/realms/{realm}/claims/{claim}/licenses/{license}", h.GrantClaimToLicense)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}/claims/{claim}/licenses/{license}", h.RevokeClaimFromLicense)

	// Resources, quotas and instances
	authed.HandleFunc("POST "+api+"/realms/{realm}/resources", h.CreateResource)
	authed.HandleFunc("GET "+api+"/realms/{realm}/resources", h.ListResources)
	authed.HandleFunc("GET "+api+"/realms/{realm}/resources/{res}", h.GetResource)
	authed.HandleFunc("PUT "+api+"/realms/{realm}/resources/{res}", h.UpdateResource)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}/resources/{res}", h.DeleteResource)
	authed.HandleFunc("GET "+api+"/realms/{realm}/resources/{res}/claims", h.ListResourceClaims)

	authed.HandleFunc("POST "+api+"/realms/{realm}/resources/{res}/quota", h.CreateQuota)
	authed.HandleFunc("GET "+api+"/realms/{realm}/resources/{res}/quota", h.ListQuotas)
	authed.HandleFunc("GET "+api+"/realms/{realm}/resources/{res}/quota/{id}", h.GetQuota)
	authed.HandleFunc("PUT "+api+"/realms/{realm}/resources/{res}/quota/{id}", h.UpdateQuota)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}/resources/{res}/quota/{id}", h.DeleteQuota)

	authed.HandleFunc("POST "+api+"/realms/{realm}/resources/{res}/instances", h.CreateInstance)
	authed.HandleFunc("GET "+api+"/realms/{realm}/resources/{res}/instances", h.ListInstances)
	authed.HandleFunc("GET "+api+"/realms/{realm}/resources/{res}/instances/{id}", h.GetInstance)
	authed.HandleFunc("PUT "+api+"/realms/{realm}/resources/{res}/instances/{id}", h.UpdateInstance)
	authed.HandleFunc("DELETE "+api+"/realms/{realm}/resources/{res}/instances/{id}", h.DeleteInstance)

	// Organizations and their nested entities
	authed.HandleFunc("POST "+api+"/orgs", h.CreateOrganization)
	authed.HandleFunc("GET "+api+"/orgs", h.ListOrganizations)
	authed.HandleFunc("GET "+api+"/orgs/{org}", h.GetOrganization)
	authed.HandleFunc("PUT "+api+"/orgs/{org}", h.UpdateOrganization)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}", h.DeleteOrganization)

	authed.HandleFunc("POST "+api+"/orgs/{org}/groups", h.CreateGroup)
	authed.HandleFunc("GET "+api+"/orgs/{org}/groups", h.ListGroups)
	authed.HandleFunc("GET "+api+"/orgs/{org}/groups/{group}", h.GetGroup)
	authed.HandleFunc("PUT "+api+"/orgs/{org}/groups/{group}", h.UpdateGroup)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}/groups/{group}", h.DeleteGroup)
	authed.HandleFunc("PUT "+api+"/orgs/{org}/groups/{group}/principals/{principal}", h.AddGroupMember)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}/groups/{group}/principals/{principal}", h.RemoveGroupMember)

	authed.HandleFunc("POST "+api+"/orgs/{org}/roles", h.CreateRole)
	authed.HandleFunc("GET "+api+"/orgs/{org}/roles", h.ListRoles)
	authed.HandleFunc("GET "+api+"/orgs/{org}/roles/{role}", h.GetRole)
	authed.HandleFunc("PUT "+api+"/orgs/{org}/roles/{role}", h.UpdateRole)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}/roles/{role}", h.DeleteRole)
	authed.HandleFunc("PUT "+api+"/orgs/{org}/roles/{role}/principals/{principal}", h.GrantRoleToPrincipal)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}/roles/{role}/principals/{principal}", h.RevokeRoleFromPrincipal)
	authed.HandleFunc("PUT "+api+"/orgs/{org}/roles/{role}/groups/{group}", h.GrantRoleToGroup)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}/roles/{role}/groups/{group}", h.RevokeRoleFromGroup)

	authed.HandleFunc("POST "+api+"/orgs/{org}/principals", h.CreatePrincipal)
	authed.HandleFunc("GET "+api+"/orgs/{org}/principals", h.ListPrincipals)
	authed.HandleFunc("GET "+api+"/orgs/{org}/principals/{principal}", h.GetPrincipal)
	authed.HandleFunc("PUT "+api+"/orgs/{org}/principals/{principal}", h.UpdatePrincipal)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}/principals/{principal}", h.DeletePrincipal)

	authed.HandleFunc("POST "+api+"/orgs/{org}/licenses", h.CreateLicense)
	authed.HandleFunc("GET "+api+"/orgs/{org}/licenses", h.ListLicenses)
	authed.HandleFunc("GET "+api+"/orgs/{org}/licenses/{license}", h.GetLicense)
	authed.HandleFunc("PUT "+api+"/orgs/{org}/licenses/{license}", h.UpdateLicense)
	authed.HandleFunc("DELETE "+api+"/orgs/{org}/licenses/{license}", h.DeleteLicense)
	authed.HandleFunc("GET "+api+"/orgs/{org}/licenses/{license}/claims", h.ListLicenseClaims)

	return mux
}
