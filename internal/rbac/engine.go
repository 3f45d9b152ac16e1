// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/realmgate/realmgate/internal/domain"
	"github.com/realmgate/realmgate/internal/evaluator"
	"github.com/realmgate/realmgate/internal/metrics"
	"github.com/realmgate/realmgate/internal/store"
)

// Engine combines the aggregator, the claim filter and the decision logic
// over one store and one expression evaluator.
type Engine struct {
	store  *store.Store
	eval   *evaluator.Evaluator
	logger *slog.Logger

	// now supplies the instant used for window filters and quota
	// accounting; replaceable in tests.
	now func() time.Time
}

// New creates an Engine.
func New(st *store.Store, eval *evaluator.Evaluator, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		eval:   eval,
		logger: logger.With("module", "rbac"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Check decides an authorization request. It returns Allow or Deny when a
// claim matches, and an Evaluation error when no entitled claim covers the
// request or a constraint fails to evaluate.
func (e *Engine) Check(ctx context.Context, req PermissionRequest) (domain.Effect, error) {
	started := time.Now()
	effect, err := e.check(ctx, req)
	metrics.ObserveDecision(effect, err, time.Since(started))
	return effect, err
}

func (e *Engine) check(ctx context.Context, req PermissionRequest) (domain.Effect, error) {
	sc := domain.SecurityContext{
		RealmID:     req.RealmID,
		PrincipalID: req.PrincipalID,
		Properties:  req.Context,
	}
	now := e.now()

	principal, orgClaims, err := e.hydratePrincipal(ctx, sc, req.RealmID, req.PrincipalID, now)
	if err != nil {
		return "", err
	}

	candidates := e.resourcesByClaims(principal, orgClaims, req)

	for _, cand := range candidates {
		matched, err := actionMatches(cand.grant.Claim.Action, req.Action)
		if err != nil {
			return "", store.WrapErr(store.KindEvaluation, err,
				"invalid action pattern %q on claim %s", cand.grant.Claim.Action, cand.grant.Claim.ID)
		}
		if !matched {
			continue
		}
		if cand.grant.Constraints != "" {
			ok, err := e.eval.Evaluate(cand.grant.Constraints, req.Context)
			if err != nil {
				return "", store.WrapErr(store.KindEvaluation, err,
					"failed to evaluate constraints for claim %s", cand.grant.Claim.ID)
			}
			if !ok {
				continue
			}
		}
		e.logger.Debug("authorization decided",
			"request", req.String(),
			"claim", cand.grant.Claim.ID,
			"source", cand.grant.Source,
			"effect", cand.grant.Claim.EffectOrDefault())
		return cand.grant.Claim.EffectOrDefault(), nil
	}

	return "", store.E(store.KindEvaluation,
		"no matching claim for %s; candidates:\n%s", req.String(), describeCandidates(candidates))
}

// resourcesByClaims collects the candidate (grant, resource) pairs for the
// request. The organization's claim layer acts as the license gate: when
// it never mentions the requested scope and carries no ambient realm
// entry, the candidate set is empty.
func (e *Engine) resourcesByClaims(principal *domain.Principal, orgClaims []domain.ClaimGrant, req PermissionRequest) []candidate {
	gateOpen := false
	for _, grant := range orgClaims {
		if grant.Source == domain.GrantRealm || grant.Scope == req.ResourceScope {
			gateOpen = true
			break
		}
	}
	if !gateOpen {
		return nil
	}

	var candidates []candidate
	for _, resource := range principal.Resources {
		if resource.ResourceName != req.ResourceName {
			continue
		}
		for _, grant := range principal.Claims {
			if grant.Claim.ResourceID == resource.ID && grant.Scope == req.ResourceScope {
				candidates = append(candidates, candidate{grant: grant, resource: resource})
			}
		}
	}
	return candidates
}

// actionMatches applies find-anywhere regex semantics of the claim action
// against the requested action.
func actionMatches(pattern, action string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(action), nil
}

// describeCandidates renders the considered candidates for the no-match
// diagnostic.
func describeCandidates(candidates []candidate) string {
	if len(candidates) == 0 {
		return "\t(none)\n"
	}
	var b strings.Builder
	for _, cand := range candidates {
		fmt.Fprintf(&b, "\t%s     %s     %s\n",
			cand.grant.Claim.Action, cand.grant.Constraints, cand.resource.ResourceName)
	}
	return b.String()
}

func formatSkip(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
