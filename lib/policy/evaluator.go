// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy decides whether a commit is allowed to proceed. The
// evaluator checks each branch rule touched by the commit's changed
// paths against the lock flag and the two whitelists, consuming a
// one-time grant when that is what admits the actor.
package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/branchgate/branchgate/lib/branchrule"
)

// CommitEvent is an incoming commit to evaluate. Transient; nothing
// here is persisted.
type CommitEvent struct {
	// Actor is the committing user's identifier.
	Actor string

	// ChangedPaths are the repository paths touched by the commit.
	ChangedPaths []string
}

// Decision is the evaluation result. When Allowed is true, Messages
// holds one explanation per matched branch (or a single "no governed
// branch" note). When false, Messages ends with the explanation for
// the denying branch: exactly one in fail-fast mode, one per
// evaluated branch in aggregate mode.
type Decision struct {
	Allowed  bool
	Messages []string
}

// Message joins the per-branch messages into a single reply line.
func (d Decision) Message() string {
	switch len(d.Messages) {
	case 0:
		return ""
	case 1:
		return d.Messages[0]
	}
	joined := d.Messages[0]
	for _, message := range d.Messages[1:] {
		joined += "; " + message
	}
	return joined
}

// DenialMode controls how the evaluator aggregates across multiple
// matched branches.
type DenialMode int

const (
	// DenialFailFast stops at the first denying branch. Grants
	// consumed on branches evaluated earlier are not rolled back.
	DenialFailFast DenialMode = iota

	// DenialAggregate evaluates every matched branch and reports all
	// outcomes before denying.
	DenialAggregate
)

// RuleSource is the slice of the rule store the evaluator needs.
// *rulestore.Store satisfies it; tests may substitute a fake.
type RuleSource interface {
	RulesMatchingPaths(ctx context.Context, paths []string) ([]branchrule.Rule, error)
	RedeemDisposable(ctx context.Context, identifier, user string) (bool, error)
}

// Evaluator applies the lock-and-whitelist policy to commit events.
type Evaluator struct {
	source RuleSource
	mode   DenialMode
	logger *slog.Logger
}

// NewEvaluator creates an evaluator over the given rule source.
// Panics on nil arguments (programming error, not runtime data).
func NewEvaluator(source RuleSource, mode DenialMode, logger *slog.Logger) *Evaluator {
	if source == nil {
		panic("policy.Evaluator: rule source is required")
	}
	if logger == nil {
		panic("policy.Evaluator: logger is required")
	}
	return &Evaluator{source: source, mode: mode, logger: logger}
}

// Evaluate decides the commit. For each rule matching a changed path:
// an unlocked branch allows; a locked branch allows a permanent
// member; otherwise one disposable grant is redeemed if the actor
// holds one; otherwise the branch denies. Redemptions are final even
// when a branch evaluated later denies the commit; the overall
// verdict never unwinds per-branch consumption.
//
// Store failures abort evaluation and propagate; they are transport
// errors, not denials.
func (e *Evaluator) Evaluate(ctx context.Context, event CommitEvent) (Decision, error) {
	rules, err := e.source.RulesMatchingPaths(ctx, event.ChangedPaths)
	if err != nil {
		return Decision{}, fmt.Errorf("policy: matching rules: %w", err)
	}

	if len(rules) == 0 {
		return Decision{
			Allowed:  true,
			Messages: []string{"no governed branch touched, allowing commit"},
		}, nil
	}

	decision := Decision{Allowed: true}
	for _, rule := range rules {
		message, allowed, err := e.evaluateRule(ctx, rule, event.Actor)
		if err != nil {
			return Decision{}, err
		}
		decision.Messages = append(decision.Messages, message)
		if allowed {
			continue
		}

		decision.Allowed = false
		e.logger.Warn("commit denied",
			"branch", rule.Name,
			"user", event.Actor,
		)
		if e.mode == DenialFailFast {
			// Only the denying branch's message is reported.
			decision.Messages = []string{message}
			return decision, nil
		}
	}

	if decision.Allowed {
		e.logger.Info("commit allowed",
			"user", event.Actor,
			"branches", len(rules),
		)
	}
	return decision, nil
}

// evaluateRule checks one matched rule. Returns the per-branch
// explanation and whether the branch admits the actor.
func (e *Evaluator) evaluateRule(ctx context.Context, rule branchrule.Rule, actor string) (string, bool, error) {
	if !rule.Locked {
		return fmt.Sprintf("branch %q is unlocked, commit allowed", rule.Name), true, nil
	}

	if rule.IsPermanentMember(actor) {
		return fmt.Sprintf("user %q is on the permanent whitelist of branch %q", actor, rule.Name), true, nil
	}

	redeemed, err := e.source.RedeemDisposable(ctx, rule.Name, actor)
	if err != nil {
		return "", false, fmt.Errorf("policy: redeeming grant on %q: %w", rule.Name, err)
	}
	if redeemed {
		return fmt.Sprintf("user %q redeemed a one-time grant for branch %q", actor, rule.Name), true, nil
	}

	return fmt.Sprintf("commit denied: branch %q is locked and user %q is not whitelisted", rule.Name, actor), false, nil
}
