// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package gatecmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/branchgate/branchgate/lib/branchrule"
	"github.com/branchgate/branchgate/lib/rulestore"
)

// AdminCommand is an inbound administrative message. Transient.
type AdminCommand struct {
	// Requester is the message sender's user identifier.
	Requester string

	// Text is the raw message body.
	Text string
}

// Ledger is the slice of the rule store the interpreter needs.
// *rulestore.Store satisfies it.
type Ledger interface {
	RuleByIdentifier(ctx context.Context, identifier string) (branchrule.Rule, error)
	SetLocked(ctx context.Context, identifier string, locked bool) (bool, error)
	GrantPermanent(ctx context.Context, identifier, user string) error
	GrantDisposable(ctx context.Context, identifier, user string) error
}

// Config holds interpreter construction parameters.
type Config struct {
	// Ledger is the rule store handle. Required.
	Ledger Ledger

	// Grammar is the verb table. Defaults to DefaultGrammar.
	Grammar *Grammar

	// BotMention is the bot's own mention token, stripped from the
	// start of command text before parsing. Optional.
	BotMention string

	// GuardGrantPermanent requires the requester to already be a
	// permanent member of the target branch before granting permanent
	// membership, the same guard the other privileged commands carry.
	// Disable only for drop-in compatibility with legacy deployments
	// that left grant-permanent unguarded.
	GuardGrantPermanent bool

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Interpreter parses and executes administrative commands. Each
// Execute call is independent; no state is carried between commands.
type Interpreter struct {
	ledger     Ledger
	grammar    *Grammar
	botMention string
	guardGrant bool
	logger     *slog.Logger
}

// NewInterpreter creates an interpreter. Panics when Ledger or Logger
// is missing.
func NewInterpreter(cfg Config) *Interpreter {
	if cfg.Ledger == nil {
		panic("gatecmd.Interpreter: Ledger is required")
	}
	if cfg.Logger == nil {
		panic("gatecmd.Interpreter: Logger is required")
	}
	grammar := cfg.Grammar
	if grammar == nil {
		grammar = DefaultGrammar()
	}
	return &Interpreter{
		ledger:     cfg.Ledger,
		grammar:    grammar,
		botMention: cfg.BotMention,
		guardGrant: cfg.GuardGrantPermanent,
		logger:     cfg.Logger,
	}
}

// helpReply is the response to unrecognized text. A usage hint, not
// an error.
const helpReply = "Unrecognized command. Examples:\n" +
	"  lock rel1\n" +
	"  unlockall rel1\n" +
	"  unlock rel1 @v_user(Display Name)\n" +
	"  permanent rel1 @v_user"

// Execute parses the command text, authorizes the requester, and
// applies the mutation. The returned string is always a complete
// user-facing reply; a non-nil error means the underlying store
// failed and the transport should report a hard failure instead.
func (in *Interpreter) Execute(ctx context.Context, command AdminCommand) (string, error) {
	parsed := in.grammar.Parse(command.Text, in.botMention)
	if parsed.Action == ActionUnrecognized {
		return helpReply, nil
	}

	rule, err := in.ledger.RuleByIdentifier(ctx, parsed.Branch)
	if err != nil {
		if errors.Is(err, rulestore.ErrRuleNotFound) {
			return fmt.Sprintf("Branch %s does not exist.", parsed.Branch), nil
		}
		return "", fmt.Errorf("gatecmd: resolving branch %q: %w", parsed.Branch, err)
	}

	if in.requiresGuard(parsed.Action) && !rule.IsPermanentMember(command.Requester) {
		in.logger.Info("admin command rejected",
			"requester", command.Requester,
			"branch", rule.Name,
			"action", parsed.Action.String(),
		)
		return fmt.Sprintf("%s is not on the permanent whitelist of branch %s and may not run this command.",
			command.Requester, rule.Name), nil
	}

	in.logger.Info("admin command accepted",
		"requester", command.Requester,
		"branch", rule.Name,
		"action", parsed.Action.String(),
		"targets", len(parsed.Targets),
	)

	switch parsed.Action {
	case ActionLock:
		return in.executeSetLocked(ctx, parsed.Branch, true)
	case ActionUnlock:
		return in.executeSetLocked(ctx, parsed.Branch, false)
	case ActionGrantDisposable:
		return in.executeGrants(ctx, parsed, "one-time", in.ledger.GrantDisposable)
	case ActionGrantPermanent:
		return in.executeGrants(ctx, parsed, "permanent", in.ledger.GrantPermanent)
	default:
		return helpReply, nil
	}
}

// requiresGuard reports whether the action demands permanent-whitelist
// membership on the target branch. Lock, unlock, and one-time grants
// always do; permanent grants follow the GuardGrantPermanent setting.
func (in *Interpreter) requiresGuard(action Action) bool {
	if action == ActionGrantPermanent {
		return in.guardGrant
	}
	return true
}

func (in *Interpreter) executeSetLocked(ctx context.Context, branch string, locked bool) (string, error) {
	verb := "lock"
	state := "locked"
	if !locked {
		verb = "unlock"
		state = "unlocked"
	}

	changed, err := in.ledger.SetLocked(ctx, branch, locked)
	if err != nil {
		return "", fmt.Errorf("gatecmd: %s %q: %w", verb, branch, err)
	}
	if !changed {
		return fmt.Sprintf("Branch %s is already %s.", branch, state), nil
	}
	return fmt.Sprintf("Branch %s is now %s.", branch, state), nil
}

// executeGrants applies one grant per target and reports partial
// success: targets are independent, one failure never rolls back the
// others.
func (in *Interpreter) executeGrants(ctx context.Context, parsed Command, kind string, grant func(context.Context, string, string) error) (string, error) {
	var granted, failed []string
	for _, target := range parsed.Targets {
		err := grant(ctx, parsed.Branch, target)
		switch {
		case err == nil:
			granted = append(granted, target)
		case errors.Is(err, rulestore.ErrRuleNotFound):
			// The rule vanished between resolution and grant.
			failed = append(failed, target)
		default:
			return "", fmt.Errorf("gatecmd: granting %s to %q on %q: %w", kind, target, parsed.Branch, err)
		}
	}

	var reply strings.Builder
	if len(granted) > 0 {
		fmt.Fprintf(&reply, "Added %s whitelist user(s) %s to branch %s.",
			kind, strings.Join(granted, ", "), parsed.Branch)
	}
	if len(failed) > 0 {
		if reply.Len() > 0 {
			reply.WriteString(" ")
		}
		fmt.Fprintf(&reply, "Failed to add: %s.", strings.Join(failed, ", "))
	}
	return reply.String(), nil
}
