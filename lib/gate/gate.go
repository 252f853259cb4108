// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate classifies inbound webhook payloads and routes them to
// the commit policy evaluator or the admin command interpreter. It is
// transport-agnostic: the HTTP handler decodes the envelope and maps
// the outcome to a status code.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/branchgate/branchgate/lib/gatecmd"
	"github.com/branchgate/branchgate/lib/policy"
)

// ChatSender identifies the author of a chat message.
type ChatSender struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// ChatText carries the body of a chat message.
type ChatText struct {
	Content string `json:"content"`
}

// Envelope is the union of the two inbound payload shapes: version
// control webhook events and chat bot callbacks. Field presence
// decides which one arrived.
type Envelope struct {
	// Webhook event fields.
	UserName      string   `json:"user_name"`
	EventType     string   `json:"event_type"`
	OperationKind string   `json:"operation_kind"`
	Paths         []string `json:"paths"`

	// Chat callback fields.
	From       *ChatSender `json:"from"`
	WebhookURL string      `json:"webhook_url"`
	Text       *ChatText   `json:"text"`
}

// Kind is the classification of an envelope.
type Kind int

const (
	// KindUnknown matches neither payload shape.
	KindUnknown Kind = iota

	// KindCommit is a version control webhook event.
	KindCommit

	// KindAdmin is a chat bot callback carrying an admin command.
	KindAdmin
)

// Classify inspects field presence. Chat callbacks always carry the
// sender and a reply URL; webhook events always carry the acting user
// and the operation descriptors. Chat shape is checked first so a
// payload carrying both resolves as admin.
func (e *Envelope) Classify() Kind {
	if e.From != nil && e.WebhookURL != "" {
		return KindAdmin
	}
	if e.UserName != "" && e.OperationKind != "" && e.EventType != "" {
		return KindCommit
	}
	return KindUnknown
}

// Config holds gate construction parameters. All fields are required.
type Config struct {
	Evaluator   *policy.Evaluator
	Interpreter *gatecmd.Interpreter

	// PreCommitEventType is the event_type value that triggers policy
	// evaluation. Events of any other type are allowed through
	// unexamined, as are non-commit operations of the matching type.
	PreCommitEventType string

	Logger *slog.Logger
}

// Gate routes classified envelopes. Safe for concurrent use.
type Gate struct {
	evaluator      *policy.Evaluator
	interpreter    *gatecmd.Interpreter
	preCommitEvent string
	logger         *slog.Logger
}

// New creates a gate. Panics when a required field is missing.
func New(cfg Config) *Gate {
	if cfg.Evaluator == nil {
		panic("gate.New: Evaluator is required")
	}
	if cfg.Interpreter == nil {
		panic("gate.New: Interpreter is required")
	}
	if cfg.PreCommitEventType == "" {
		panic("gate.New: PreCommitEventType is required")
	}
	if cfg.Logger == nil {
		panic("gate.New: Logger is required")
	}
	return &Gate{
		evaluator:      cfg.Evaluator,
		interpreter:    cfg.Interpreter,
		preCommitEvent: cfg.PreCommitEventType,
		logger:         cfg.Logger,
	}
}

// HandleCommit evaluates a webhook event against the branch rules.
// Only pre-commit commit operations are examined; everything else is
// allowed so that post-commit notifications and tag operations flowing
// through the same webhook never block.
func (g *Gate) HandleCommit(ctx context.Context, envelope *Envelope) (policy.Decision, error) {
	if envelope.EventType != g.preCommitEvent || envelope.OperationKind != "commit" {
		g.logger.Debug("event passed through unexamined",
			"event_type", envelope.EventType,
			"operation_kind", envelope.OperationKind,
		)
		return policy.Decision{Allowed: true, Messages: []string{"Success"}}, nil
	}

	decision, err := g.evaluator.Evaluate(ctx, policy.CommitEvent{
		Actor:        envelope.UserName,
		ChangedPaths: envelope.Paths,
	})
	if err != nil {
		return policy.Decision{}, fmt.Errorf("gate: evaluating commit by %q: %w", envelope.UserName, err)
	}
	return decision, nil
}

// HandleAdmin runs the chat message through the command interpreter
// and returns the reply text. The sender's user ID is the requester
// for authorization.
func (g *Gate) HandleAdmin(ctx context.Context, envelope *Envelope) (string, error) {
	var text string
	if envelope.Text != nil {
		text = envelope.Text.Content
	}
	reply, err := g.interpreter.Execute(ctx, gatecmd.AdminCommand{
		Requester: envelope.From.UserID,
		Text:      text,
	})
	if err != nil {
		return "", fmt.Errorf("gate: executing admin command: %w", err)
	}
	return reply, nil
}
