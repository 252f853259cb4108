// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/branchgate/branchgate/lib/branchrule"
	"github.com/branchgate/branchgate/lib/codec"
	"github.com/branchgate/branchgate/lib/rulestore"
	"github.com/branchgate/branchgate/lib/serve"
)

// ruleSummary is one row of the list-rules response.
type ruleSummary struct {
	Name            string `json:"name"`
	Alias           string `json:"alias,omitempty"`
	Locked          bool   `json:"locked"`
	PermanentCount  int    `json:"permanent_count"`
	DisposableCount int    `json:"disposable_count"`
}

// ruleDetail is the show-rule response.
type ruleDetail struct {
	Name       string   `json:"name"`
	Alias      string   `json:"alias,omitempty"`
	Locked     bool     `json:"locked"`
	Permanent  []string `json:"permanent,omitempty"`
	Disposable []string `json:"disposable,omitempty"`
}

// grantCount is one row of the grants response: a user and how many
// one-time grants they hold.
type grantCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// branchRequest is the request shape for actions addressing one rule.
type branchRequest struct {
	Branch string `json:"branch"`
}

// createRequest is the create-rule request shape.
type createRequest struct {
	Name   string `json:"name"`
	Alias  string `json:"alias"`
	Locked bool   `json:"locked"`
}

// registerStoreActions wires the rule store onto the admin socket.
func registerStoreActions(server *serve.SocketServer, store *rulestore.Store) {
	server.Handle("list-rules", func(ctx context.Context, _ []byte) (any, error) {
		rules, err := store.Rules(ctx)
		if err != nil {
			return nil, err
		}
		summaries := make([]ruleSummary, 0, len(rules))
		for _, rule := range rules {
			summaries = append(summaries, ruleSummary{
				Name:            rule.Name,
				Alias:           rule.Alias,
				Locked:          rule.Locked,
				PermanentCount:  len(rule.Permanent),
				DisposableCount: len(rule.Disposable),
			})
		}
		return summaries, nil
	})

	server.Handle("show-rule", func(ctx context.Context, raw []byte) (any, error) {
		rule, err := resolveBranch(ctx, store, raw)
		if err != nil {
			return nil, err
		}
		return ruleDetail{
			Name:       rule.Name,
			Alias:      rule.Alias,
			Locked:     rule.Locked,
			Permanent:  rule.Permanent,
			Disposable: rule.Disposable,
		}, nil
	})

	server.Handle("grants", func(ctx context.Context, raw []byte) (any, error) {
		rule, err := resolveBranch(ctx, store, raw)
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int)
		var order []string
		for _, user := range rule.Disposable {
			if counts[user] == 0 {
				order = append(order, user)
			}
			counts[user]++
		}
		result := make([]grantCount, 0, len(order))
		for _, user := range order {
			result = append(result, grantCount{User: user, Count: counts[user]})
		}
		return result, nil
	})

	server.Handle("create-rule", func(ctx context.Context, raw []byte) (any, error) {
		var request createRequest
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		if err := store.CreateRule(ctx, branchrule.Rule{
			Name:   request.Name,
			Alias:  request.Alias,
			Locked: request.Locked,
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})
}

// resolveBranch decodes a branchRequest and looks the rule up.
func resolveBranch(ctx context.Context, store *rulestore.Store, raw []byte) (branchrule.Rule, error) {
	var request branchRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return branchrule.Rule{}, fmt.Errorf("invalid request: %w", err)
	}
	if request.Branch == "" {
		return branchrule.Rule{}, fmt.Errorf("missing required field: branch")
	}
	return store.RuleByIdentifier(ctx, request.Branch)
}
