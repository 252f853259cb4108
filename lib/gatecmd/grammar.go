// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package gatecmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Action is the typed result of command parsing.
type Action int

const (
	// ActionUnrecognized is the catch-all for text that matches no
	// grammar rule. Rendered as a help reply, never an error.
	ActionUnrecognized Action = iota

	// ActionLock sets the branch lock flag.
	ActionLock

	// ActionUnlock clears the branch lock flag for everyone.
	ActionUnlock

	// ActionGrantDisposable adds one-time grants for the mentioned
	// users.
	ActionGrantDisposable

	// ActionGrantPermanent adds the mentioned users to the permanent
	// whitelist.
	ActionGrantPermanent
)

// String returns the canonical action name used in grammar files.
func (a Action) String() string {
	switch a {
	case ActionLock:
		return "lock"
	case ActionUnlock:
		return "unlock"
	case ActionGrantDisposable:
		return "grant-disposable"
	case ActionGrantPermanent:
		return "grant-permanent"
	default:
		return "unrecognized"
	}
}

// VerbRule maps a set of verb synonyms to one action. Synonyms are
// locale-specific tokens ("lock", "锁库") compared exactly against the
// first token of the command text.
type VerbRule struct {
	Action Action
	Verbs  []string
}

// Grammar is an ordered list of verb rules. Earlier rules win when a
// verb appears in more than one rule.
type Grammar struct {
	rules []VerbRule
}

// NewGrammar builds a grammar from the given rules. Returns an error
// when a rule has no verbs or an empty verb token.
func NewGrammar(rules []VerbRule) (*Grammar, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("gatecmd: grammar has no rules")
	}
	for _, rule := range rules {
		if len(rule.Verbs) == 0 {
			return nil, fmt.Errorf("gatecmd: rule for %s has no verbs", rule.Action)
		}
		for _, verb := range rule.Verbs {
			if verb == "" {
				return nil, fmt.Errorf("gatecmd: rule for %s has an empty verb", rule.Action)
			}
		}
	}
	return &Grammar{rules: rules}, nil
}

// DefaultGrammar returns the built-in verb table.
func DefaultGrammar() *Grammar {
	grammar, err := NewGrammar([]VerbRule{
		{Action: ActionLock, Verbs: []string{"lock", "锁库", "锁"}},
		{Action: ActionUnlock, Verbs: []string{"unlockall", "开闸", "解锁"}},
		{Action: ActionGrantDisposable, Verbs: []string{"unlock", "一次性"}},
		{Action: ActionGrantPermanent, Verbs: []string{"permanent", "永久"}},
	})
	if err != nil {
		panic("gatecmd: built-in grammar invalid: " + err.Error())
	}
	return grammar
}

// grammarFileRule is the on-disk form of one verb rule.
type grammarFileRule struct {
	Action string   `json:"action"`
	Verbs  []string `json:"verbs"`
}

// actionByName maps grammar-file action names to Action values.
var actionByName = map[string]Action{
	ActionLock.String():            ActionLock,
	ActionUnlock.String():          ActionUnlock,
	ActionGrantDisposable.String(): ActionGrantDisposable,
	ActionGrantPermanent.String():  ActionGrantPermanent,
}

// ParseGrammar parses a grammar from JSONC bytes (JSON extended with
// comments and trailing commas): an array of
// {"action": "lock", "verbs": ["lock", "锁库"]} objects, evaluated in
// file order.
func ParseGrammar(data []byte) (*Grammar, error) {
	var fileRules []grammarFileRule
	if err := json.Unmarshal(jsonc.ToJSON(data), &fileRules); err != nil {
		return nil, fmt.Errorf("gatecmd: parsing grammar: %w", err)
	}

	rules := make([]VerbRule, 0, len(fileRules))
	for _, fileRule := range fileRules {
		action, known := actionByName[fileRule.Action]
		if !known {
			return nil, fmt.Errorf("gatecmd: unknown action %q in grammar", fileRule.Action)
		}
		rules = append(rules, VerbRule{Action: action, Verbs: fileRule.Verbs})
	}
	return NewGrammar(rules)
}

// LoadGrammarFile reads and parses a JSONC grammar file.
func LoadGrammarFile(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gatecmd: reading %s: %w", path, err)
	}
	grammar, err := ParseGrammar(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return grammar, nil
}

// lookup returns the action for a verb token, or ActionUnrecognized.
func (g *Grammar) lookup(verb string) Action {
	for _, rule := range g.rules {
		for _, candidate := range rule.Verbs {
			if candidate == verb {
				return rule.Action
			}
		}
	}
	return ActionUnrecognized
}
