// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package gatecmd

import (
	"reflect"
	"testing"
)

func TestParseActions(t *testing.T) {
	grammar := DefaultGrammar()
	tests := []struct {
		name    string
		text    string
		action  Action
		branch  string
		targets []string
	}{
		{"lock english", "lock rel1", ActionLock, "rel1", nil},
		{"lock chinese", "锁库 rel1", ActionLock, "rel1", nil},
		{"lock short chinese", "锁 rel1", ActionLock, "rel1", nil},
		{"unlock english", "unlockall rel1", ActionUnlock, "rel1", nil},
		{"unlock chinese", "开闸 rel1", ActionUnlock, "rel1", nil},
		{"unlock alt chinese", "解锁 rel1", ActionUnlock, "rel1", nil},
		{"disposable english", "unlock rel1 @alice", ActionGrantDisposable, "rel1", []string{"alice"}},
		{"disposable chinese", "一次性 rel1 @alice", ActionGrantDisposable, "rel1", []string{"alice"}},
		{"permanent english", "permanent rel1 @alice", ActionGrantPermanent, "rel1", []string{"alice"}},
		{"permanent chinese", "永久 rel1 @alice", ActionGrantPermanent, "rel1", []string{"alice"}},
		{"multiple targets", "unlock rel1 @alice @bob", ActionGrantDisposable, "rel1", []string{"alice", "bob"}},
		{"display name mention", "unlock rel1 @v_zccgzhang(张匆匆)", ActionGrantDisposable, "rel1", []string{"v_zccgzhang"}},
		{"fullwidth paren mention", "unlock rel1 @v_zccgzhang（张匆匆）", ActionGrantDisposable, "rel1", []string{"v_zccgzhang"}},
		{"non-mention token skipped", "unlock rel1 alice @bob", ActionGrantDisposable, "rel1", []string{"bob"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cmd := grammar.Parse(test.text, "")
			if cmd.Action != test.action {
				t.Errorf("action = %v, want %v", cmd.Action, test.action)
			}
			if cmd.Branch != test.branch {
				t.Errorf("branch = %q, want %q", cmd.Branch, test.branch)
			}
			if !reflect.DeepEqual(cmd.Targets, test.targets) {
				t.Errorf("targets = %v, want %v", cmd.Targets, test.targets)
			}
		})
	}
}

func TestParseUnrecognized(t *testing.T) {
	grammar := DefaultGrammar()
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"unknown verb", "explode rel1"},
		{"verb alone", "lock"},
		{"branch is a mention", "lock @alice"},
		{"grant without targets", "unlock rel1"},
		{"permanent without targets", "permanent rel1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cmd := grammar.Parse(test.text, "")
			if cmd.Action != ActionUnrecognized {
				t.Errorf("action = %v, want ActionUnrecognized", cmd.Action)
			}
		})
	}
}

func TestParseStripsBotMention(t *testing.T) {
	grammar := DefaultGrammar()
	for _, text := range []string{
		"@svnbot lock rel1",
		"svnbot lock rel1",
		"  @svnbot  lock rel1",
	} {
		cmd := grammar.Parse(text, "svnbot")
		if cmd.Action != ActionLock || cmd.Branch != "rel1" {
			t.Errorf("Parse(%q) = %+v, want lock rel1", text, cmd)
		}
	}
}

func TestParseGrammarFile(t *testing.T) {
	source := `[
  // Verb table for a deployment that renames the lock verb.
  {"action": "lock", "verbs": ["freeze"]},
  {"action": "unlock", "verbs": ["thaw"]},
  {"action": "grant-disposable", "verbs": ["pass"]},
  {"action": "grant-permanent", "verbs": ["keep"]},
]`
	grammar, err := ParseGrammar([]byte(source))
	if err != nil {
		t.Fatalf("ParseGrammar: %v", err)
	}
	if cmd := grammar.Parse("freeze rel1", ""); cmd.Action != ActionLock {
		t.Errorf("freeze parsed as %v, want ActionLock", cmd.Action)
	}
	if cmd := grammar.Parse("lock rel1", ""); cmd.Action != ActionUnrecognized {
		t.Errorf("default verb still recognized after replacement: %v", cmd.Action)
	}
}

func TestParseGrammarRejectsUnknownAction(t *testing.T) {
	if _, err := ParseGrammar([]byte(`[{"action": "detonate", "verbs": ["x"]}]`)); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
