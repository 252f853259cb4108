// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package gatecmd

import (
	"strings"

	"github.com/branchgate/branchgate/lib/branchrule"
)

// Command is a parsed administrative instruction. For
// ActionUnrecognized only Raw is meaningful.
type Command struct {
	Action  Action
	Branch  string
	Targets []string
	Raw     string
}

// Parse tokenizes text against the grammar. The expected shape is
// "verb branch [@user ...]". A leading mention of the bot itself
// (botMention, with or without the @ prefix) is stripped before
// parsing, matching how chat platforms deliver messages addressed to
// the bot.
//
// Target mentions must start with @; each is sanitized with
// [branchrule.SanitizeUserID], and the parenthetical display-name
// annotation some clients append ("@token(Display Name)") is dropped.
// Grant actions require at least one surviving target; lock and
// unlock take none and ignore any extra tokens. Anything that fails
// these shapes parses as ActionUnrecognized.
func (g *Grammar) Parse(text, botMention string) Command {
	raw := text
	text = strings.TrimSpace(text)

	if botMention != "" {
		for _, prefix := range []string{"@" + botMention, botMention} {
			if strings.HasPrefix(text, prefix) {
				text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
				break
			}
		}
	}

	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return Command{Action: ActionUnrecognized, Raw: raw}
	}

	action := g.lookup(tokens[0])
	if action == ActionUnrecognized {
		return Command{Action: ActionUnrecognized, Raw: raw}
	}

	branch := tokens[1]
	if strings.HasPrefix(branch, "@") {
		// A mention where the branch should be.
		return Command{Action: ActionUnrecognized, Raw: raw}
	}

	var targets []string
	for _, token := range tokens[2:] {
		if !strings.HasPrefix(token, "@") {
			continue
		}
		if target := branchrule.SanitizeUserID(token); target != "" {
			targets = append(targets, target)
		}
	}

	switch action {
	case ActionGrantDisposable, ActionGrantPermanent:
		if len(targets) == 0 {
			return Command{Action: ActionUnrecognized, Raw: raw}
		}
	}

	return Command{Action: action, Branch: branch, Targets: targets, Raw: raw}
}
