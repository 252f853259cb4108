// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package branchrule

import "strings"

// SplitUsers parses a comma-joined whitelist column into a slice.
// Empty entries (from leading, trailing, or doubled commas) are
// dropped, and surrounding whitespace is trimmed from each entry.
// Order and duplicates are preserved: the disposable whitelist is a
// multiset.
func SplitUsers(column string) []string {
	if column == "" {
		return nil
	}
	var users []string
	for _, entry := range strings.Split(column, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			users = append(users, entry)
		}
	}
	return users
}

// JoinUsers renders a user slice back into the comma-joined column
// form. The inverse of [SplitUsers] for well-formed entries.
func JoinUsers(users []string) string {
	return strings.Join(users, ",")
}

// AddUnique appends user to the list unless an equal entry is already
// present. Returns the (possibly unchanged) list and whether an entry
// was added. Used for the permanent whitelist, which is a set.
func AddUnique(users []string, user string) ([]string, bool) {
	for _, existing := range users {
		if existing == user {
			return users, false
		}
	}
	return append(users, user), true
}

// RemoveOne removes the first occurrence of user from the list.
// Returns the new list and whether an occurrence was removed. Exactly
// one entry is removed per call; stacked one-time grants survive.
func RemoveOne(users []string, user string) ([]string, bool) {
	for i, existing := range users {
		if existing == user {
			return append(users[:i:i], users[i+1:]...), true
		}
	}
	return users, false
}

// SanitizeUserID normalizes a user identifier extracted from an
// @mention. A trailing display-name annotation in parentheses, either
// ASCII or fullwidth, as produced by chat clients rendering
// "@token(Display Name)", is dropped, and every remaining character
// outside [A-Za-z0-9_] is stripped. Returns "" when nothing survives.
func SanitizeUserID(raw string) string {
	for _, open := range []string{"(", "（"} {
		if i := strings.Index(raw, open); i >= 0 {
			raw = raw[:i]
		}
	}

	var b strings.Builder
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '_':
			b.WriteRune(c)
		}
	}
	return b.String()
}
