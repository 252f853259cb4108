// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package branchrule

import "strings"

// Rule is the governance record for one protected branch. Name is the
// canonical identifier and is never empty. Alias is a secondary
// identifier used interchangeably with Name in lookups; it may be
// empty, in which case only Name matches.
type Rule struct {
	// ID is the database rowid. Zero for rules not yet persisted.
	ID int64

	Name  string
	Alias string

	// Locked gates commits: when true, only whitelisted users may
	// write to the branch.
	Locked bool

	// Permanent is the durable whitelist. Membership never expires
	// and duplicates are not stored.
	Permanent []string

	// Disposable is the one-time grant ledger. Each occurrence is
	// redeemable exactly once; the same user may appear multiple
	// times (stacked grants).
	Disposable []string
}

// MatchesPath reports whether a changed path touches this rule's
// branch: the path contains the rule's name, or its alias when the
// alias is non-empty, as a substring. When fold is true the comparison
// ignores ASCII case.
func (r *Rule) MatchesPath(path string, fold bool) bool {
	if fold {
		path = strings.ToLower(path)
		return strings.Contains(path, strings.ToLower(r.Name)) ||
			(r.Alias != "" && strings.Contains(path, strings.ToLower(r.Alias)))
	}
	return strings.Contains(path, r.Name) ||
		(r.Alias != "" && strings.Contains(path, r.Alias))
}

// MatchesIdentifier reports whether id equals the rule's name or its
// non-empty alias. When fold is true the comparison ignores ASCII
// case. An empty id never matches.
func (r *Rule) MatchesIdentifier(id string, fold bool) bool {
	if id == "" {
		return false
	}
	if fold {
		return strings.EqualFold(id, r.Name) ||
			(r.Alias != "" && strings.EqualFold(id, r.Alias))
	}
	return id == r.Name || (r.Alias != "" && id == r.Alias)
}

// IsPermanentMember reports whether user is on the permanent
// whitelist. User identifiers are always compared exactly; case
// folding applies to branch identifiers only.
func (r *Rule) IsPermanentMember(user string) bool {
	for _, member := range r.Permanent {
		if member == user {
			return true
		}
	}
	return false
}

// DisposableCount returns the number of outstanding one-time grants
// held by user on this rule.
func (r *Rule) DisposableCount(user string) int {
	count := 0
	for _, entry := range r.Disposable {
		if entry == user {
			count++
		}
	}
	return count
}
