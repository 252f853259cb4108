// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package branchrule defines the governance record for a protected
// branch: the lock flag, the permanent whitelist, and the disposable
// (one-time) whitelist.
//
// A [Rule] is the in-memory form of one branch_rule row. The two
// whitelist columns are stored comma-joined; [SplitUsers] and
// [JoinUsers] convert between the column text and the slice form. The
// permanent whitelist is a set (no duplicates), the disposable
// whitelist is a multiset: a user granted three one-time passes
// appears three times, and each commit consumes exactly one
// occurrence.
//
// The package holds only pure domain logic: path matching, membership
// checks, and the user-identifier sanitization applied to @mentions in
// admin commands. Persistence lives in lib/rulestore.
package branchrule
