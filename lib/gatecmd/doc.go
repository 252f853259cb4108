// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package gatecmd parses free-text administrative messages into typed
// gate commands and executes them against the rule store.
//
// Commands have the shape "verb branch [@user ...]". The verb table is
// declarative data: a [Grammar] is an ordered list of verb-synonym
// rules, first match wins. The built-in grammar covers the English and
// Chinese tokens the chat bots historically accepted (lock/锁库,
// unlockall/开闸, unlock/一次性, permanent/永久); deployments can
// replace it with a JSONC file via [LoadGrammarFile].
//
// Parsing and authorization failures are reply values, never errors:
// an unrecognized message yields a help reply, an unknown branch a
// "does not exist" reply, an unauthorized requester a polite denial.
// Only store failures propagate as errors.
package gatecmd
