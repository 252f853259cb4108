// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package rulestore persists branch rules in SQLite and implements the
// whitelist ledger on top of them.
//
// A [Store] wraps a fixed-size connection pool (WAL mode, standard
// pragmas, schema applied once per connection on first use). The store
// is injected into the policy evaluator and the command interpreter at
// construction; there is no package-level handle. The owner opens the
// store at process start and closes it on shutdown.
//
// Every ledger mutation runs as a single IMMEDIATE transaction against
// one branch_rule row. SQLite admits one writer at a time, so
// [Store.RedeemDisposable] is linearizable with respect to concurrent
// redemptions and grants on the same rule: N concurrent commits racing
// for a single outstanding one-time grant produce exactly one
// successful redemption.
//
// Lookup failures are [ErrRuleNotFound]; all other errors are
// underlying store failures and propagate wrapped to the caller, never
// retried here.
package rulestore
