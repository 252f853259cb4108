// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Command branchgate-service is the branch commit gate daemon.
//
// It serves two surfaces:
//
//   - An HTTP endpoint receiving version control webhook events and
//     chat bot callbacks on a single route. Payload shape decides the
//     route: webhook events are evaluated against the branch rules and
//     answered with an allow or deny status, chat callbacks run
//     through the admin command interpreter and are answered with a
//     chat reply message.
//   - A CBOR Unix socket for the branchgate operator CLI: listing
//     rules, inspecting grants, and creating rules.
//
// Configuration is loaded from the file named by --config or the
// BRANCHGATE_CONFIG environment variable.
package main
