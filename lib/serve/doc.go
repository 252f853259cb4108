// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package serve provides the two network surfaces of the branchgate
// daemon: an HTTP server for webhook and chat callbacks, and a CBOR
// request-response protocol on a Unix socket for the operator CLI.
//
// Both servers follow the same lifecycle: Serve(ctx) blocks until the
// context is cancelled, then drains in-flight work before returning.
// The HTTP server closes its Ready channel once the listener is bound,
// so callers can start dependent work (or tests can dial) without
// polling.
//
// The socket protocol is one request-response cycle per connection:
// the client writes a single CBOR value carrying an "action" field,
// the server routes it to the registered [ActionFunc] and writes a
// [Response]. [Client] is the matching caller side.
package serve
