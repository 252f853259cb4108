// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides branchgate's standard CBOR encoding
// configuration.
//
// Branchgate uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the webhook and chat callback
//     endpoints, and CLI output.
//   - CBOR for the internal admin socket protocol between the service
//     daemon and the operator CLI.
//
// This package provides the shared CBOR encoding and decoding modes so
// that both ends of the socket encode identically. The encoder uses
// Core Deterministic Encoding (RFC 8949 §4.2): sorted map keys,
// smallest integer encoding, no indefinite-length items.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the admin socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Socket protocol types carry `json` tags only: fxamacker/cbor v2
// reads `json` tags as fallback when `cbor` tags are absent, so one
// tag controls field naming for both the socket and --json CLI
// output.
package codec
