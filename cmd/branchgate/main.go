// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

// Command branchgate is the operator CLI for the branchgate daemon.
// It talks to the daemon's admin socket over the CBOR socket protocol.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := root().Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
