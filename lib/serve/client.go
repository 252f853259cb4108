// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/branchgate/branchgate/lib/codec"
)

// dialTimeout bounds the connect phase only; the server's read and
// write timeouts cover the rest of the exchange.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the response
// after writing the request. Matched to the server's readTimeout plus
// writeTimeout to allow for handler execution.
const responseReadTimeout = 45 * time.Second

// maxResponseSize matches the server's maxRequestSize.
const maxResponseSize = 1024 * 1024

// CallError is returned by Call when the server responds with
// ok=false. It carries the server's error message and the failing
// action.
type CallError struct {
	Action  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("socket error on %q: %s", e.Action, e.Message)
}

// Client sends CBOR requests to the branchgate admin socket. Each
// Call opens a new connection, matching the server's one-request-per-
// connection model.
type Client struct {
	socketPath string
}

// NewClient creates a client for the admin socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends a request for the given action and decodes the response.
//
// The fields map may carry handler-specific request fields; the
// client injects "action" itself. Pass nil for actions without
// parameters.
//
// On ok=true, response data (when present) is CBOR-decoded into
// result if result is non-nil. On ok=false, returns a *CallError
// carrying the server's message. Connection and encoding failures are
// returned as plain errors.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	response, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &CallError{Action: action, Message: response.Error}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}

	return nil
}

// send connects, writes the request, and reads the response.
func (c *Client) send(ctx context.Context, request any) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the server's read sees EOF
	// cleanly. CBOR is self-delimiting so this is a courtesy, not a
	// framing requirement.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response, nil
}
