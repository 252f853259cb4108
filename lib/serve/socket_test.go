// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/branchgate/branchgate/lib/codec"
)

// startSocketServer runs a socket server in the background and waits
// for the socket file to appear.
func startSocketServer(t *testing.T, register func(*SocketServer)) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "admin.sock")
	server := NewSocketServer(socketPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	register(server)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-serveDone:
		case <-time.After(5 * time.Second):
			t.Error("socket server did not stop")
		}
	})

	// The server removes and recreates the socket file before
	// accepting, so its presence means Serve is past listen.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", socketPath); err == nil {
			conn.Close()
			return socketPath
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("socket server did not start listening")
	return ""
}

func TestSocketCallRoundTrip(t *testing.T) {
	type echoRequest struct {
		Branch string `json:"branch"`
	}
	type echoResult struct {
		Branch string `json:"branch"`
		Seen   bool   `json:"seen"`
	}

	socketPath := startSocketServer(t, func(server *SocketServer) {
		server.Handle("echo", func(_ context.Context, raw []byte) (any, error) {
			var request echoRequest
			if err := codec.Unmarshal(raw, &request); err != nil {
				return nil, err
			}
			return echoResult{Branch: request.Branch, Seen: true}, nil
		})
	})

	client := NewClient(socketPath)
	var result echoResult
	if err := client.Call(context.Background(), "echo", map[string]any{"branch": "rel1"}, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Branch != "rel1" || !result.Seen {
		t.Errorf("result = %+v, want branch=rel1 seen=true", result)
	}
}

func TestSocketCallNoData(t *testing.T) {
	called := make(chan struct{}, 1)
	socketPath := startSocketServer(t, func(server *SocketServer) {
		server.Handle("ping", func(context.Context, []byte) (any, error) {
			called <- struct{}{}
			return nil, nil
		})
	})

	if err := NewClient(socketPath).Call(context.Background(), "ping", nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	select {
	case <-called:
	default:
		t.Error("handler not invoked")
	}
}

func TestSocketCallHandlerError(t *testing.T) {
	socketPath := startSocketServer(t, func(server *SocketServer) {
		server.Handle("explode", func(context.Context, []byte) (any, error) {
			return nil, fmt.Errorf("the widget is bent")
		})
	})

	err := NewClient(socketPath).Call(context.Background(), "explode", nil, nil)
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("err = %v, want *CallError", err)
	}
	if callErr.Action != "explode" || callErr.Message != "the widget is bent" {
		t.Errorf("CallError = %+v", callErr)
	}
}

func TestSocketCallUnknownAction(t *testing.T) {
	socketPath := startSocketServer(t, func(server *SocketServer) {
		server.Handle("known", func(context.Context, []byte) (any, error) { return nil, nil })
	})

	err := NewClient(socketPath).Call(context.Background(), "unknown", nil, nil)
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("err = %v, want *CallError", err)
	}
}

func TestSocketMissingAction(t *testing.T) {
	socketPath := startSocketServer(t, func(server *SocketServer) {
		server.Handle("known", func(context.Context, []byte) (any, error) { return nil, nil })
	})

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(map[string]any{"branch": "rel1"}); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response.OK {
		t.Error("response.OK = true, want false for missing action")
	}
}

func TestSocketDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", slog.New(slog.NewTextHandler(io.Discard, nil)))
	server.Handle("a", func(context.Context, []byte) (any, error) { return nil, nil })

	defer func() {
		if r := recover(); r == nil {
			t.Error("duplicate Handle did not panic")
		}
	}()
	server.Handle("a", func(context.Context, []byte) (any, error) { return nil, nil })
}
