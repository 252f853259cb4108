// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/branchgate/branchgate/lib/config"
	"github.com/branchgate/branchgate/lib/gate"
	"github.com/branchgate/branchgate/lib/gatecmd"
	"github.com/branchgate/branchgate/lib/policy"
	"github.com/branchgate/branchgate/lib/process"
	"github.com/branchgate/branchgate/lib/rulestore"
	"github.com/branchgate/branchgate/lib/serve"
	"github.com/branchgate/branchgate/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "path to branchgate.yaml (defaults to $BRANCHGATE_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("branchgate-service " + version.Info())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := rulestore.Open(rulestore.Config{
		Path:            cfg.Database.Path,
		PoolSize:        cfg.Database.PoolSize,
		CaseInsensitive: cfg.CaseInsensitive(),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("opening rule store: %w", err)
	}
	defer store.Close()

	grammar := gatecmd.DefaultGrammar()
	if cfg.Commands.GrammarFile != "" {
		grammar, err = gatecmd.LoadGrammarFile(cfg.Commands.GrammarFile)
		if err != nil {
			return err
		}
	}

	denialMode := policy.DenialFailFast
	if cfg.AggregateDenials() {
		denialMode = policy.DenialAggregate
	}

	commitGate := gate.New(gate.Config{
		Evaluator: policy.NewEvaluator(store, denialMode, logger),
		Interpreter: gatecmd.NewInterpreter(gatecmd.Config{
			Ledger:              store,
			Grammar:             grammar,
			BotMention:          cfg.Commands.BotMention,
			GuardGrantPermanent: cfg.Commands.GuardGrantPermanent,
			Logger:              logger,
		}),
		PreCommitEventType: cfg.Policy.PreCommitEventType,
		Logger:             logger,
	})

	httpServer := serve.NewHTTPServer(serve.HTTPServerConfig{
		Address: cfg.Server.ListenAddress,
		Handler: newGateHandler(commitGate, logger),
		Logger:  logger,
	})

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	select {
	case <-httpServer.Ready():
		logger.Info("gate endpoint ready", "address", httpServer.Addr().String())
	case err := <-httpDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	// The admin socket is optional; operators that manage rules by
	// writing the database directly can disable it.
	var socketDone chan error
	if cfg.Server.SocketPath != "" {
		socketServer := serve.NewSocketServer(cfg.Server.SocketPath, logger)
		registerStoreActions(socketServer, store)

		socketDone = make(chan error, 1)
		go func() {
			socketDone <- socketServer.Serve(ctx)
		}()
	}

	logger.Info("branchgate service running",
		"database", cfg.Database.Path,
		"socket", cfg.Server.SocketPath,
		"denial_mode", cfg.Policy.DenialMode,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-httpDone; err != nil {
		logger.Error("http server error", "error", err)
	}
	if socketDone != nil {
		if err := <-socketDone; err != nil {
			logger.Error("socket server error", "error", err)
		}
	}

	return nil
}
