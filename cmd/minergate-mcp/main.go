// minergate-mcp serves the minergate fleet operations as Model Context
// Protocol tools over stdio.
//
// It shares the gateway's configuration file. Logs always go to stderr
// because stdout carries the protocol. When the database is enabled, light
// commands are written to the same audit trail with source "mcp".
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/minergate/migrations"

	"github.com/nerrad567/minergate/internal/audit"
	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/infrastructure/config"
	"github.com/nerrad567/minergate/internal/infrastructure/database"
	"github.com/nerrad567/minergate/internal/infrastructure/logging"
	"github.com/nerrad567/minergate/internal/mcpserver"
	"github.com/nerrad567/minergate/internal/miner/backend"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.NewWriter(cfg.Logging, version, os.Stderr).Component("mcp")

	factory, err := backend.New(cfg)
	if err != nil {
		return fmt.Errorf("creating miner backend: %w", err)
	}

	events := &fleet.Dispatcher{}
	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close() //nolint:errcheck // Closing on exit
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB), log)
		recCtx, stop := context.WithCancel(ctx)
		recorder.Start(recCtx)
		// Stop and drain the recorder before the database closes.
		defer recorder.Wait()
		defer stop()
		events.Add(recorder)
	}

	svc := fleet.NewService(factory, backend.ServiceConfig(cfg, events, log))
	return mcpserver.New(svc, version, log).ServeStdio()
}
