// Towerctl runs the zone service in-process behind an interactive console.
// It reads the same config as towergate; without a database everything is
// kept in memory.
//
// Usage:
//
//	go run ./cmd/towerctl [-zones config/zones.yaml] [-log warn]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/udisondev/towergate/cmd/towerctl/interactive"
	"github.com/udisondev/towergate/internal/config"
	"github.com/udisondev/towergate/internal/db"
	"github.com/udisondev/towergate/internal/gameserver"
	"github.com/udisondev/towergate/internal/gameserver/admin"
	"github.com/udisondev/towergate/internal/gameserver/admin/commands"
)

func main() {
	zonesFile := flag.String("zones", "", "zones file (overrides config)")
	logLevel := flag.String("log", "warn", "log level")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, *zonesFile, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, "towerctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, zonesFile, logLevel string) error {
	cfg, err := config.LoadServer(config.ServerPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if zonesFile != "" {
		cfg.ZonesFile = zonesFile
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	opts := gameserver.Options{
		ZonesFile: cfg.ZonesFile,
		CacheSize: cfg.CacheSize,
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	}
	if cfg.Database.Enabled() {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		opts.Regions = db.NewRegionRepository(database.Pool())
		opts.Progress = db.NewProgressRepository(database.Pool())
	}

	svc, err := gameserver.New(ctx, opts)
	if err != nil {
		return fmt.Errorf("creating zone service: %w", err)
	}
	report, err := svc.Reload(ctx)
	if err != nil {
		return fmt.Errorf("loading zones: %w", err)
	}
	if skipped := report.Err(); skipped != nil {
		fmt.Fprintln(os.Stderr, "skipped definitions:", skipped)
	}

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	handler := admin.NewHandler()
	commands.RegisterAll(handler, svc, commands.NewSelections())

	console := interactive.New(svc, handler, os.Stdout)
	if err := console.Run(ctx, cancel); err != nil {
		return err
	}

	cancel()
	<-done
	return nil
}
