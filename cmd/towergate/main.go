package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/towergate/internal/authority"
	"github.com/udisondev/towergate/internal/config"
	"github.com/udisondev/towergate/internal/db"
	"github.com/udisondev/towergate/internal/game/progress"
	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/game/transition"
	"github.com/udisondev/towergate/internal/gameserver"
	"github.com/udisondev/towergate/internal/httpapi"
	"github.com/udisondev/towergate/internal/metrics"
	"github.com/udisondev/towergate/internal/model"
	"github.com/udisondev/towergate/internal/notify"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := config.ServerPath()
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("towergate starting", "config", cfgPath, "log_level", cfg.LogLevel)

	m := metrics.New(prometheus.DefaultRegisterer)
	checks := map[string]httpapi.Checker{}

	opts := gameserver.Options{
		ZonesFile:   cfg.ZonesFile,
		CacheSize:   cfg.CacheSize,
		Workers:     cfg.Workers,
		QueueSize:   cfg.QueueSize,
		Permissions: bypassList(cfg.Bypass),
		Sinks:       []transition.Sink{notify.LogSink{}},
		Metrics:     m,
	}

	if cfg.Database.Enabled() {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		opts.Regions = db.NewRegionRepository(database.Pool())
		opts.Progress = db.NewProgressRepository(database.Pool())
		checks["postgres"] = database.Health
	} else {
		slog.Warn("no database configured, progression is kept in memory")
	}

	// Authority is set by the resolver only when Redis answered.
	var store *authority.Store
	if cfg.Redis.URL != "" {
		opts.Resolve = func(ctx context.Context) (region.Authority, error) {
			s, err := authority.Dial(ctx, authority.Config{
				URL:             cfg.Redis.URL,
				Key:             cfg.Redis.Key,
				Channel:         cfg.Redis.Channel,
				RefreshInterval: cfg.Redis.RefreshInterval,
				DialTimeout:     cfg.Redis.DialTimeout,
			})
			if err != nil {
				return nil, err
			}
			store = s
			return s, nil
		}
	}

	var publisher *notify.Publisher
	if cfg.PublishEvents {
		if cfg.Redis.URL == "" {
			return errors.New("publish_events requires redis.url")
		}
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis URL: %w", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()

		publisher = notify.NewPublisher(notify.RedisTransport{Client: client}, cfg.EventsChannel, 0)
		opts.Sinks = append(opts.Sinks, publisher)
		checks["redis-events"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	svc, err := gameserver.New(ctx, opts)
	if err != nil {
		return fmt.Errorf("creating zone service: %w", err)
	}
	if store != nil {
		defer store.Close()
		checks["redis-authority"] = store.Health
	}

	report, err := svc.Reload(ctx)
	if err != nil {
		return fmt.Errorf("loading zones: %w", err)
	}
	for _, skipped := range slices.Concat(report.Regions.Skipped, report.Zones.Skipped) {
		slog.Warn("zone definition skipped", "err", skipped)
	}

	api := httpapi.New(svc, prometheus.DefaultGatherer, checks, slog.Default())
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting zone dispatcher", "queue", cfg.QueueSize, "workers", cfg.Workers)
		if err := svc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("zone dispatcher: %w", err)
		}
		return nil
	})

	if store != nil {
		g.Go(func() error {
			if err := store.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("region authority: %w", err)
			}
			return nil
		})
	}

	if publisher != nil {
		g.Go(func() error {
			slog.Info("publishing zone events", "channel", cfg.EventsChannel)
			if err := publisher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event publisher: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("http api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// bypassList grants the admission bypass to configured entities.
func bypassList(entries []string) *progress.StaticPermissions {
	perms := progress.NewStaticPermissions()
	for _, e := range entries {
		id, err := model.ParseEntityID(e)
		if err != nil {
			id = model.EntityIDFromName(e)
		}
		perms.Grant(id, progress.PermissionBypass)
	}
	return perms
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
