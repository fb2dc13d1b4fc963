// Package authority is a region authority backed by Redis. The region table
// lives in a Redis hash (id -> CBOR record) shared by every server of a
// deployment. Each process keeps a local snapshot, refreshed periodically and
// whenever a writer publishes an invalidation on the channel, so lookups
// never touch the network.
package authority

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/udisondev/towergate/internal/game/region"
	"github.com/udisondev/towergate/internal/model"
)

// ErrNotLoaded is returned by lookups before the first successful refresh.
var ErrNotLoaded = errors.New("authority snapshot not loaded")

// Config configures the Redis authority.
type Config struct {
	URL             string
	Key             string
	Channel         string
	RefreshInterval time.Duration
	DialTimeout     time.Duration
}

func (c *Config) applyDefaults() {
	if c.Key == "" {
		c.Key = "towergate:regions"
	}
	if c.Channel == "" {
		c.Channel = "towergate:regions:changed"
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 30 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 3 * time.Second
	}
}

type entry struct {
	region   region.Region
	priority int32
}

type snapshot struct {
	entries []entry
	loaded  time.Time
}

// Store implements region.Authority over a Redis hash.
type Store struct {
	client *redis.Client
	cfg    Config

	snap      atomic.Pointer[snapshot]
	refreshes atomic.Uint64
}

// New wraps an existing client. Call Refresh before use.
func New(client *redis.Client, cfg Config) *Store {
	cfg.applyDefaults()
	return &Store{client: client, cfg: cfg}
}

// Dial connects to Redis and loads the initial snapshot.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is empty")
	}
	cfg.applyDefaults()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = cfg.DialTimeout

	client := redis.NewClient(opts)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(dialCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	s := New(client, cfg)
	if err := s.Refresh(dialCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Health checks the Redis connection.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Refresh reloads the snapshot from Redis. Undecodable records are skipped.
func (s *Store) Refresh(ctx context.Context) error {
	raw, err := s.client.HGetAll(ctx, s.cfg.Key).Result()
	if err != nil {
		return fmt.Errorf("load regions from %s: %w", s.cfg.Key, err)
	}

	entries := make([]entry, 0, len(raw))
	for field, data := range raw {
		rec, err := Decode([]byte(data))
		if err != nil {
			slog.Warn("skip authority region", "field", field, "err", err)
			continue
		}
		if rec.ID == "" {
			rec.ID = field
		}
		r, err := rec.Region()
		if err != nil {
			slog.Warn("skip authority region", "field", field, "err", err)
			continue
		}
		entries = append(entries, entry{region: r, priority: rec.Priority})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return strings.Compare(a.region.ID(), b.region.ID())
	})

	s.snap.Store(&snapshot{entries: entries, loaded: time.Now()})
	s.refreshes.Add(1)
	slog.Debug("authority regions refreshed", "regions", len(entries))
	return nil
}

// Refreshes returns the number of successful refreshes.
func (s *Store) Refreshes() uint64 {
	return s.refreshes.Load()
}

// RegionAt returns the highest priority region containing pos.
func (s *Store) RegionAt(pos model.Position) (string, bool, error) {
	snap := s.snap.Load()
	if snap == nil {
		return "", false, ErrNotLoaded
	}
	for _, e := range snap.entries {
		if e.region.Contains(pos) {
			return e.region.ID(), true, nil
		}
	}
	return "", false, nil
}

// Regions returns the snapshot in lookup order.
func (s *Store) Regions() []region.Region {
	snap := s.snap.Load()
	if snap == nil {
		return nil
	}
	out := make([]region.Region, len(snap.entries))
	for i, e := range snap.entries {
		out[i] = e.region
	}
	return out
}

// Put writes a region and notifies every subscriber.
func (s *Store) Put(ctx context.Context, r region.Region, priority int32) error {
	data, err := Encode(RecordOf(r, priority))
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.cfg.Key, r.ID(), data).Err(); err != nil {
		return fmt.Errorf("store region %q: %w", r.ID(), err)
	}
	return s.publish(ctx, r.ID())
}

// Delete removes a region and notifies every subscriber.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.HDel(ctx, s.cfg.Key, id).Err(); err != nil {
		return fmt.Errorf("delete region %q: %w", id, err)
	}
	return s.publish(ctx, id)
}

func (s *Store) publish(ctx context.Context, id string) error {
	if err := s.client.Publish(ctx, s.cfg.Channel, id).Err(); err != nil {
		return fmt.Errorf("publish region change %q: %w", id, err)
	}
	return nil
}

// Run keeps the snapshot fresh until ctx is canceled (blocks). It refreshes
// on every invalidation message and on the refresh interval. Refresh errors
// keep the previous snapshot.
func (s *Store) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.cfg.Channel)
	defer func() {
		_ = sub.Close()
	}()
	msgs := sub.Channel()

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	slog.Info("region authority watching", "key", s.cfg.Key, "channel", s.cfg.Channel, "interval", s.cfg.RefreshInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("region authority stopping")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("subscription to %s closed", s.cfg.Channel)
			}
			slog.Debug("region invalidated", "region", msg.Payload)
			s.refresh(ctx)
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Store) refresh(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("region authority refresh failed", "err", err)
	}
}
