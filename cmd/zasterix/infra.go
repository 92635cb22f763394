package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	znats "github.com/zasterix/zasterix/internal/adapter/nats"
	"github.com/zasterix/zasterix/internal/adapter/natskv"
	"github.com/zasterix/zasterix/internal/adapter/postgres"
	"github.com/zasterix/zasterix/internal/adapter/ristretto"
	"github.com/zasterix/zasterix/internal/adapter/tiered"
	"github.com/zasterix/zasterix/internal/config"
	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/port/cache"
	"github.com/zasterix/zasterix/internal/port/database"
	"github.com/zasterix/zasterix/internal/port/messagequeue"
)

// Store states reported by /health.
const (
	storeOK            = "ok"
	storeReadOnly      = "read_only"
	storeNotConfigured = "not_configured"
	storeUnavailable   = "unavailable"
)

// storeHandle owns the relational store and its pool, if any.
type storeHandle struct {
	store database.Store
	pool  *pgxpool.Pool
	tier  config.Tier
}

// openStore resolves the store credentials. Missing credentials are not
// fatal: the returned handle wraps database.Unconfigured.
func openStore(ctx context.Context, cfg *config.Config) (*storeHandle, error) {
	dsn, tier, err := cfg.Store.Resolve()
	if err != nil {
		slog.Warn("store not configured; store-backed operations are disabled", "reason", err)
		return &storeHandle{store: database.Unconfigured{Reason: err.Error()}}, nil
	}

	pool, err := postgres.NewPool(ctx, dsn, tier, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected", "tier", tier)

	if cfg.Postgres.AutoMigrate && tier == config.TierServiceRole {
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	return &storeHandle{store: postgres.NewStore(pool), pool: pool, tier: tier}, nil
}

func (h *storeHandle) writable() bool {
	return h.pool != nil && h.tier == config.TierServiceRole
}

func (h *storeHandle) state(ctx context.Context) string {
	err := h.store.Ping(ctx)
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return storeNotConfigured
	case err != nil:
		return storeUnavailable
	case h.tier == config.TierAnon:
		return storeReadOnly
	default:
		return storeOK
	}
}

func (h *storeHandle) close() {
	if h.pool != nil {
		h.pool.Close()
	}
}

// busHandle owns the optional NATS connection.
type busHandle struct {
	q *znats.Queue
}

// connectBus connects to NATS when a URL is configured. A failed connection
// is logged and the service runs without the bus.
func connectBus(ctx context.Context, cfg *config.Config) *busHandle {
	if cfg.NATS.URL == "" {
		return &busHandle{}
	}
	q, err := znats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
	if err != nil {
		slog.Warn("nats unavailable; events stay in-process", "error", err)
		return &busHandle{}
	}
	return &busHandle{q: q}
}

// queue returns the bus as a messagequeue.Queue, or nil without a connection.
func (b *busHandle) queue() messagequeue.Queue {
	if b.q == nil {
		return nil
	}
	return b.q
}

func (b *busHandle) state() string {
	switch {
	case b.q == nil:
		return "disabled"
	case b.q.IsConnected():
		return "connected"
	default:
		return "disconnected"
	}
}

func (b *busHandle) close() {
	if b.q == nil {
		return
	}
	if err := b.q.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
}

// cacheHandle holds the template cache and the idempotency store.
type cacheHandle struct {
	templates   cache.Cache
	idempotency cache.Cache
	l1          *ristretto.Cache
}

// openCaches builds the ristretto L1. With a bus, templates use the tiered
// L1+KV cache and idempotency keys live in their own KV bucket so replays
// work across instances.
func openCaches(ctx context.Context, cfg *config.Config, bus *busHandle) (*cacheHandle, error) {
	l1, err := ristretto.NewMB(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return nil, fmt.Errorf("l1 cache: %w", err)
	}
	h := &cacheHandle{templates: l1, idempotency: l1, l1: l1}
	if bus.q == nil {
		return h, nil
	}

	l2, err := natskv.Open(ctx, bus.q.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		slog.Warn("l2 cache unavailable; using l1 only", "error", err)
	} else {
		h.templates = tiered.New(l1, l2, cfg.Cache.L1TTL)
	}

	idem, err := natskv.Open(ctx, bus.q.JetStream(), cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		slog.Warn("idempotency bucket unavailable; using l1", "error", err)
	} else {
		h.idempotency = idem
	}
	return h, nil
}

func (h *cacheHandle) close() {
	h.l1.Close()
}
