package kv

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/portal/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open builds the Backend selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.DriverMemory:
		slog.Warn("using in-memory storage; table state is lost on restart")
		return NewMemoryStore(), nil

	case config.DriverSQLite:
		store, err := NewSQLiteStore(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite storage", "path", cfg.Storage.SQLitePath)
		return store, nil

	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Database)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (Backend, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	store, err := NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}
