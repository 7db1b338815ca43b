// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package redis provides the managed client for the read-cache and
notification bus.

It carries the denormalized projection of configuration entities (screens,
buttons, aliased actions, translations, regexes, glyphs), the fleet
connection counter, and the pub/sub channels that keep every gateway
instance convergent with the authoritative PostgreSQL store.

Core Responsibilities:

  - Projection: Fast hash lookups for fully-replaced cache entries.
  - Fan-in: A dedicated subscriber connection for change notifications.
  - Safety: Manages connection pooling and retry logic automatically.

This infrastructure component ensures config reads never touch the primary
database on the hot path.
*/
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Timeouts for Redis operations. Reads sit on the connection hot path, so
// they are bounded tighter than the dial.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

/*
NewClient parses a Redis URL, tunes the connection pool, and verifies
connectivity with an initial ping.

Parameters:
  - ctx: Context bounding the initial ping.
  - redisURL: Redis connection URL.
  - logger: Structured logger for connection events.

Returns:
  - *redis.Client: The connected client.
  - error: URL parse or ping failure.
*/
func NewClient(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis_url_invalid: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxIdleConns = 5
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = readTimeout
	opts.WriteTimeout = writeTimeout

	client := redis.NewClient(opts)
	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", opts.Addr),
		slog.Int("pool_size", opts.PoolSize))
	return client, nil
}

// Ping verifies the client can reach Redis within pingTimeout.
func Ping(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis_ping_failed: %w", err)
	}
	return nil
}
