// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cache provides the Valkey (Redis-compatible) client shared by the
// session store, the shared rate limit window and the provider model
// listing cache.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client timeouts.
const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

// Options locate a Valkey server.
type Options struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ConnectValkey creates a client for opts and pings the server before
// returning it.
func ConnectValkey(ctx context.Context, opts Options) (*redis.Client, error) {
	addr := net.JoinHostPort(opts.Host, opts.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", addr, err)
	}

	slog.Info("valkey connected", "addr", addr, "db", opts.DB)
	return client, nil
}
