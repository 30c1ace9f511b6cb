// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Development login created by Seed.
const (
	SeedEmail    = "admin@autoblogger.local"
	SeedPassword = "admin"
	seedName     = "Admin"
)

// Seed creates the development admin account when the users table is
// empty. It reports whether a user was inserted.
func Seed(ctx context.Context, db *sql.DB) (bool, error) {
	var empty bool
	if err := db.QueryRowContext(ctx, "SELECT NOT EXISTS (SELECT 1 FROM users)").Scan(&empty); err != nil {
		return false, fmt.Errorf("seed check users: %w", err)
	}
	if !empty {
		slog.Debug("users present, skipping seed")
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("seed bcrypt: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, name, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (email) DO NOTHING
	`, SeedEmail, string(hash), seedName)
	if err != nil {
		return false, fmt.Errorf("seed insert admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed rows affected: %w", err)
	}

	if n > 0 {
		slog.Info("development admin created", "email", SeedEmail)
	}
	return n > 0, nil
}
