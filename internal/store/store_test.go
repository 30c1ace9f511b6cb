package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"autoblogger/internal/config"
	"autoblogger/internal/database"
	"autoblogger/internal/models"
)

// testDB connects with the application's own configuration and runs the
// migrations. The test is skipped when PostgreSQL is not reachable.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	db, err := database.Connect(context.Background(), cfg.DSN())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// testOwner creates a throwaway user. Deleting it in cleanup cascades to
// all of its content.
func testOwner(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	email := "owner-" + uuid.NewString()[:8] + "@store-test.local"
	u, err := NewUserStore(db).Create(context.Background(), email, "pass", "Store Test", models.RoleUser)
	if err != nil {
		t.Fatalf("create test owner: %v", err)
	}
	t.Cleanup(func() { cleanUsers(t, db, email) })
	return u
}

// cleanUsers removes test users by email. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}
