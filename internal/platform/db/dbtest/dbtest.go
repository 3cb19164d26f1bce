// Package dbtest gives integration tests a migrated PostgreSQL schema of
// their own. Tests using it are skipped unless DATABASE_TEST_URL is set.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/db"
)

const envURL = "DATABASE_TEST_URL"

// Pool creates a fresh schema, applies the repository's migrations to it and
// returns a pool whose connections resolve tables there. The schema is
// dropped when the test ends.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(envURL)
	if url == "" {
		t.Skip(envURL + " not set")
	}
	ctx := context.Background()

	admin, err := db.NewPool(ctx, url, 2, 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	pool, err := db.NewPool(ctx, url, 10, 0, db.WithSearchPath(schema), db.WithApplicationName("curenet-test"))
	if err != nil {
		t.Fatalf("connect to %s: %v", schema, err)
	}
	t.Cleanup(pool.Close)

	dir, err := migrationsDir()
	if err != nil {
		t.Fatalf("find migrations: %v", err)
	}
	if _, err := db.NewMigrator(pool, dir).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// migrationsDir walks up from the working directory to the module root.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above working directory")
		}
		dir = parent
	}
}
