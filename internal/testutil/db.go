package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/joho/godotenv"

	"github.com/volatria/volatria-backend/internal/db"
	"github.com/volatria/volatria-backend/internal/repository"
)

// SetupSQLite returns a migrated store backed by a fresh database file.
func SetupSQLite(t *testing.T, opts repository.Options) *repository.Store {
	t.Helper()

	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "volatria.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	opts.Driver = db.SQLite
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	store := repository.New(sqlDB, opts)
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// SetupPostgres returns a migrated store on TEST_DATABASE_URL, skipping the
// test when it is not set.
func SetupPostgres(t *testing.T, opts repository.Options) *repository.Store {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	opts.Driver = db.Postgres
	store := repository.New(db.OpenPostgres(pool), opts)
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}
