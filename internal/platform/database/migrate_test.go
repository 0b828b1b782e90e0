package database

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestMigrate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine", postgres.BasicWaitStrategies())
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := New(ctx, dsn, 2, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	err = db.Migrate(ctx, []string{
		`CREATE TABLE half_applied (id INT)`,
		`CREATE TABLE broken (`,
	})
	if err == nil {
		t.Fatal("Migrate() should fail on an invalid statement")
	}

	var exists bool
	if err := db.Pool.QueryRow(ctx, `SELECT to_regclass('half_applied') IS NOT NULL`).Scan(&exists); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if exists {
		t.Error("failed migration left half_applied behind")
	}

	if err := db.Migrate(ctx, []string{`CREATE TABLE IF NOT EXISTS applied (id INT)`}); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.Pool.QueryRow(ctx, `SELECT to_regclass('applied') IS NOT NULL`).Scan(&exists); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if !exists {
		t.Error("applied table missing after Migrate()")
	}
}
