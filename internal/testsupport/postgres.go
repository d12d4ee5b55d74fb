// Package testsupport provides shared integration-test scaffolding: a
// once-per-package Postgres testcontainer with per-test schema isolation.
// Tests that need a real database (packet store, graph state, compliance
// reporter round trips) call NewTestPool instead of standing up their own
// container.
package testsupport

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/agentops-dev/substrate/pkg/storage"
)

var (
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// NewTestPool creates a schema-isolated pgxpool.Pool against a shared
// Postgres testcontainer (or CI_DATABASE_URL if set), runs the substrate's
// migrations in that schema, and registers cleanup to drop it.
func NewTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	baseConnStr := getOrCreateSharedDatabase(t)
	schema := generateSchemaName(t)

	db, err := sql.Open("pgx", baseConnStr)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	connStrWithSchema := addSearchPath(baseConnStr, schema)

	cfg, err := pgxpool.ParseConfig(connStrWithSchema)
	require.NoError(t, err)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, applyMigrationsInSchema(connStrWithSchema))

	t.Cleanup(func() {
		pool.Close()
		cleanupDB, err := sql.Open("pgx", baseConnStr)
		if err == nil {
			_, _ = cleanupDB.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
			_ = cleanupDB.Close()
		}
	})

	return pool
}

func applyMigrationsInSchema(connStr string) error {
	// storage.RunMigrations opens its own connection from a storage.Config;
	// reuse it by round-tripping through a DSN that already carries the
	// schema search_path.
	return storage.RunMigrationsWithDSN(connStr)
}

func getOrCreateSharedDatabase(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("CI_DATABASE_URL"); url != "" {
		return url
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := tcpostgres.Run(ctx,
			"postgres:17-alpine",
			tcpostgres.WithDatabase("test"),
			tcpostgres.WithUsername("test"),
			tcpostgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("start postgres testcontainer: %w", err)
			return
		}
		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("get connection string: %w", err)
			return
		}
		sharedConnStr = connStr
	})

	require.NoError(t, containerErr, "failed to set up shared test container")
	return sharedConnStr
}

func generateSchemaName(t *testing.T) string {
	name := strings.ToLower(t.Name())
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("test_%s_%s", name, hex.EncodeToString(buf))
}

func addSearchPath(connStr, schema string) string {
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssearch_path=%s", connStr, sep, schema)
}
