package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	Config    Config
}

// SetupTestDB spins up a disposable Postgres container and runs every
// migration against it.
func SetupTestDB(t *testing.T) *TestDB {
	return setupTestDBInternal(t, "")
}

// SetupTestDBWithMigrations runs only the migration files whose name
// contains migrationPattern, for tests that only need a subset of the
// schema.
func SetupTestDBWithMigrations(t *testing.T, migrationPattern string) *TestDB {
	return setupTestDBInternal(t, migrationPattern)
}

func setupTestDBInternal(t *testing.T, migrationPattern string) *TestDB {
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	config := Config{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	pool, err := NewPool(ctx, config)
	require.NoError(t, err)

	// The same db/migrations files that define the production schema, so a
	// test failure here means the migrations themselves are broken, not the
	// harness.
	if migrationPattern == "" {
		err = runAllMigrations(ctx, pool)
	} else {
		err = runFilteredMigrations(ctx, pool, migrationPattern)
	}
	require.NoError(t, err)

	return &TestDB{
		Container: container,
		Pool:      pool,
		Config:    config,
	}
}

func (db *TestDB) Cleanup(t *testing.T) {
	ctx := context.Background()
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		require.NoError(t, db.Container.Terminate(ctx))
	}
}

func runAllMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := getMigrationsDir()

	migrationFiles, err := getMigrationFiles(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	sort.Strings(migrationFiles)

	for _, file := range migrationFiles {
		if err := executeMigrationFile(ctx, pool, filepath.Join(migrationsDir, file)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}

func runFilteredMigrations(ctx context.Context, pool *pgxpool.Pool, pattern string) error {
	migrationsDir := getMigrationsDir()

	allFiles, err := getMigrationFiles(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	var migrationFiles []string
	for _, file := range allFiles {
		if strings.Contains(file, pattern) {
			migrationFiles = append(migrationFiles, file)
		}
	}

	sort.Strings(migrationFiles)

	for _, file := range migrationFiles {
		if err := executeMigrationFile(ctx, pool, filepath.Join(migrationsDir, file)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}

// getMigrationsDir walks up from the working directory looking for
// db/migrations, since tests run from varying package depths.
func getMigrationsDir() string {
	wd, _ := os.Getwd()

	possiblePaths := []string{
		filepath.Join(wd, "db", "migrations"),
		filepath.Join(wd, "..", "db", "migrations"),
		filepath.Join(wd, "..", "..", "db", "migrations"),
		filepath.Join(wd, "..", "..", "..", "db", "migrations"),
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "../../db/migrations"
}

func getMigrationFiles(dir string) ([]string, error) {
	var files []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

func executeMigrationFile(ctx context.Context, pool *pgxpool.Pool, filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", filePath, err)
	}

	_, err = pool.Exec(ctx, string(content))
	if err != nil {
		return fmt.Errorf("failed to execute SQL from %s: %w", filePath, err)
	}

	return nil
}
