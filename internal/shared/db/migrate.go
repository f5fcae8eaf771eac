package db_conn

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"carmarket/internal/shared/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

// Migrate applies every migrations/*.sql file not yet recorded in schema_migrations,
// in lexicographic order. Each file runs in its own transaction together with its
// bookkeeping row. SQL files themselves MUST NOT contain BEGIN/COMMIT.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		sqlb, err := MigrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", name, err)
		}

		// блокировка сериализует параллельный старт нескольких сервисов
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('schema_migrations'))`); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("lock migrations: %w", err)
		}

		var applied bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&applied); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("check %s: %w", name, err)
		}
		if applied {
			_ = tx.Rollback(ctx)
			continue
		}

		if _, err := tx.Exec(ctx, string(sqlb)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit %s failed: %w", name, err)
		}

		log.Info(logger.Entry{Action: "migration_applied", Message: name})
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := MigrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
