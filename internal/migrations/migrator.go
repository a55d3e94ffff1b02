// Package migrations applies the embedded SQL schema in filename order,
// recording each applied version in schema_migrations.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// Migrator manages database migrations.
type Migrator struct {
	db     *sqlx.DB
	fs     fs.FS
	logger *zap.Logger
}

// NewMigrator creates a migrator over the embedded schema files.
func NewMigrator(db *sqlx.DB, logger *zap.Logger) *Migrator {
	sub, _ := fs.Sub(files, "sql")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{db: db, fs: sub, logger: logger}
}

// Up applies every migration that has not been recorded yet. Each file runs
// in its own transaction together with its bookkeeping row.
func (m *Migrator) Up(ctx context.Context) error {
	const ensure = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    VARCHAR(255) PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := m.db.ExecContext(ctx, ensure); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := fs.Glob(m.fs, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.SplitN(name, "_", 2)[0]
		var applied bool
		if err := m.db.GetContext(ctx, &applied, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied {
			continue
		}
		body, err := fs.ReadFile(m.fs, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := m.apply(ctx, version, string(body)); err != nil {
			return err
		}
		m.logger.Info("migration applied", zap.String("file", name))
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, version, body string) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("execute migration %s: %w", version, err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
