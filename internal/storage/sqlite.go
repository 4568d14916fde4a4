// Package storage persists the set of already-imported transaction ids so
// repeated statement imports do not emit duplicates.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/larsfjeld/beanpost/internal/common"
)

// Registry is a SQLite-backed registry of external transaction ids
// (OFX FITIDs) that have already been imported.
type Registry struct {
	db     *sql.DB
	dbPath string
}

// OpenRegistry opens (creating if necessary) the registry database at the
// given path and applies pending migrations.
func OpenRegistry(dbPath string) (*Registry, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: registry path is required", common.ErrInvalidConfig)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Registry{db: db, dbPath: dbPath}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return r, nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Seen reports whether the external id has been imported before.
func (r *Registry) Seen(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM imported_transactions WHERE external_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query imported_transactions: %w", err)
	}
	return n > 0, nil
}

// MarkImported records external ids as imported for one tracked account.
// Already-recorded ids are ignored, so re-running an import is safe.
func (r *Registry) MarkImported(ctx context.Context, accountID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO imported_transactions (external_id, account_id, imported_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, accountID, now); err != nil {
			return fmt.Errorf("failed to record id %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of recorded ids.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM imported_transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count imported_transactions: %w", err)
	}
	return n, nil
}
