// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. Rows are inserted with a prepared statement inside one
// transaction per batch.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"csvformatter/internal/ddl"
	"csvformatter/internal/storage"

	_ "modernc.org/sqlite"
)

// Dialect renders SQLite DDL.
var Dialect = ddl.Dialect{Name: "sqlite", Quote: quoteIdent}

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a file path or ":memory:".
	DSN   string
	Table string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens the database and returns a Repository plus a Close
// function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection keeps ":memory:" databases coherent across statements.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

// EnsureTable creates the configured table with one TEXT column per name.
func (r *Repository) EnsureTable(ctx context.Context, columns []string) error {
	stmt, err := ddl.BuildCreateTableSQL(ddl.TextTable(r.cfg.Table, columns, "TEXT"), Dialect)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

// CopyFrom inserts rows into the configured table.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	stmt := storage.InsertStatement(ddl.QuoteFQN(r.cfg.Table, quoteIdent), mapIdent(columns))
	n, err := storage.InsertTx(ctx, r.db, stmt, len(columns), rows)
	if err != nil {
		return n, fmt.Errorf("sqlite: %w", err)
	}
	return n, nil
}

// DB exposes the underlying handle.
func (r *Repository) DB() *sql.DB { return r.db }

func quoteIdent(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` }

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return out
}
