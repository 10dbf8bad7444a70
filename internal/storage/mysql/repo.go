// Package mysql implements a MySQL-backed storage.Repository using
// database/sql and github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"csvformatter/internal/ddl"
	"csvformatter/internal/storage"
)

// Dialect renders MySQL DDL.
var Dialect = ddl.Dialect{Name: "mysql", Quote: myIdent}

// Config holds MySQL repository configuration. DSN is in the driver's native
// form, e.g. "user:pw@tcp(host:3306)/db".
type Config struct {
	DSN   string
	Table string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a pool and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, func() { _ = db.Close() }, nil
}

// EnsureTable creates the configured table with one LONGTEXT column per name.
func (r *Repository) EnsureTable(ctx context.Context, columns []string) error {
	stmt, err := ddl.BuildCreateTableSQL(ddl.TextTable(r.cfg.Table, columns, "LONGTEXT"), Dialect)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mysql: create table: %w", err)
	}
	return nil
}

// CopyFrom inserts rows in a single transaction.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = myIdent(c)
	}
	stmt := storage.InsertStatement(ddl.QuoteFQN(r.cfg.Table, myIdent), quoted)
	n, err := storage.InsertTx(ctx, r.db, stmt, len(columns), rows)
	if err != nil {
		return n, fmt.Errorf("mysql: %w", err)
	}
	return n, nil
}

func myIdent(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" }
