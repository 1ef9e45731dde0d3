// Package sqlutil adapts a database/sql pool (through sqlx) to sources.Source.
// SQLite and Trino sources share it.
package sqlutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/sources"
)

var returningPattern = regexp.MustCompile(`(?i)\bRETURNING\b`)

// DB is a sources.Source backed by a *sqlx.DB.
type DB struct {
	name     string
	kind     string
	db       *sqlx.DB
	readOnly *readOnlySession
}

// readOnlySession holds the statements that switch one connection into and
// out of a mode where the database refuses writes.
type readOnlySession struct {
	enter string
	leave string
}

// Option configures a DB.
type Option func(*DB)

// WithReadOnlySession runs read-only requests on a dedicated connection
// switched into a write-refusing mode with enter and restored with leave
// (for SQLite, PRAGMA query_only).
func WithReadOnlySession(enter, leave string) Option {
	return func(d *DB) {
		d.readOnly = &readOnlySession{enter: enter, leave: leave}
	}
}

// New wraps db as a source.
func New(name, kind string, db *sqlx.DB, opts ...Option) *DB {
	d := &DB{name: name, kind: kind, db: db}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements sources.Source.
func (d *DB) Name() string { return d.name }

// Kind implements sources.Source.
func (d *DB) Kind() string { return d.kind }

// DB returns the underlying pool.
func (d *DB) DB() *sqlx.DB { return d.db }

// Execute implements sources.Source. Mutations without a RETURNING clause
// go through Exec and report rows affected; everything else is scanned.
func (d *DB) Execute(ctx context.Context, req sources.Request) (*query.Result, error) {
	if req.ReadOnly && d.readOnly != nil {
		return d.executeReadOnly(ctx, req)
	}
	return Execute(ctx, d.db, req)
}

func (d *DB) executeReadOnly(ctx context.Context, req sources.Request) (*query.Result, error) {
	conn, err := d.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, d.readOnly.enter); err != nil {
		return nil, fmt.Errorf("entering read-only session: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), d.readOnly.leave); err != nil {
			// a connection left read-only must not go back to the pool
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
	}()

	return Execute(ctx, conn, req)
}

// Ping implements sources.Source.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close implements sources.Source.
func (d *DB) Close() error {
	return d.db.Close()
}

// Queryer is satisfied by *sqlx.DB, *sqlx.Conn and *sqlx.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

// Execute runs req against db.
func Execute(ctx context.Context, db Queryer, req sources.Request) (*query.Result, error) {
	if req.Mutates && !returningPattern.MatchString(req.Statement) {
		res, err := db.ExecContext(ctx, req.Statement, req.Args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = -1
		}
		return query.Affected(n), nil
	}

	rows, err := db.QueryxContext(ctx, req.Statement, req.Args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return ScanRows(rows)
}

// ScanRows drains rows into a normalized result.
func ScanRows(rows *sqlx.Rows) (*query.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	records := make([]map[string]any, 0)
	for rows.Next() {
		rec := make(map[string]any, len(columns))
		if err := rows.MapScan(rec); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		records = append(records, query.NormalizeRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return query.Rows(columns, records), nil
}
