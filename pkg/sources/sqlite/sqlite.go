// Package sqlite provides the "sqlite" source kind on modernc.org/sqlite.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/sources/sqlutil"
)

// Kind is the source kind name.
const Kind = "sqlite"

const memoryPath = ":memory:"

// Factory validates a sqlite spec. Path is a database file or ":memory:".
func Factory(spec sources.Spec) (sources.Connector, error) {
	if err := spec.Require("path"); err != nil {
		return nil, err
	}
	return sources.ConnectorFunc(func(ctx context.Context) (sources.Source, error) {
		return Open(ctx, spec)
	}), nil
}

// Open connects to the database file and verifies it with a ping.
func Open(ctx context.Context, spec sources.Spec) (*sqlutil.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", DSN(spec.Path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", spec.Path, err)
	}

	// Each connection to :memory: is a separate database.
	if spec.Path == memoryPath {
		db.SetMaxOpenConns(1)
	} else if spec.MaxOpenConns > 0 {
		db.SetMaxOpenConns(spec.MaxOpenConns)
	}

	return sqlutil.New(spec.Name, Kind, db,
		sqlutil.WithReadOnlySession("PRAGMA query_only = ON", "PRAGMA query_only = OFF")), nil
}

// DSN builds the modernc connection string for path.
func DSN(path string) string {
	if path == memoryPath {
		return memoryPath
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
