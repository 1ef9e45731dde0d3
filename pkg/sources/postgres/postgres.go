// Package postgres provides the "postgres" and "cloud-sql-postgres" source
// kinds on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/sources"
)

// Source kinds.
const (
	Kind         = "postgres"
	CloudSQLKind = "cloud-sql-postgres"
)

const defaultPort = 5432

// Factory validates a postgres spec.
func Factory(spec sources.Spec) (sources.Connector, error) {
	if err := spec.Require("host", "user", "database"); err != nil {
		return nil, err
	}
	if _, err := spec.PortNumber(defaultPort); err != nil {
		return nil, err
	}
	return sources.ConnectorFunc(func(ctx context.Context) (sources.Source, error) {
		cfg, err := poolConfig(spec)
		if err != nil {
			return nil, err
		}
		return open(ctx, spec, cfg, nil)
	}), nil
}

// Source is a sources.Source backed by a pgx pool.
type Source struct {
	name    string
	kind    string
	pool    *pgxpool.Pool
	onClose func() error
}

func open(ctx context.Context, spec sources.Spec, cfg *pgxpool.Config, onClose func() error) (*Source, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s: %w", spec.Name, err)
	}
	return &Source{name: spec.Name, kind: spec.Kind, pool: pool, onClose: onClose}, nil
}

// Name implements sources.Source.
func (s *Source) Name() string { return s.name }

// Kind implements sources.Source.
func (s *Source) Kind() string { return s.kind }

// Pool returns the underlying pool.
func (s *Source) Pool() *pgxpool.Pool { return s.pool }

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Execute implements sources.Source. Statements that return no columns are
// reported as a rows-affected confirmation. Read-only tools run inside a
// READ ONLY transaction so the server rejects any write they attempt.
func (s *Source) Execute(ctx context.Context, req sources.Request) (*query.Result, error) {
	if !req.ReadOnly {
		return run(ctx, s.pool, req)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	res, err := run(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing read-only transaction: %w", err)
	}
	return res, nil
}

func run(ctx context.Context, q querier, req sources.Request) (*query.Result, error) {
	rows, err := q.Query(ctx, req.Statement, req.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	records := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			rec[col] = normalize(values[i])
		}
		records = append(records, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return query.Affected(rows.CommandTag().RowsAffected()), nil
	}
	return query.Rows(columns, records), nil
}

// Ping implements sources.Source.
func (s *Source) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements sources.Source.
func (s *Source) Close() error {
	s.pool.Close()
	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}

// normalize handles pgx value types before the generic normalization.
func normalize(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	default:
		return query.NormalizeValue(v)
	}
}

func poolConfig(spec sources.Spec) (*pgxpool.Config, error) {
	port, err := spec.PortNumber(defaultPort)
	if err != nil {
		return nil, err
	}
	parts := []string{
		kv("host", spec.Host),
		fmt.Sprintf("port=%d", port),
		kv("user", spec.User),
		kv("dbname", spec.Database),
	}
	if spec.Password != "" {
		parts = append(parts, kv("password", spec.Password))
	}
	if spec.SSLMode != "" {
		parts = append(parts, kv("sslmode", spec.SSLMode))
	}
	return parseConfig(spec, strings.Join(parts, " "))
}

func parseConfig(spec sources.Spec, connStr string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, spec.Invalid("parsing connection string: %v", err)
	}
	if spec.MaxOpenConns > 0 {
		cfg.MaxConns = int32(spec.MaxOpenConns) //nolint:gosec // bounded by config validation
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "mcp-toolbox"
	return cfg, nil
}

// kv formats one keyword/value pair, quoting the value.
func kv(key, value string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return key + "='" + r.Replace(value) + "'"
}
