package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

// Backend is the capability set behind one tool kind: which sources it can
// run on, how its statements compile and how a bound plan executes.
type Backend interface {
	// SourceKinds lists the source kinds this tool kind can run against.
	SourceKinds() []string

	// Compile builds the executable plan for spec.
	Compile(spec Spec, policy statement.UnusedPolicy) (*statement.Compiled, error)

	// Execute runs a bound plan on src.
	Execute(ctx context.Context, src sources.Source, spec Spec, b statement.Bound) (*query.Result, error)
}

// Tool kinds.
const (
	KindPostgresSQL = "postgres-sql"
	KindSQLiteSQL   = "sqlite-sql"
	KindTrinoSQL    = "trino-sql"
	KindCypher      = "neo4j-cypher"
	KindDQL         = "dgraph-dql"
)

// Backends maps tool kinds to their backends.
type Backends map[string]Backend

// Builtin returns the backends for every built-in tool kind.
func Builtin() Backends {
	return Backends{
		KindPostgresSQL: SQLBackend{Dialect: statement.Postgres, Sources: []string{"postgres", "cloud-sql-postgres"}},
		KindSQLiteSQL:   SQLBackend{Dialect: statement.SQLite, Sources: []string{"sqlite"}},
		KindTrinoSQL:    SQLBackend{Dialect: statement.Trino, Sources: []string{"trino"}},
		KindCypher:      SQLBackend{Dialect: statement.Cypher, Sources: []string{"neo4j"}},
		KindDQL:         DQLBackend{},
	}
}

// RegisterKind adds or replaces the backend for kind.
func (b Backends) RegisterKind(kind string, backend Backend) {
	b[kind] = backend
}

// Kinds returns the registered tool kinds, sorted.
func (b Backends) Kinds() []string {
	kinds := make([]string, 0, len(b))
	for k := range b {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Supports reports whether backend can run on a source of sourceKind.
func Supports(backend Backend, sourceKind string) bool {
	for _, k := range backend.SourceKinds() {
		if k == sourceKind {
			return true
		}
	}
	return false
}

// SQLBackend compiles a statement with a fixed dialect and hands the bound
// plan to the source unchanged. It serves the SQL kinds and Cypher.
type SQLBackend struct {
	Dialect statement.Dialect
	Sources []string
}

// SourceKinds implements Backend.
func (b SQLBackend) SourceKinds() []string { return b.Sources }

// Compile implements Backend.
func (b SQLBackend) Compile(spec Spec, policy statement.UnusedPolicy) (*statement.Compiled, error) {
	return statement.Compile(input(spec), b.Dialect, policy)
}

// Execute implements Backend.
func (b SQLBackend) Execute(ctx context.Context, src sources.Source, spec Spec, bound statement.Bound) (*query.Result, error) {
	return src.Execute(ctx, request(spec, bound))
}

// DQLBackend serves dgraph-dql tools. isQuery selects the query path; other
// statements are mutations, either RDF blocks without parameters or JSON
// templates whose "$name" leaves take typed arguments.
type DQLBackend struct{}

// SourceKinds implements Backend.
func (DQLBackend) SourceKinds() []string { return []string{"dgraph"} }

// Compile implements Backend.
func (DQLBackend) Compile(spec Spec, policy statement.UnusedPolicy) (*statement.Compiled, error) {
	d := statement.DQL
	if !spec.IsQuery {
		switch {
		case json.Valid([]byte(strings.TrimSpace(spec.Statement))):
			d = statement.DQLJSONMutation
		case len(spec.Parameters) > 0:
			return nil, toolerr.New(toolerr.KindCompile,
				"tool %q: RDF mutations cannot take parameters; use a JSON mutation template", spec.Name)
		default:
			d.Writes = func(string) bool { return true }
		}
	}
	c, err := statement.Compile(input(spec), d, policy)
	if err != nil {
		return nil, err
	}
	if spec.IsQuery && c.Mutates {
		return nil, toolerr.New(toolerr.KindCompile, "tool %q: isQuery is set but the statement is a mutation", spec.Name)
	}
	return c, nil
}

// Execute implements Backend.
func (DQLBackend) Execute(ctx context.Context, src sources.Source, spec Spec, bound statement.Bound) (*query.Result, error) {
	return src.Execute(ctx, request(spec, bound))
}

func input(spec Spec) statement.Input {
	return statement.Input{
		Tool:      spec.Name,
		Statement: spec.Statement,
		Params:    spec.ParamNames(),
		ReadOnly:  spec.ReadOnly,
	}
}

func request(spec Spec, b statement.Bound) sources.Request {
	return sources.Request{
		Statement: b.Text,
		Args:      b.Args,
		Vars:      b.Vars,
		Mutates:   b.Mutates,
		ReadOnly:  spec.ReadOnly,
	}
}
