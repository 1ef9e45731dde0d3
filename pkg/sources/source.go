// Package sources owns the connection definitions of a tools file and the
// lazily created, shared connection handles behind them.
package sources

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

//go:generate mockgen -destination=mocks/mock_sources.go -package=sources_mocks -typed github.com/txn2/mcp-toolbox/pkg/sources Source,Connector

// Source is a live connection handle. Implementations must be safe for
// concurrent use; the registry shares one handle across all invocations.
type Source interface {
	// Name returns the source name from the tools file.
	Name() string

	// Kind returns the source kind (e.g., "postgres", "neo4j").
	Kind() string

	// Execute runs a bound statement and returns the normalized result.
	Execute(ctx context.Context, req Request) (*query.Result, error)

	// Ping checks the handle can still reach its backend.
	Ping(ctx context.Context) error

	// Close releases pooled connections.
	Close() error
}

// Request is a statement with its arguments bound. Args carries positional
// values, Vars carries named variables.
type Request struct {
	Statement string
	Args      []any
	Vars      map[string]any
	Mutates   bool
	ReadOnly  bool
}

// Connector creates the handle for one source. Connect performs network I/O
// and is only called on first resolution.
type Connector interface {
	Connect(ctx context.Context) (Source, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (Source, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context) (Source, error) {
	return f(ctx)
}

// Factory validates a spec without touching the network and returns its
// connector. Validation failures become InvalidSource errors.
type Factory func(spec Spec) (Connector, error)

// Spec is a source definition from the tools file. Which attributes are
// meaningful depends on Kind.
type Spec struct {
	Name string `yaml:"-" toml:"-" json:"name"`
	Kind string `yaml:"kind" toml:"kind" json:"kind"`

	Host     string `yaml:"host,omitempty" toml:"host" json:"host,omitempty"`
	Port     string `yaml:"port,omitempty" toml:"port" json:"port,omitempty"`
	Database string `yaml:"database,omitempty" toml:"database" json:"database,omitempty"`
	User     string `yaml:"user,omitempty" toml:"user" json:"user,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password" json:"-"`
	SSLMode  string `yaml:"sslmode,omitempty" toml:"sslmode" json:"sslmode,omitempty"`

	// Cloud SQL
	Project  string `yaml:"project,omitempty" toml:"project" json:"project,omitempty"`
	Region   string `yaml:"region,omitempty" toml:"region" json:"region,omitempty"`
	Instance string `yaml:"instance,omitempty" toml:"instance" json:"instance,omitempty"`
	IPType   string `yaml:"ipType,omitempty" toml:"ipType" json:"ipType,omitempty"`

	// Dgraph
	DgraphURL string `yaml:"dgraphUrl,omitempty" toml:"dgraphUrl" json:"dgraphUrl,omitempty"`
	APIKey    string `yaml:"apiKey,omitempty" toml:"apiKey" json:"-"`
	Namespace uint64 `yaml:"namespace,omitempty" toml:"namespace" json:"namespace,omitempty"`

	// Neo4j
	URI string `yaml:"uri,omitempty" toml:"uri" json:"uri,omitempty"`

	// Trino
	Catalog string `yaml:"catalog,omitempty" toml:"catalog" json:"catalog,omitempty"`
	Schema  string `yaml:"schema,omitempty" toml:"schema" json:"schema,omitempty"`

	// SQLite
	Path string `yaml:"path,omitempty" toml:"path" json:"path,omitempty"`

	MaxOpenConns int `yaml:"maxOpenConns,omitempty" toml:"maxOpenConns" json:"maxOpenConns,omitempty"`
}

// Require returns an InvalidSource error listing every named attribute that
// is empty.
func (s Spec) Require(attrs ...string) error {
	var missing []string
	for _, a := range attrs {
		if s.attr(a) == "" {
			missing = append(missing, a)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return toolerr.New(toolerr.KindInvalidSource, "source %q (%s): missing %s",
		s.Name, s.Kind, strings.Join(missing, ", "))
}

// PortNumber parses Port, falling back to def when it is empty.
func (s Spec) PortNumber(def int) (int, error) {
	if s.Port == "" {
		return def, nil
	}
	p, err := strconv.Atoi(s.Port)
	if err != nil || p <= 0 || p > 65535 {
		return 0, toolerr.New(toolerr.KindInvalidSource, "source %q: invalid port %q", s.Name, s.Port)
	}
	return p, nil
}

// Invalid builds an InvalidSource error for this spec.
func (s Spec) Invalid(format string, args ...any) error {
	return toolerr.New(toolerr.KindInvalidSource, "source %q (%s): %s", s.Name, s.Kind, fmt.Sprintf(format, args...))
}

func (s Spec) attr(name string) string {
	switch name {
	case "host":
		return s.Host
	case "port":
		return s.Port
	case "database":
		return s.Database
	case "user":
		return s.User
	case "password":
		return s.Password
	case "project":
		return s.Project
	case "region":
		return s.Region
	case "instance":
		return s.Instance
	case "dgraphUrl":
		return s.DgraphURL
	case "uri":
		return s.URI
	case "catalog":
		return s.Catalog
	case "schema":
		return s.Schema
	case "path":
		return s.Path
	default:
		return ""
	}
}
