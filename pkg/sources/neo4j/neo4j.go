// Package neo4j provides the "neo4j" source kind on the official Go driver.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/sources"
)

// Kind is the source kind name.
const Kind = "neo4j"

// Factory validates a neo4j spec.
func Factory(spec sources.Spec) (sources.Connector, error) {
	if err := spec.Require("uri"); err != nil {
		return nil, err
	}
	if spec.User != "" && spec.Password == "" {
		return nil, spec.Invalid("password is required when user is set")
	}
	return sources.ConnectorFunc(func(ctx context.Context) (sources.Source, error) {
		return Open(ctx, spec)
	}), nil
}

// Source is a sources.Source backed by a neo4j driver.
type Source struct {
	name     string
	database string
	driver   neo4j.DriverWithContext
}

// Open creates the driver and verifies connectivity.
func Open(ctx context.Context, spec sources.Spec) (*Source, error) {
	auth := neo4j.NoAuth()
	if spec.User != "" {
		auth = neo4j.BasicAuth(spec.User, spec.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(spec.URI, auth)
	if err != nil {
		return nil, spec.Invalid("creating driver: %v", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verifying connectivity to %s: %w", spec.URI, err)
	}
	return &Source{name: spec.Name, database: spec.Database, driver: driver}, nil
}

// Name implements sources.Source.
func (s *Source) Name() string { return s.name }

// Kind implements sources.Source.
func (s *Source) Kind() string { return Kind }

// Execute implements sources.Source. Statements that do not write are routed
// to readers in a cluster. Read-only tools run in a read-access session, so
// the server rejects any write they attempt.
func (s *Source) Execute(ctx context.Context, req sources.Request) (*query.Result, error) {
	if req.ReadOnly {
		return s.executeRead(ctx, req)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	if s.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(s.database))
	}
	if !req.Mutates {
		opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
	} else {
		opts = append(opts, neo4j.ExecuteQueryWithWritersRouting())
	}

	res, err := neo4j.ExecuteQuery(ctx, s.driver, req.Statement, req.Vars, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, err
	}

	var counters updateCounters
	if res.Summary != nil {
		counters = res.Summary.Counters()
	}
	return toResult(res.Keys, res.Records, counters, req.Mutates), nil
}

func (s *Source) executeRead(ctx context.Context, req sources.Request) (*query.Result, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer func() { _ = session.Close(context.WithoutCancel(ctx)) }()

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, req.Statement, req.Vars)
		if err != nil {
			return nil, err
		}
		keys, err := res.Keys()
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return toResult(keys, records, nil, false), nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*query.Result), nil
}

// Ping implements sources.Source.
func (s *Source) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close implements sources.Source.
func (s *Source) Close() error {
	return s.driver.Close(context.Background())
}

// updateCounters is the subset of neo4j.Counters used to report mutations.
type updateCounters interface {
	NodesCreated() int
	NodesDeleted() int
	RelationshipsCreated() int
	RelationshipsDeleted() int
	PropertiesSet() int
}

// toResult converts records to a normalized result. A mutating statement
// without a RETURN clause reports the number of entities it touched.
func toResult(keys []string, records []*neo4j.Record, counters updateCounters, mutates bool) *query.Result {
	if len(keys) == 0 && mutates {
		if counters == nil {
			return query.Affected(-1)
		}
		n := counters.NodesCreated() + counters.NodesDeleted() +
			counters.RelationshipsCreated() + counters.RelationshipsDeleted() +
			counters.PropertiesSet()
		return query.Affected(int64(n))
	}

	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		rec := make(map[string]any, len(r.Keys))
		for i, k := range r.Keys {
			rec[k] = normalize(r.Values[i])
		}
		out = append(out, rec)
	}
	return query.Rows(keys, out)
}

func normalize(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return map[string]any{
			"elementId":  val.ElementId,
			"labels":     val.Labels,
			"properties": normalizeMap(val.Props),
		}
	case dbtype.Relationship:
		return map[string]any{
			"elementId":      val.ElementId,
			"type":           val.Type,
			"startElementId": val.StartElementId,
			"endElementId":   val.EndElementId,
			"properties":     normalizeMap(val.Props),
		}
	case dbtype.Path:
		nodes := make([]any, len(val.Nodes))
		for i, n := range val.Nodes {
			nodes[i] = normalize(n)
		}
		rels := make([]any, len(val.Relationships))
		for i, r := range val.Relationships {
			rels[i] = normalize(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		return normalizeMap(val)
	default:
		return query.NormalizeValue(v)
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}
