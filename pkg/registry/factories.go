package registry

import (
	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/sources/dgraph"
	"github.com/txn2/mcp-toolbox/pkg/sources/neo4j"
	"github.com/txn2/mcp-toolbox/pkg/sources/postgres"
	"github.com/txn2/mcp-toolbox/pkg/sources/sqlite"
	"github.com/txn2/mcp-toolbox/pkg/sources/trino"
)

// BuiltinSourceFactories returns the connector factories for every built-in
// source kind.
func BuiltinSourceFactories() map[string]sources.Factory {
	return map[string]sources.Factory{
		postgres.Kind:         postgres.Factory,
		postgres.CloudSQLKind: postgres.CloudSQLFactory,
		sqlite.Kind:           sqlite.Factory,
		trino.Kind:            trino.Factory,
		neo4j.Kind:            neo4j.Factory,
		dgraph.Kind:           dgraph.Factory,
	}
}
