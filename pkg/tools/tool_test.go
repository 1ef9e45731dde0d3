package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	sources_mocks "github.com/txn2/mcp-toolbox/pkg/sources/mocks"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

func searchHotels() Spec {
	return Spec{
		Name:        "search-hotels-by-name",
		Kind:        KindPostgresSQL,
		Source:      "my-pg-source",
		Description: "Search for hotels based on name.",
		Parameters: []Parameter{
			{Name: "name", Type: TypeString, Description: "The name of the hotel."},
		},
		Statement: "SELECT * FROM hotels WHERE name ILIKE '%' || $1 || '%';",
	}
}

func TestCompileAndExecute(t *testing.T) {
	backends := Builtin()
	tool, err := Compile(searchHotels(), backends[KindPostgresSQL], statement.UnusedError)
	require.NoError(t, err)
	assert.False(t, tool.Mutates())
	assert.Equal(t, "search-hotels-by-name (postgres-sql on my-pg-source)", tool.String())

	ctrl := gomock.NewController(t)
	src := sources_mocks.NewMockSource(ctrl)
	want := query.Rows([]string{"id"}, []map[string]any{{"id": int64(1)}})
	src.EXPECT().Execute(gomock.Any(), sources.Request{
		Statement: tool.Spec.Statement,
		Args:      []any{"Hilton"},
	}).Return(want, nil)

	got, err := tool.Execute(context.Background(), src, map[string]any{"name": "Hilton"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCompileRejectsInvalidSpecs(t *testing.T) {
	backend := Builtin()[KindPostgresSQL]
	tests := []struct {
		name   string
		mutate func(*Spec)
		kind   toolerr.Kind
	}{
		{"no name", func(s *Spec) { s.Name = "" }, toolerr.KindConfig},
		{"no kind", func(s *Spec) { s.Kind = "" }, toolerr.KindConfig},
		{"no source", func(s *Spec) { s.Source = "" }, toolerr.KindConfig},
		{"negative timeout", func(s *Spec) { s.Timeout = -1 }, toolerr.KindConfig},
		{"bad param type", func(s *Spec) { s.Parameters[0].Type = "text" }, toolerr.KindConfig},
		{"duplicate param", func(s *Spec) { s.Parameters = append(s.Parameters, s.Parameters[0]) }, toolerr.KindConfig},
		{"undeclared placeholder", func(s *Spec) { s.Statement = "SELECT $1, $2" }, toolerr.KindCompile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := searchHotels()
			tt.mutate(&spec)
			_, err := Compile(spec, backend, statement.UnusedWarn)
			require.Error(t, err)
			assert.Equal(t, tt.kind, toolerr.KindOf(err))
		})
	}
}

func TestDQLBackend(t *testing.T) {
	b := DQLBackend{}
	assert.True(t, Supports(b, "dgraph"))
	assert.False(t, Supports(b, "postgres"))

	q, err := b.Compile(Spec{
		Name:       "search-films",
		Statement:  "query all($name: string) { films(func: anyofterms(name@en, $name)) { uid } }",
		Parameters: []Parameter{{Name: "name", Type: TypeString}},
		IsQuery:    true,
	}, statement.UnusedError)
	require.NoError(t, err)
	assert.False(t, q.Mutates)

	m, err := b.Compile(Spec{
		Name:       "add-film",
		Statement:  `{"set": [{"name@en": "$name"}]}`,
		Parameters: []Parameter{{Name: "name", Type: TypeString}},
	}, statement.UnusedError)
	require.NoError(t, err)
	assert.True(t, m.Mutates)
	assert.Equal(t, "dql-json", m.Dialect)

	rdf, err := b.Compile(Spec{Name: "seed", Statement: `{ set { _:a <name> "A" . } }`}, statement.UnusedError)
	require.NoError(t, err)
	assert.True(t, rdf.Mutates)

	_, err = b.Compile(Spec{
		Name:       "rdf-params",
		Statement:  `{ set { _:a <name> $name . } }`,
		Parameters: []Parameter{{Name: "name", Type: TypeString}},
	}, statement.UnusedError)
	assert.True(t, errors.Is(err, toolerr.ErrCompile))

	_, err = b.Compile(Spec{Name: "confused", Statement: `{ set { _:a <name> "A" . } }`, IsQuery: true}, statement.UnusedError)
	assert.True(t, errors.Is(err, toolerr.ErrCompile))
}

func TestCypherReadOnlyRouting(t *testing.T) {
	spec := Spec{
		Name:       "friends",
		Kind:       KindCypher,
		Source:     "graph",
		Statement:  "MATCH (p:Person {name: $name})-[:KNOWS]->(f) RETURN f.name AS name",
		Parameters: []Parameter{{Name: "name", Type: TypeString}},
		ReadOnly:   true,
	}
	tool, err := Compile(spec, Builtin()[KindCypher], statement.UnusedError)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	src := sources_mocks.NewMockSource(ctrl)
	src.EXPECT().Execute(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req sources.Request) (*query.Result, error) {
			assert.True(t, req.ReadOnly)
			assert.Nil(t, req.Args)
			assert.Equal(t, map[string]any{"name": "Ada"}, req.Vars)
			return query.Rows(nil, nil), nil
		})
	_, err = tool.Execute(context.Background(), src, map[string]any{"name": "Ada"})
	require.NoError(t, err)
}

func TestManifestAndSchema(t *testing.T) {
	spec := searchHotels()
	spec.Parameters = append(spec.Parameters,
		Parameter{Name: "limit", Type: TypeInteger, Default: 10},
		Parameter{Name: "ids", Type: TypeArray, Items: &Parameter{Type: TypeFloat}, Required: boolPtr(false)},
	)
	spec.Statement = "SELECT * FROM hotels WHERE name ILIKE '%' || $1 || '%' LIMIT $2"
	tool, err := Compile(spec, Builtin()[KindPostgresSQL], statement.UnusedIgnore)
	require.NoError(t, err)

	m := tool.Manifest()
	assert.Equal(t, "Search for hotels based on name.", m.Description)
	require.Len(t, m.Parameters, 3)
	assert.Equal(t, ParameterManifest{Name: "name", Type: TypeString, Description: "The name of the hotel.", Required: true}, m.Parameters[0])
	assert.False(t, m.Parameters[1].Required)
	assert.Equal(t, TypeFloat, m.Parameters[2].Items.Type)

	schema := tool.InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"name"}, schema["required"])
	props := schema["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "description": "The name of the hotel."}, props["name"])
	assert.Equal(t, map[string]any{"type": "integer", "default": 10}, props["limit"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{"type": "number"}}, props["ids"])
}

func TestBackendsKinds(t *testing.T) {
	assert.Equal(t, []string{KindDQL, KindCypher, KindPostgresSQL, KindSQLiteSQL, KindTrinoSQL}, Builtin().Kinds())
}
