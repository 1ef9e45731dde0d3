package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	sources_mocks "github.com/txn2/mcp-toolbox/pkg/sources/mocks"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

const fakeKind = "fake"

func hotelConfig(path string) registry.Config {
	return registry.Config{
		Sources: map[string]sources.Spec{
			"my-sqlite": {Kind: "sqlite", Path: path},
		},
		Tools: map[string]tools.Spec{
			"search-hotels-by-name": {
				Kind:        tools.KindSQLiteSQL,
				Source:      "my-sqlite",
				Description: "Search for hotels based on name.",
				Parameters: []tools.Parameter{
					{Name: "name", Type: tools.TypeString, Description: "The name of the hotel."},
				},
				Statement: "SELECT * FROM hotels WHERE name LIKE '%' || ? || '%'",
			},
			"book-hotel": {
				Kind:        tools.KindSQLiteSQL,
				Source:      "my-sqlite",
				Description: "Book a hotel by its ID.",
				Parameters: []tools.Parameter{
					{Name: "hotel_id", Type: tools.TypeInteger, Description: "The ID of the hotel to book."},
				},
				Statement: "UPDATE hotels SET booked = 1 WHERE id = ?",
			},
		},
		Toolsets: map[string][]string{
			"my-toolset": {"search-hotels-by-name", "book-hotel"},
		},
		UnusedParameters: statement.UnusedWarn,
	}
}

func TestLoadAndGet(t *testing.T) {
	reg := registry.New(registry.WithVersion("1.2.3"))
	require.NoError(t, reg.Load(context.Background(), hotelConfig(t.TempDir()+"/hotels.db")))

	tool, err := reg.Get("search-hotels-by-name")
	require.NoError(t, err)
	assert.Equal(t, "search-hotels-by-name", tool.Spec.Name)
	assert.Equal(t, []tools.Parameter{
		{Name: "name", Type: tools.TypeString, Description: "The name of the hotel."},
	}, tool.Spec.Parameters)
	assert.Equal(t, []string{"name"}, tool.Compiled.Consumed)

	_, err = reg.Get("nope")
	assert.True(t, errors.Is(err, toolerr.ErrToolNotFound))

	snap := reg.Current()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(1), snap.Generation())
	assert.Equal(t, []string{"my-sqlite"}, snap.Sources().Names())
	assert.False(t, snap.Sources().Status()[0].Connected, "load must not connect")

	require.NoError(t, reg.Close(context.Background()))
	assert.Nil(t, reg.Current())
}

func TestListToolset(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Load(context.Background(), hotelConfig(t.TempDir()+"/hotels.db")))

	names, err := reg.ListToolset("my-toolset")
	require.NoError(t, err)
	assert.Equal(t, []string{"search-hotels-by-name", "book-hotel"}, names)

	all, err := reg.ListToolset("")
	require.NoError(t, err)
	assert.Equal(t, []string{"book-hotel", "search-hotels-by-name"}, all)

	_, err = reg.ListToolset("missing")
	assert.True(t, errors.Is(err, toolerr.ErrToolsetNotFound))

	assert.Equal(t, []string{"my-toolset"}, reg.Current().Toolsets())
}

func TestLoadUndefinedSourceIsAtomic(t *testing.T) {
	reg := registry.New()
	cfg := hotelConfig(t.TempDir() + "/hotels.db")
	require.NoError(t, reg.Load(context.Background(), cfg))
	before := reg.Current()

	cfg.Tools["list-flights"] = tools.Spec{
		Kind:      tools.KindPostgresSQL,
		Source:    "my-pg-instance",
		Statement: "SELECT * FROM flights",
	}
	err := reg.Load(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrConfig))
	assert.Contains(t, err.Error(), `source "my-pg-instance" is not defined`)

	assert.Same(t, before, reg.Current())
	_, err = reg.Get("list-flights")
	assert.True(t, errors.Is(err, toolerr.ErrToolNotFound))
	_, err = reg.Get("book-hotel")
	assert.NoError(t, err)
}

func TestLoadCollectsEveryProblem(t *testing.T) {
	reg := registry.New()
	cfg := registry.Config{
		Sources: map[string]sources.Spec{
			"broken": {Kind: "postgres"},
			"lite":   {Kind: "sqlite", Path: ":memory:"},
		},
		Tools: map[string]tools.Spec{
			"wrong-kind": {Kind: "mongo-find", Source: "lite", Statement: "x"},
			"mismatch":   {Kind: tools.KindPostgresSQL, Source: "lite", Statement: "SELECT 1"},
			"bad-sql": {
				Kind:      tools.KindSQLiteSQL,
				Source:    "lite",
				Statement: "SELECT ?, ?",
				Parameters: []tools.Parameter{
					{Name: "a", Type: tools.TypeString},
				},
			},
		},
		Toolsets: map[string][]string{
			"set": {"ghost"},
		},
	}

	err := reg.Load(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrConfig))
	assert.True(t, errors.Is(err, toolerr.ErrInvalidSource))
	assert.True(t, errors.Is(err, toolerr.ErrCompile))

	msg := err.Error()
	assert.Contains(t, msg, "5 problem(s)")
	assert.Contains(t, msg, `unknown kind "mongo-find"`)
	assert.Contains(t, msg, `cannot run on sqlite source "lite"`)
	assert.Contains(t, msg, `unknown tool "ghost"`)
	assert.Nil(t, reg.Current())
}

func TestManifest(t *testing.T) {
	reg := registry.New(registry.WithVersion("1.2.3"))

	empty, err := reg.Manifest("")
	require.NoError(t, err)
	assert.Empty(t, empty.Tools)

	require.NoError(t, reg.Load(context.Background(), hotelConfig(t.TempDir()+"/hotels.db")))

	m, err := reg.Manifest("my-toolset")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", m.ServerVersion)
	require.Len(t, m.Tools, 2)
	assert.Equal(t, "Book a hotel by its ID.", m.Tools["book-hotel"].Description)
	assert.Equal(t, tools.TypeInteger, m.Tools["book-hotel"].Parameters[0].Type)

	one, err := reg.ToolManifest("search-hotels-by-name")
	require.NoError(t, err)
	assert.Len(t, one.Tools, 1)

	_, err = reg.ToolManifest("ghost")
	assert.True(t, errors.Is(err, toolerr.ErrToolNotFound))
	_, err = reg.Manifest("ghost")
	assert.True(t, errors.Is(err, toolerr.ErrToolsetNotFound))
}

func fakeRegistry(conn sources.Connector) *registry.Registry {
	backends := tools.Builtin()
	backends.RegisterKind("fake-sql", tools.SQLBackend{Dialect: statement.Postgres, Sources: []string{fakeKind}})
	return registry.New(
		registry.WithBackends(backends),
		registry.WithSourceFactories(map[string]sources.Factory{
			fakeKind: func(spec sources.Spec) (sources.Connector, error) {
				return conn, nil
			},
		}),
		registry.WithDrainTimeout(5*time.Second),
	)
}

func fakeConfig(statementText string) registry.Config {
	return registry.Config{
		Sources: map[string]sources.Spec{"db": {Kind: fakeKind}},
		Tools: map[string]tools.Spec{
			"ping": {Kind: "fake-sql", Source: "db", Statement: statementText},
		},
	}
}

func TestReloadDrainsReplacedSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := sources_mocks.NewMockSource(ctrl)
	conn := sources_mocks.NewMockConnector(ctrl)
	conn.EXPECT().Connect(gomock.Any()).Return(src, nil)

	closed := make(chan struct{})
	src.EXPECT().Close().DoAndReturn(func() error {
		close(closed)
		return nil
	})

	reg := fakeRegistry(conn)

	var swaps []uint64
	reg.OnSwap(func(s *registry.Snapshot) { swaps = append(swaps, s.Generation()) })

	err := reg.Reload(context.Background(), fakeConfig("SELECT 1"))
	assert.True(t, errors.Is(err, toolerr.ErrConfig), "reload before load")

	require.NoError(t, reg.Load(context.Background(), fakeConfig("SELECT 1")))

	snap, release, err := reg.Acquire()
	require.NoError(t, err)
	_, releaseSrc, err := snap.Sources().Resolve(context.Background(), "db")
	require.NoError(t, err)

	require.NoError(t, reg.Reload(context.Background(), fakeConfig("SELECT 2")))
	assert.NotSame(t, snap, reg.Current())
	assert.Equal(t, []uint64{1, 2}, swaps)

	tool, err := reg.Get("ping")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", tool.Compiled.Text)

	select {
	case <-closed:
		t.Fatal("replaced snapshot closed while an invocation held it")
	case <-time.After(50 * time.Millisecond):
	}

	releaseSrc()
	release()
	release()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("replaced snapshot was never closed")
	}
	require.NoError(t, reg.Close(context.Background()))
}

func TestAcquireBeforeLoad(t *testing.T) {
	reg := registry.New()
	_, _, err := reg.Acquire()
	require.Error(t, err)

	names, err := reg.ListToolset("")
	require.NoError(t, err)
	assert.Empty(t, names)
	_, err = reg.ListToolset("x")
	assert.True(t, errors.Is(err, toolerr.ErrToolsetNotFound))
	_, err = reg.Get("x")
	assert.True(t, errors.Is(err, toolerr.ErrToolNotFound))
	assert.NoError(t, reg.Close(context.Background()))
}

func TestBuiltinSourceFactories(t *testing.T) {
	kinds := make([]string, 0)
	for k := range registry.BuiltinSourceFactories() {
		kinds = append(kinds, k)
	}
	assert.ElementsMatch(t, []string{"postgres", "cloud-sql-postgres", "sqlite", "trino", "neo4j", "dgraph"}, kinds)
}
