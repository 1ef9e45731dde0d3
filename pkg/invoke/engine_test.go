package invoke_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/txn2/mcp-toolbox/pkg/audit"
	"github.com/txn2/mcp-toolbox/pkg/invoke"
	"github.com/txn2/mcp-toolbox/pkg/middleware"
	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	sources_mocks "github.com/txn2/mcp-toolbox/pkg/sources/mocks"
	"github.com/txn2/mcp-toolbox/pkg/sources/sqlite"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

func TestSearchHotelsByName(t *testing.T) {
	engine := invoke.New(loadHotels(t))

	res, err := engine.Invoke(context.Background(), "search-hotels-by-name", map[string]any{"name": "Hilton"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.EqualValues(t, 1, res.Records[0]["id"])
	assert.Equal(t, "Hilton Basel", res.Records[0]["name"])
	assert.False(t, res.Mutation)
}

func TestBookThenUpdateHotel(t *testing.T) {
	engine := invoke.New(loadHotels(t))
	ctx := context.Background()

	res, err := engine.Invoke(ctx, "book-hotel", map[string]any{"hotel_id": 3})
	require.NoError(t, err)
	require.True(t, res.Mutation)
	require.NotNil(t, res.RowsAffected)
	assert.EqualValues(t, 1, *res.RowsAffected)
	assert.Equal(t, query.Confirmation{Status: "ok", RowsAffected: res.RowsAffected}, res.Payload())

	got, err := engine.Invoke(ctx, "get-hotel", map[string]any{"hotel_id": "3"})
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.EqualValues(t, 1, got.Records[0]["booked"])

	_, err = engine.Invoke(ctx, "update-hotel", map[string]any{
		"hotel_id":      float64(3),
		"checkin_date":  "2024-01-20",
		"checkout_date": "2024-01-22",
	})
	require.NoError(t, err)

	got, err = engine.Invoke(ctx, "get-hotel", map[string]any{"hotel_id": 3})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-20", got.Records[0]["checkin_date"])
	assert.Equal(t, "2024-01-22", got.Records[0]["checkout_date"])

	_, err = engine.Invoke(ctx, "cancel-hotel", map[string]any{"hotel_id": 3})
	require.NoError(t, err)
	got, err = engine.Invoke(ctx, "get-hotel", map[string]any{"hotel_id": 3})
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Records[0]["booked"])
}

func TestReadsAreIdempotent(t *testing.T) {
	engine := invoke.New(loadHotels(t))
	args := map[string]any{"location": "Basel"}

	first, err := engine.Invoke(context.Background(), "search-hotels-by-location", args)
	require.NoError(t, err)
	second, err := engine.Invoke(context.Background(), "search-hotels-by-location", args)
	require.NoError(t, err)

	assert.Len(t, first.Records, 3)
	assert.Equal(t, first.Records, second.Records)
}

func TestConcurrentInvocations(t *testing.T) {
	engine := invoke.New(loadHotels(t))

	const n = 32
	results := make([]*query.Result, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			res, err := engine.Invoke(context.Background(), "search-hotels-by-location", map[string]any{"location": "Zurich"})
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, res := range results {
		assert.Equal(t, results[0].Records, res.Records)
		assert.Len(t, res.Records, 3)
	}
}

func TestConcurrentIndependentOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)

	slow := sources_mocks.NewMockSource(ctrl)
	slow.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req sources.Request) (*query.Result, error) {
			if req.Args[0] == true {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return query.Rows([]string{"ok"}, []map[string]any{{"ok": true}}), nil
		}).AnyTimes()
	slow.EXPECT().Close().Return(nil).AnyTimes()
	slowConn := sources_mocks.NewMockConnector(ctrl)
	slowConn.EXPECT().Connect(gomock.Any()).Return(slow, nil).Times(1)

	downConn := sources_mocks.NewMockConnector(ctrl)
	downConn.EXPECT().Connect(gomock.Any()).Return(nil, errors.New("connection refused")).MinTimes(1)

	factories := registry.BuiltinSourceFactories()
	factories["fake"] = func(spec sources.Spec) (sources.Connector, error) {
		if spec.Name == "slow-db" {
			return slowConn, nil
		}
		return downConn, nil
	}
	backends := tools.Builtin()
	backends.RegisterKind("fake-sql", tools.SQLBackend{Dialect: statement.Postgres, Sources: []string{"fake"}})

	toolSpecs := hotelTools()
	toolSpecs["stall"] = tools.Spec{
		Kind:       "fake-sql",
		Source:     "slow-db",
		Statement:  "SELECT * FROM work WHERE stall = $1",
		Parameters: []tools.Parameter{{Name: "stall", Type: tools.TypeBoolean}},
		Timeout:    200 * time.Millisecond,
	}
	toolSpecs["unreachable"] = tools.Spec{Kind: "fake-sql", Source: "down-db", Statement: "SELECT 1"}

	reg := registry.New(registry.WithSourceFactories(factories), registry.WithBackends(backends))
	require.NoError(t, reg.Load(context.Background(), registry.Config{
		Sources: map[string]sources.Spec{
			"my-sqlite": {Kind: sqlite.Kind, Path: seedHotels(t)},
			"slow-db":   {Kind: "fake"},
			"down-db":   {Kind: "fake"},
		},
		Tools: toolSpecs,
		Retry: sources.RetryConfig{MaxAttempts: 1, InitialInterval: time.Millisecond},
	}))
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	engine := invoke.New(reg)

	const rounds = 8
	var (
		g        errgroup.Group
		mu       sync.Mutex
		timeouts int
		refused  int
		found    int
	)
	for range rounds {
		g.Go(func() error {
			_, err := engine.Invoke(context.Background(), "stall", map[string]any{"stall": true})
			if !errors.Is(err, toolerr.ErrTimeout) {
				return fmt.Errorf("stall: want timeout, got %v", err)
			}
			mu.Lock()
			timeouts++
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			_, err := engine.Invoke(context.Background(), "unreachable", nil)
			if !errors.Is(err, toolerr.ErrConnection) {
				return fmt.Errorf("unreachable: want connection error, got %v", err)
			}
			mu.Lock()
			refused++
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			res, err := engine.Invoke(context.Background(), "search-hotels-by-location", map[string]any{"location": "Zurich"})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(res.Records) != 3 {
				return fmt.Errorf("search: got %d records", len(res.Records))
			}
			mu.Lock()
			found++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, rounds, timeouts)
	assert.Equal(t, rounds, refused)
	assert.Equal(t, rounds, found)

	// the handle that timed out is shared and still serves requests
	res, err := engine.Invoke(context.Background(), "stall", map[string]any{"stall": false})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestToolNotFound(t *testing.T) {
	_, err := invoke.New(registry.New()).Invoke(context.Background(), "book-hotel", nil)
	assert.True(t, errors.Is(err, toolerr.ErrToolNotFound))

	_, err = invoke.New(loadHotels(t)).Invoke(context.Background(), "ghost", nil)
	assert.True(t, errors.Is(err, toolerr.ErrToolNotFound))
}

// fakeEngine loads one tool of kind fake-sql against a mocked connector.
func fakeEngine(t *testing.T, conn sources.Connector, spec tools.Spec, opts ...invoke.Option) *invoke.Engine {
	t.Helper()
	backends := tools.Builtin()
	backends.RegisterKind("fake-sql", tools.SQLBackend{Dialect: statement.Postgres, Sources: []string{"fake"}})
	reg := registry.New(
		registry.WithBackends(backends),
		registry.WithSourceFactories(map[string]sources.Factory{
			"fake": func(sources.Spec) (sources.Connector, error) { return conn, nil },
		}),
	)
	spec.Kind = "fake-sql"
	spec.Source = "db"
	require.NoError(t, reg.Load(context.Background(), registry.Config{
		Sources: map[string]sources.Spec{"db": {Kind: "fake"}},
		Tools:   map[string]tools.Spec{"t": spec},
		Retry:   sources.RetryConfig{MaxAttempts: 1, InitialInterval: time.Millisecond},
	}))
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return invoke.New(reg, opts...)
}

func TestInvalidArgumentsNeverReachBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No expectations: any Connect or Execute fails the test.
	conn := sources_mocks.NewMockConnector(ctrl)

	engine := fakeEngine(t, conn, tools.Spec{
		Statement: "SELECT * FROM hotels WHERE id = $1",
		Parameters: []tools.Parameter{
			{Name: "hotel_id", Type: tools.TypeInteger},
		},
	})

	cases := map[string]map[string]any{
		"missing":    {},
		"wrong type": {"hotel_id": "three"},
		"unknown":    {"hotel_id": 1, "extra": true},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Invoke(context.Background(), "t", args)
			require.Error(t, err)
			assert.True(t, errors.Is(err, toolerr.ErrInvalidArgument))
			var te *toolerr.Error
			require.True(t, errors.As(err, &te))
			assert.NotEmpty(t, te.Param)
		})
	}
}

func TestTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := sources_mocks.NewMockSource(ctrl)
	conn := sources_mocks.NewMockConnector(ctrl)
	conn.EXPECT().Connect(gomock.Any()).Return(src, nil)
	src.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ sources.Request) (*query.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	src.EXPECT().Close().Return(nil).AnyTimes()

	engine := fakeEngine(t, conn, tools.Spec{Statement: "SELECT pg_sleep(10)", Timeout: time.Second})

	start := time.Now()
	_, err := engine.Invoke(context.Background(), "t", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDefaultTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := sources_mocks.NewMockSource(ctrl)
	conn := sources_mocks.NewMockConnector(ctrl)
	conn.EXPECT().Connect(gomock.Any()).Return(src, nil)
	src.EXPECT().Execute(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ sources.Request) (*query.Result, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(2*time.Minute), deadline, 5*time.Second)
			return query.Rows([]string{"n"}, []map[string]any{{"n": int64(1)}}), nil
		})
	src.EXPECT().Close().Return(nil).AnyTimes()

	engine := fakeEngine(t, conn, tools.Spec{Statement: "SELECT 1"}, invoke.WithDefaultTimeout(2*time.Minute))
	res, err := engine.Invoke(context.Background(), "t", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())
}

func TestBackendError(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := sources_mocks.NewMockSource(ctrl)
	conn := sources_mocks.NewMockConnector(ctrl)
	conn.EXPECT().Connect(gomock.Any()).Return(src, nil)
	src.EXPECT().Execute(gomock.Any(), sources.Request{Statement: "SELECT * FROM nope WHERE id = $1", Args: []any{int64(7)}}).
		Return(nil, errors.New(`relation "nope" does not exist`))
	src.EXPECT().Close().Return(nil).AnyTimes()

	engine := fakeEngine(t, conn, tools.Spec{
		Statement:  "SELECT * FROM nope WHERE id = $1",
		Parameters: []tools.Parameter{{Name: "id", Type: tools.TypeInteger}},
	})
	_, err := engine.Invoke(context.Background(), "t", map[string]any{"id": 7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, toolerr.ErrBackendExecution))
	assert.Contains(t, err.Error(), `relation "nope" does not exist`)
}

func TestConnectionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := sources_mocks.NewMockConnector(ctrl)
	conn.EXPECT().Connect(gomock.Any()).Return(nil, errors.New("connection refused")).Times(2)

	engine := fakeEngine(t, conn, tools.Spec{Statement: "SELECT 1"})
	for range 2 {
		_, err := engine.Invoke(context.Background(), "t", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, toolerr.ErrConnection))
	}
}

type recordingLogger struct {
	audit.SlogLogger
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingLogger) Log(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func TestAuditEvents(t *testing.T) {
	logger := &recordingLogger{}
	engine := invoke.New(loadHotels(t), invoke.WithAudit(logger, true))

	ctx := middleware.WithCallContext(context.Background(), middleware.NewCallContext("req-1", middleware.TransportREST))
	_, err := engine.Invoke(ctx, "search-hotels-by-name", map[string]any{"name": "Hilton"})
	require.NoError(t, err)
	_, err = engine.Invoke(ctx, "book-hotel", map[string]any{})
	require.Error(t, err)

	require.NoError(t, engine.Close(context.Background()))

	logger.mu.Lock()
	defer logger.mu.Unlock()
	require.Len(t, logger.events, 2)

	byTool := map[string]audit.Event{}
	for _, e := range logger.events {
		byTool[e.ToolName] = e
	}

	ok := byTool["search-hotels-by-name"]
	assert.True(t, ok.Success)
	assert.Equal(t, "req-1", ok.RequestID)
	assert.Equal(t, middleware.TransportREST, ok.Transport)
	assert.Equal(t, tools.KindSQLiteSQL, ok.ToolKind)
	assert.Equal(t, "my-sqlite", ok.Source)
	assert.Equal(t, 1, ok.Records)
	assert.Equal(t, "Hilton", ok.Parameters["name"])

	failed := byTool["book-hotel"]
	assert.False(t, failed.Success)
	assert.Equal(t, string(toolerr.KindInvalidArgument), failed.ErrorKind)
	assert.Contains(t, failed.ErrorMessage, "hotel_id")
}
