package api

import (
	"context"
	"time"

	"github.com/txn2/mcp-toolbox/pkg/audit"
	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

type mockCatalog struct {
	manifest    *tools.Manifest
	manifestErr error
	toolset     string
}

func (m *mockCatalog) Manifest(toolset string) (*tools.Manifest, error) {
	m.toolset = toolset
	return m.manifest, m.manifestErr
}

func (m *mockCatalog) ToolManifest(string) (*tools.Manifest, error) {
	return m.manifest, m.manifestErr
}

type mockInvoker struct {
	result *query.Result
	err    error

	name string
	args map[string]any
}

func (m *mockInvoker) Invoke(_ context.Context, name string, args map[string]any) (*query.Result, error) {
	m.name = name
	m.args = args
	return m.result, m.err
}

type mockAuditQuerier struct {
	queryResult []audit.Event
	queryErr    error
	countResult int
	countErr    error
	lastFilter  audit.QueryFilter
}

func (m *mockAuditQuerier) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	m.lastFilter = f
	return m.queryResult, m.queryErr
}

func (m *mockAuditQuerier) Count(context.Context, audit.QueryFilter) (int, error) {
	return m.countResult, m.countErr
}

type mockAuditMetrics struct {
	err error
}

func (m *mockAuditMetrics) Timeseries(context.Context, audit.TimeseriesFilter) ([]audit.TimeseriesBucket, error) {
	return []audit.TimeseriesBucket{{Bucket: time.Unix(0, 0).UTC(), Count: 3, SuccessCount: 2, ErrorCount: 1}}, m.err
}

func (m *mockAuditMetrics) Breakdown(_ context.Context, f audit.BreakdownFilter) ([]audit.BreakdownEntry, error) {
	return []audit.BreakdownEntry{{Dimension: string(f.GroupBy), Count: 3}}, m.err
}

func (m *mockAuditMetrics) Overview(context.Context, *time.Time, *time.Time) (*audit.Overview, error) {
	return &audit.Overview{TotalCalls: 3}, m.err
}

func (m *mockAuditMetrics) Performance(context.Context, *time.Time, *time.Time) (*audit.PerformanceStats, error) {
	return &audit.PerformanceStats{P50MS: 4}, m.err
}

func hotelManifest() *tools.Manifest {
	return &tools.Manifest{
		ServerVersion: "test",
		Tools: map[string]tools.ToolManifest{
			"search-hotels-by-name": {
				Description: "Search for hotels based on name.",
				Parameters: []tools.ParameterManifest{
					{Name: "name", Type: tools.TypeString, Description: "The name of the hotel.", Required: true},
				},
			},
		},
	}
}
