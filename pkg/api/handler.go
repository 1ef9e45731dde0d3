// Package api serves the REST transport: toolset and tool manifests, tool
// invocation, health checks, metrics, audit queries and API docs.
//
// @title        Toolbox API
// @version      1.0
// @description  Tool-invocation gateway. Manifests describe tools; invoke runs them.
// @BasePath     /
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/txn2/mcp-toolbox/pkg/audit"
	"github.com/txn2/mcp-toolbox/pkg/health"
	"github.com/txn2/mcp-toolbox/pkg/metrics"
	"github.com/txn2/mcp-toolbox/pkg/middleware"
	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

// Catalog serves tool manifests.
type Catalog interface {
	Manifest(toolset string) (*tools.Manifest, error)
	ToolManifest(name string) (*tools.Manifest, error)
}

// Invoker runs one tool.
type Invoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (*query.Result, error)
}

// AuditQuerier reads stored audit events.
type AuditQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int, error)
}

// AuditMetricsQuerier aggregates stored audit events.
type AuditMetricsQuerier interface {
	Timeseries(ctx context.Context, filter audit.TimeseriesFilter) ([]audit.TimeseriesBucket, error)
	Breakdown(ctx context.Context, filter audit.BreakdownFilter) ([]audit.BreakdownEntry, error)
	Overview(ctx context.Context, startTime, endTime *time.Time) (*audit.Overview, error)
	Performance(ctx context.Context, startTime, endTime *time.Time) (*audit.PerformanceStats, error)
}

// Deps holds the handler's collaborators. Catalog and Invoker are required;
// the rest enable optional routes.
type Deps struct {
	Catalog             Catalog
	Invoker             Invoker
	Health              *health.Checker
	AuditQuerier        AuditQuerier
	AuditMetricsQuerier AuditMetricsQuerier

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler

	// MaxBodyBytes caps invoke request bodies. Zero uses defaultMaxBody.
	MaxBodyBytes int64
}

const defaultMaxBody = 1 << 20

// Handler routes REST requests.
type Handler struct {
	router *mux.Router
	deps   Deps
}

// NewHandler creates the REST handler and registers its routes.
func NewHandler(deps Deps) *Handler {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = defaultMaxBody
	}
	h := &Handler{router: mux.NewRouter(), deps: deps}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	r := h.router
	r.Use(middleware.HTTPCallContext(middleware.TransportREST), middleware.HTTPLogging)

	if h.deps.Health != nil {
		r.HandleFunc("/healthz", h.deps.Health.LivenessHandler()).Methods(http.MethodGet)
		r.HandleFunc("/readyz", h.deps.Health.ReadinessHandler()).Methods(http.MethodGet)
	}
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// The MCP middleware relabels tool calls with the mcp transport.
	if h.deps.MCP != nil {
		r.PathPrefix("/mcp").Handler(h.deps.MCP)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/toolset", h.getToolset).Methods(http.MethodGet)
	api.HandleFunc("/toolset/", h.getToolset).Methods(http.MethodGet)
	api.HandleFunc("/toolset/{name}", h.getToolset).Methods(http.MethodGet)
	api.HandleFunc("/tool/{name}", h.getTool).Methods(http.MethodGet)
	api.HandleFunc("/tool/{name}/invoke", h.invokeTool).Methods(http.MethodPost)

	if h.deps.AuditQuerier != nil {
		api.HandleFunc("/audit/events", h.listAuditEvents).Methods(http.MethodGet)
		api.HandleFunc("/audit/events/{id}", h.getAuditEvent).Methods(http.MethodGet)
	}
	if h.deps.AuditMetricsQuerier != nil {
		api.HandleFunc("/audit/metrics/timeseries", h.getAuditTimeseries).Methods(http.MethodGet)
		api.HandleFunc("/audit/metrics/breakdown", h.getAuditBreakdown).Methods(http.MethodGet)
		api.HandleFunc("/audit/metrics/overview", h.getAuditOverview).Methods(http.MethodGet)
		api.HandleFunc("/audit/metrics/performance", h.getAuditPerformance).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{Kind: "NotFound", Message: "no such route"}})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: errorBody{Kind: "MethodNotAllowed", Message: "method not allowed"}})
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
