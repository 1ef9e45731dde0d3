// Package platform assembles a toolbox server from a tools file: the tool
// registry, the invocation engine, audit, health and both transports.
package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq" // postgres driver for the audit store

	"github.com/txn2/mcp-toolbox/pkg/api"
	"github.com/txn2/mcp-toolbox/pkg/audit"
	auditpostgres "github.com/txn2/mcp-toolbox/pkg/audit/postgres"
	"github.com/txn2/mcp-toolbox/pkg/database/migrate"
	"github.com/txn2/mcp-toolbox/pkg/health"
	"github.com/txn2/mcp-toolbox/pkg/invoke"
	"github.com/txn2/mcp-toolbox/pkg/mcpserver"
	"github.com/txn2/mcp-toolbox/pkg/metrics"
	"github.com/txn2/mcp-toolbox/pkg/middleware"
	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/sources"
)

const readHeaderTimeout = 10 * time.Second

// Platform is the main platform facade.
type Platform struct {
	config     *Config
	configPath string
	override   func(*Config) error
	reloadMu   sync.Mutex

	lifecycle *Lifecycle
	registry  *registry.Registry
	engine    *invoke.Engine
	health    *health.Checker
	mcp       *mcpserver.Server
	handler   *api.Handler

	db          *sql.DB
	ownsDB      bool
	auditLogger audit.Logger
	auditStore  *auditpostgres.Store
}

// New creates a new platform instance. Nothing connects until Start.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{
		config:     options.Config,
		configPath: options.ConfigPath,
		override:   options.ConfigOverride,
		lifecycle:  NewLifecycle(),
		health:     health.NewChecker(),
	}

	if err := p.initAudit(options); err != nil {
		return nil, err
	}
	p.initRegistry(options)
	p.initEngine()
	p.initTransports()
	p.registerHooks()

	return p, nil
}

func (p *Platform) initAudit(opts *Options) error {
	cfg := p.config.Audit
	if !cfg.Enabled {
		return nil
	}

	switch {
	case opts.AuditLogger != nil:
		p.auditLogger = opts.AuditLogger
	case opts.DB != nil || p.config.Database.DSN != "":
		db := opts.DB
		if db == nil {
			var err error
			db, err = sql.Open("postgres", p.config.Database.DSN)
			if err != nil {
				return fmt.Errorf("opening audit database: %w", err)
			}
			db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
			p.ownsDB = true
		}
		p.db = db
		p.auditStore = auditpostgres.New(db, auditpostgres.Config{RetentionDays: cfg.RetentionDays})
		p.auditLogger = p.auditStore
	default:
		p.auditLogger = audit.SlogLogger{}
	}
	return nil
}

func (p *Platform) initRegistry(opts *Options) {
	regOpts := []registry.Option{
		registry.WithDrainTimeout(p.config.Server.ShutdownTimeout),
	}
	if opts.Version != "" {
		regOpts = append(regOpts, registry.WithVersion(opts.Version))
	}
	if opts.SourceFactories != nil {
		regOpts = append(regOpts, registry.WithSourceFactories(opts.SourceFactories))
	}
	if opts.Backends != nil {
		regOpts = append(regOpts, registry.WithBackends(opts.Backends))
	}
	p.registry = registry.New(regOpts...)
	p.health.SetSources(p.sourceStatus)
}

func (p *Platform) initEngine() {
	engineOpts := []invoke.Option{
		invoke.WithDefaultTimeout(p.config.Invocation.DefaultTimeout),
	}
	if p.auditLogger != nil {
		engineOpts = append(engineOpts, invoke.WithAudit(p.auditLogger, p.config.Audit.LogParameters))
	}
	p.engine = invoke.New(p.registry, engineOpts...)
}

func (p *Platform) initTransports() {
	transport := middleware.TransportMCP
	if p.config.Server.Transport == TransportStdio {
		transport = middleware.TransportStdio
	}
	p.mcp = mcpserver.New(p.registry, p.engine,
		mcpserver.WithToolset(p.config.Server.Toolset),
		mcpserver.WithTransport(transport),
	)

	deps := api.Deps{
		Catalog:      p.registry,
		Invoker:      p.engine,
		Health:       p.health,
		MCP:          p.mcp.HTTPHandler(),
		MaxBodyBytes: p.config.Server.MaxBodyBytes,
	}
	if p.auditStore != nil {
		deps.AuditQuerier = p.auditStore
		deps.AuditMetricsQuerier = p.auditStore
	}
	p.handler = api.NewHandler(deps)
}

// registerHooks orders startup as audit storage, tools, then readiness.
// Shutdown runs the reverse: drain, wait for audit writes, close sources,
// close audit storage.
func (p *Platform) registerHooks() {
	if p.auditStore != nil {
		p.lifecycle.Append(Hook{
			Name:  "audit store",
			Start: p.startAuditStore,
			Stop: func(context.Context) error {
				err := p.auditStore.Close()
				if p.ownsDB {
					err = errors.Join(err, p.db.Close())
				}
				return err
			},
		})
	} else if p.auditLogger != nil {
		p.lifecycle.RegisterCloser("audit logger", p.auditLogger)
	}

	p.lifecycle.Append(Hook{
		Name:  "tool registry",
		Start: p.loadTools,
		Stop:  p.registry.Close,
	})

	p.lifecycle.OnStop("invocation engine", p.engine.Close)

	p.lifecycle.Append(Hook{
		Name: "readiness",
		Start: func(context.Context) error {
			p.health.SetReady()
			return nil
		},
		Stop: func(context.Context) error {
			p.health.SetDraining()
			return nil
		},
	})
}

func (p *Platform) startAuditStore(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to audit database: %w", err)
	}
	if err := migrate.Run(p.db); err != nil {
		return err
	}
	p.auditStore.StartCleanupRoutine(p.config.Audit.CleanupInterval)
	return nil
}

func (p *Platform) loadTools(ctx context.Context) error {
	err := p.registry.Load(ctx, p.config.RegistryConfig())
	metrics.RecordLoad(p.toolCount(), err)
	if err != nil {
		return err
	}
	slog.Info("tools loaded",
		"tools", p.toolCount(),
		"sources", len(p.config.Sources),
		"toolsets", len(p.config.Toolsets))
	return nil
}

func (p *Platform) toolCount() int {
	if snap := p.registry.Current(); snap != nil {
		return len(snap.Tools())
	}
	return 0
}

func (p *Platform) sourceStatus() []sources.Status {
	snap := p.registry.Current()
	if snap == nil {
		return nil
	}
	return snap.Sources().Status()
}

// Start loads the tools and marks the platform ready.
func (p *Platform) Start(ctx context.Context) error {
	return p.lifecycle.Start(ctx)
}

// Stop drains in-flight work and releases every connection.
func (p *Platform) Stop(ctx context.Context) error {
	return p.lifecycle.Stop(ctx)
}

// Reload re-reads the tools file and swaps in the new tools. On any error
// the tools being served stay unchanged. Server, audit and database
// settings take effect only on restart.
func (p *Platform) Reload(ctx context.Context) error {
	if p.configPath == "" {
		return errors.New("reload: no tools file path configured")
	}
	cfg, err := LoadConfig(p.configPath)
	if err == nil && p.override != nil {
		err = p.override(cfg)
	}
	if err != nil {
		metrics.RecordLoad(p.toolCount(), err)
		return err
	}
	return p.Apply(ctx, cfg)
}

// Apply swaps in the sources, tools and toolsets of cfg.
func (p *Platform) Apply(ctx context.Context, cfg *Config) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	if err := cfg.Validate(); err != nil {
		metrics.RecordLoad(p.toolCount(), err)
		return err
	}
	err := p.registry.Reload(ctx, cfg.RegistryConfig())
	metrics.RecordLoad(p.toolCount(), err)
	if err != nil {
		return fmt.Errorf("reloading tools: %w", err)
	}

	if cfg.Server != p.config.Server {
		slog.Warn("server settings changed; restart to apply them")
	}
	kept := *p.config
	kept.Sources, kept.Tools, kept.Toolsets = cfg.Sources, cfg.Tools, cfg.Toolsets
	kept.Compiler, kept.Connection = cfg.Compiler, cfg.Connection
	p.config = &kept

	slog.Info("tools reloaded", "tools", p.toolCount())
	return nil
}

// HTTPServer returns a server for the REST and MCP endpoints on the
// configured address.
func (p *Platform) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              p.Config().Server.Addr(),
		Handler:           p.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Handler returns the HTTP handler serving REST, MCP, health and metrics.
func (p *Platform) Handler() http.Handler {
	return p.handler
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcpserver.Server {
	return p.mcp
}

// Registry returns the tool registry.
func (p *Platform) Registry() *registry.Registry {
	return p.registry
}

// Engine returns the invocation engine.
func (p *Platform) Engine() *invoke.Engine {
	return p.engine
}

// Health returns the health checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()
	return p.config
}
