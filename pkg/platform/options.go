package platform

import (
	"database/sql"

	"github.com/txn2/mcp-toolbox/pkg/audit"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

// Options configures the platform.
type Options struct {
	// Config is the loaded tools file. Required.
	Config *Config

	// ConfigPath is re-read by Reload. Optional; without it Reload needs a Config.
	ConfigPath string

	// Version is reported in manifests and the MCP implementation info.
	Version string

	// DB backs the audit store (optional, opened from database.dsn if not provided).
	DB *sql.DB

	// AuditLogger replaces the configured audit sink.
	AuditLogger audit.Logger

	// SourceFactories replaces the built-in source kinds.
	SourceFactories map[string]sources.Factory

	// Backends replaces the built-in tool kinds.
	Backends tools.Backends

	// ConfigOverride runs on every config Reload reads, so settings layered
	// over the tools file (CLI flags) survive a reload.
	ConfigOverride func(*Config) error
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithConfigPath sets the tools file Reload re-reads.
func WithConfigPath(path string) Option {
	return func(o *Options) {
		o.ConfigPath = path
	}
}

// WithVersion sets the server version.
func WithVersion(v string) Option {
	return func(o *Options) {
		o.Version = v
	}
}

// WithDB sets the database connection used by the audit store.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(l audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = l
	}
}

// WithSourceFactories sets the source connector factories.
func WithSourceFactories(f map[string]sources.Factory) Option {
	return func(o *Options) {
		o.SourceFactories = f
	}
}

// WithBackends sets the tool kind backends.
func WithBackends(b tools.Backends) Option {
	return func(o *Options) {
		o.Backends = b
	}
}

// WithConfigOverride sets a function applied to each reloaded config.
func WithConfigOverride(fn func(*Config) error) Option {
	return func(o *Options) {
		o.ConfigOverride = fn
	}
}
