package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/txn2/mcp-toolbox/pkg/audit"
	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

// Transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

const (
	defaultName            = "toolbox"
	defaultAddress         = "127.0.0.1"
	defaultPort            = 5000
	defaultShutdownTimeout = 30 * time.Second
	defaultRetentionDays   = 90
	defaultCleanupInterval = 24 * time.Hour
	defaultMaxOpenConns    = 10
)

// Config is the tools file: sources, tools and toolsets plus the server
// settings that surround them.
type Config struct {
	APIVersion string           `yaml:"apiVersion" toml:"apiVersion"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Invocation InvocationConfig `yaml:"invocation" toml:"invocation"`
	Compiler   CompilerConfig   `yaml:"compiler" toml:"compiler"`
	Connection ConnectionConfig `yaml:"connection" toml:"connection"`
	Audit      audit.Config     `yaml:"audit" toml:"audit"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`

	Sources  map[string]sources.Spec `yaml:"sources" toml:"sources"`
	Tools    map[string]tools.Spec   `yaml:"tools" toml:"tools"`
	Toolsets map[string][]string     `yaml:"toolsets" toml:"toolsets"`
}

// ServerConfig configures the listener and transport.
type ServerConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Address   string `yaml:"address" toml:"address"`
	Port      int    `yaml:"port" toml:"port"`
	Transport string `yaml:"transport" toml:"transport"`

	// Toolset limits the MCP tool list. Empty serves every tool.
	Toolset string `yaml:"toolset" toml:"toolset"`

	MaxBodyBytes    int64         `yaml:"maxBodyBytes" toml:"maxBodyBytes"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// InvocationConfig configures the invocation engine.
type InvocationConfig struct {
	DefaultTimeout time.Duration `yaml:"defaultTimeout" toml:"defaultTimeout"`
}

// CompilerConfig configures statement compilation.
type CompilerConfig struct {
	// UnusedParameters is "error", "warn" or "ignore".
	UnusedParameters string `yaml:"unusedParameters" toml:"unusedParameters"`
}

// ConnectionConfig configures source connections.
type ConnectionConfig struct {
	Retry sources.RetryConfig `yaml:"retry" toml:"retry"`
}

// DatabaseConfig configures the database backing the audit store.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns" toml:"maxOpenConns"`
}

// LoadConfig loads a tools file. Files ending in .toml are decoded as TOML,
// everything else as YAML. ${VAR} references are expanded first.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tools file: %w", err)
	}

	cfg, err := ParseConfig(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// Format is a tools file encoding.
type Format string

// Tools file formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ParseConfig decodes a tools file held in memory and applies defaults.
func ParseConfig(data []byte, format Format) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	if _, err := resolveVersion(peekVersion(data, format)); err != nil {
		return nil, err
	}

	var cfg Config
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing toml: unknown keys %v", undecoded)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = CurrentConfigVersion
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = defaultName
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportHTTP
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Invocation.DefaultTimeout == 0 {
		cfg.Invocation.DefaultTimeout = 30 * time.Second
	}
	if cfg.Compiler.UnusedParameters == "" {
		cfg.Compiler.UnusedParameters = string(statement.UnusedWarn)
	}
	applyRetryDefaults(&cfg.Connection.Retry)
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = defaultRetentionDays
	}
	if cfg.Audit.CleanupInterval == 0 {
		cfg.Audit.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
}

func applyRetryDefaults(r *sources.RetryConfig) {
	d := sources.DefaultRetryConfig()
	if r.MaxAttempts == 0 {
		r.MaxAttempts = d.MaxAttempts
	}
	if r.InitialInterval == 0 {
		r.InitialInterval = d.InitialInterval
	}
	if r.MaxInterval == 0 {
		r.MaxInterval = d.MaxInterval
	}
	if r.MaxElapsed == 0 {
		r.MaxElapsed = d.MaxElapsed
	}
}

// Validate checks the server settings. Sources, tools and toolsets are
// validated by the registry when they are built.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Transport {
	case TransportHTTP, TransportStdio:
	default:
		errs = append(errs, fmt.Errorf("server.transport must be %q or %q, got %q",
			TransportHTTP, TransportStdio, c.Server.Transport))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.maxBodyBytes must not be negative"))
	}
	if c.Invocation.DefaultTimeout < 0 {
		errs = append(errs, errors.New("invocation.defaultTimeout must not be negative"))
	}
	if _, err := statement.ParseUnusedPolicy(c.Compiler.UnusedParameters); err != nil {
		errs = append(errs, fmt.Errorf("compiler.unusedParameters: %w", err))
	}
	if c.Connection.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("connection.retry.maxAttempts must not be negative"))
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, errors.New("audit.retentionDays must not be negative"))
	}
	if c.Database.DSN != "" && c.Database.MaxOpenConns < 0 {
		errs = append(errs, errors.New("database.maxOpenConns must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation: %w", errors.Join(errs...))
	}
	return nil
}

// RegistryConfig returns the part of the config the registry loads.
// Call Validate first; an unparsable unused-parameter policy falls back to warn.
func (c *Config) RegistryConfig() registry.Config {
	policy, err := statement.ParseUnusedPolicy(c.Compiler.UnusedParameters)
	if err != nil {
		policy = statement.UnusedWarn
	}
	return registry.Config{
		Sources:          c.Sources,
		Tools:            c.Tools,
		Toolsets:         c.Toolsets,
		UnusedParameters: policy,
		Retry:            c.Connection.Retry,
	}
}
