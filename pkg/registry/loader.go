package registry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

// Config is the declarative input to a load: sources, tools and toolsets
// keyed by name, plus the compiler and connection settings they share.
type Config struct {
	Sources  map[string]sources.Spec
	Tools    map[string]tools.Spec
	Toolsets map[string][]string

	UnusedParameters statement.UnusedPolicy
	Retry            sources.RetryConfig
}

// Build constructs a snapshot from cfg in dependency order: sources, then
// tools, then toolsets. Every problem found is reported; on any problem no
// snapshot is returned. No network connections are made.
func Build(cfg Config, factories map[string]sources.Factory, backends tools.Backends) (*Snapshot, error) {
	var errs []error

	srcs := sources.NewRegistry(sources.WithFactories(factories), sources.WithRetry(cfg.Retry))
	for _, name := range sortedKeys(cfg.Sources) {
		spec := cfg.Sources[name]
		spec.Name = name
		if err := srcs.Register(spec); err != nil {
			errs = append(errs, err)
		}
	}

	compiled := make(map[string]*tools.Tool, len(cfg.Tools))
	for _, name := range sortedKeys(cfg.Tools) {
		spec := cfg.Tools[name]
		spec.Name = name
		tool, err := compileTool(spec, srcs, backends, cfg.UnusedParameters)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		compiled[name] = tool
	}

	toolsets := make(map[string][]string, len(cfg.Toolsets))
	for _, name := range sortedKeys(cfg.Toolsets) {
		if name == "" {
			errs = append(errs, toolerr.New(toolerr.KindConfig, "toolset name must not be empty"))
			continue
		}
		members := cfg.Toolsets[name]
		seen := make(map[string]bool, len(members))
		for _, tool := range members {
			if _, ok := cfg.Tools[tool]; !ok {
				errs = append(errs, toolerr.New(toolerr.KindConfig, "toolset %q references unknown tool %q", name, tool))
			}
			if seen[tool] {
				errs = append(errs, toolerr.New(toolerr.KindConfig, "toolset %q lists tool %q twice", name, tool))
			}
			seen[tool] = true
		}
		toolsets[name] = append([]string(nil), members...)
	}

	if len(errs) > 0 {
		return nil, toolerr.Wrap(toolerr.KindConfig, errors.Join(errs...), "loading configuration (%d problem(s))", len(errs))
	}

	all := sortedKeys(compiled)
	return &Snapshot{
		sources:  srcs,
		tools:    compiled,
		toolsets: toolsets,
		all:      all,
		loadedAt: time.Now(),
	}, nil
}

func compileTool(spec tools.Spec, srcs *sources.Registry, backends tools.Backends, policy statement.UnusedPolicy) (*tools.Tool, error) {
	backend, ok := backends[spec.Kind]
	if !ok {
		return nil, toolerr.New(toolerr.KindConfig, "tool %q: unknown kind %q", spec.Name, spec.Kind)
	}
	src, ok := srcs.Lookup(spec.Source)
	if !ok {
		return nil, toolerr.New(toolerr.KindConfig, "tool %q: source %q is not defined", spec.Name, spec.Source)
	}
	if !tools.Supports(backend, src.Kind) {
		return nil, toolerr.New(toolerr.KindConfig, "tool %q: kind %q cannot run on %s source %q",
			spec.Name, spec.Kind, src.Kind, spec.Source)
	}
	tool, err := tools.Compile(spec, backend, policy)
	if err != nil {
		return nil, fmt.Errorf("compiling tool %s: %w", spec.Name, err)
	}
	return tool, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
