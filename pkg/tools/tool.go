// Package tools defines tool specifications, their parameter schemas and the
// per-kind backends that compile and execute them.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

// Spec is a tool definition from the tools file.
type Spec struct {
	Name        string        `yaml:"-" toml:"-" json:"name"`
	Kind        string        `yaml:"kind" toml:"kind" json:"kind"`
	Source      string        `yaml:"source" toml:"source" json:"source"`
	Description string        `yaml:"description" toml:"description" json:"description"`
	Parameters  []Parameter   `yaml:"parameters" toml:"parameters" json:"parameters"`
	Statement   string        `yaml:"statement" toml:"statement" json:"statement"`
	Timeout     time.Duration `yaml:"timeout,omitempty" toml:"timeout" json:"timeout,omitempty"`
	IsQuery     bool          `yaml:"isQuery,omitempty" toml:"isQuery" json:"isQuery,omitempty"`
	ReadOnly    bool          `yaml:"readOnly,omitempty" toml:"readOnly" json:"readOnly,omitempty"`
}

// ParamNames returns the declared parameter names in order.
func (s Spec) ParamNames() []string {
	names := make([]string, len(s.Parameters))
	for i, p := range s.Parameters {
		names[i] = p.Name
	}
	return names
}

// Validate checks the parts of a spec that do not depend on other entities.
func (s Spec) Validate() error {
	if s.Name == "" {
		return toolerr.New(toolerr.KindConfig, "tool name is required")
	}
	if s.Kind == "" {
		return toolerr.New(toolerr.KindConfig, "tool %q: kind is required", s.Name)
	}
	if s.Source == "" {
		return toolerr.New(toolerr.KindConfig, "tool %q: source is required", s.Name)
	}
	if s.Timeout < 0 {
		return toolerr.New(toolerr.KindConfig, "tool %q: timeout must not be negative", s.Name)
	}
	seen := make(map[string]bool, len(s.Parameters))
	for _, p := range s.Parameters {
		if err := p.validate(); err != nil {
			return toolerr.Wrap(toolerr.KindConfig, err, "tool %q", s.Name)
		}
		if seen[p.Name] {
			return toolerr.New(toolerr.KindConfig, "tool %q: parameter %q declared twice", s.Name, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Tool is a compiled, immutable tool ready for invocation.
type Tool struct {
	Spec     Spec
	Compiled *statement.Compiled
	Backend  Backend
}

// Compile validates spec and builds its plan with the backend for its kind.
func Compile(spec Spec, backend Backend, policy statement.UnusedPolicy) (*Tool, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	compiled, err := backend.Compile(spec, policy)
	if err != nil {
		return nil, err
	}
	return &Tool{Spec: spec, Compiled: compiled, Backend: backend}, nil
}

// Execute binds validated args and runs the tool against src.
func (t *Tool) Execute(ctx context.Context, src sources.Source, args map[string]any) (*query.Result, error) {
	return t.Backend.Execute(ctx, src, t.Spec, t.Compiled.Bind(args))
}

// Mutates reports whether invoking the tool changes backend state.
func (t *Tool) Mutates() bool {
	return t.Compiled.Mutates
}

func (t *Tool) String() string {
	return fmt.Sprintf("%s (%s on %s)", t.Spec.Name, t.Spec.Kind, t.Spec.Source)
}
