package registry

import (
	"sync"
	"time"

	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

// Snapshot is an immutable, fully compiled view of one loaded configuration.
// Invocations hold the snapshot they started with until they finish.
type Snapshot struct {
	sources  *sources.Registry
	tools    map[string]*tools.Tool
	toolsets map[string][]string
	all      []string

	generation uint64
	loadedAt   time.Time

	inflight sync.WaitGroup
}

// Get returns the compiled tool registered under name.
func (s *Snapshot) Get(name string) (*tools.Tool, error) {
	t, ok := s.tools[name]
	if !ok {
		return nil, toolerr.New(toolerr.KindToolNotFound, "tool %q not found", name)
	}
	return t, nil
}

// ListToolset returns the ordered tool names of a toolset. The empty name is
// the implicit toolset of every tool, ordered by name.
func (s *Snapshot) ListToolset(name string) ([]string, error) {
	if name == "" {
		return append([]string(nil), s.all...), nil
	}
	members, ok := s.toolsets[name]
	if !ok {
		return nil, toolerr.New(toolerr.KindToolsetNotFound, "toolset %q not found", name)
	}
	return append([]string(nil), members...), nil
}

// Toolsets returns the names of the declared toolsets, sorted.
func (s *Snapshot) Toolsets() []string {
	return sortedKeys(s.toolsets)
}

// Tools returns every compiled tool ordered by name.
func (s *Snapshot) Tools() []*tools.Tool {
	out := make([]*tools.Tool, 0, len(s.all))
	for _, name := range s.all {
		out = append(out, s.tools[name])
	}
	return out
}

// Sources returns the source registry owned by this snapshot.
func (s *Snapshot) Sources() *sources.Registry {
	return s.sources
}

// Generation is the load counter that produced this snapshot, starting at 1.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// LoadedAt is when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Manifest describes a toolset in the client SDK's manifest format.
func (s *Snapshot) Manifest(version, toolset string) (*tools.Manifest, error) {
	names, err := s.ListToolset(toolset)
	if err != nil {
		return nil, err
	}
	m := &tools.Manifest{ServerVersion: version, Tools: make(map[string]tools.ToolManifest, len(names))}
	for _, name := range names {
		m.Tools[name] = s.tools[name].Manifest()
	}
	return m, nil
}

// ToolManifest describes a single tool in the client SDK's manifest format.
func (s *Snapshot) ToolManifest(version, name string) (*tools.Manifest, error) {
	t, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	return &tools.Manifest{
		ServerVersion: version,
		Tools:         map[string]tools.ToolManifest{name: t.Manifest()},
	}, nil
}
