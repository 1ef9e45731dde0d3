// Package registry loads tool configurations into immutable snapshots and
// swaps them atomically on reload.
package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

// DefaultDrainTimeout bounds how long a replaced snapshot waits for in-flight
// invocations before its sources are closed anyway.
const DefaultDrainTimeout = 30 * time.Second

// Registry owns the current snapshot. Reads are lock-free; loads are serialized.
type Registry struct {
	current atomic.Pointer[Snapshot]

	// swap orders Acquire against snapshot replacement so a replaced
	// snapshot never gains new holders.
	swap sync.RWMutex
	load sync.Mutex

	factories    map[string]sources.Factory
	backends     tools.Backends
	version      string
	drainTimeout time.Duration
	generation   uint64

	listenersMu sync.RWMutex
	listeners   []func(*Snapshot)

	draining sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithSourceFactories replaces the source connector factories.
func WithSourceFactories(f map[string]sources.Factory) Option {
	return func(r *Registry) { r.factories = f }
}

// WithBackends replaces the tool kind backends.
func WithBackends(b tools.Backends) Option {
	return func(r *Registry) { r.backends = b }
}

// WithVersion sets the server version reported in manifests.
func WithVersion(v string) Option {
	return func(r *Registry) { r.version = v }
}

// WithDrainTimeout bounds the wait for in-flight invocations on reload.
func WithDrainTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.drainTimeout = d
		}
	}
}

// New creates an empty registry using the built-in source kinds and tool kinds.
func New(opts ...Option) *Registry {
	r := &Registry{
		factories:    BuiltinSourceFactories(),
		backends:     tools.Builtin(),
		version:      "dev",
		drainTimeout: DefaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Version returns the server version reported in manifests.
func (r *Registry) Version() string {
	return r.version
}

// Backends returns the tool kind backends.
func (r *Registry) Backends() tools.Backends {
	return r.backends
}

// OnSwap registers fn to run after every successful load with the new snapshot.
func (r *Registry) OnSwap(fn func(*Snapshot)) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Load builds a snapshot from cfg and makes it current. On error the
// previously visible snapshot, if any, stays current.
func (r *Registry) Load(ctx context.Context, cfg Config) error {
	r.load.Lock()
	defer r.load.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap, err := Build(cfg, r.factories, r.backends)
	if err != nil {
		return err
	}
	r.generation++
	snap.generation = r.generation

	r.swap.Lock()
	old := r.current.Swap(snap)
	r.swap.Unlock()

	slog.Info("tools loaded",
		"generation", snap.generation,
		"sources", len(snap.sources.Names()),
		"tools", len(snap.all),
		"toolsets", len(snap.toolsets),
	)

	if old != nil {
		r.retire(old)
	}

	r.listenersMu.RLock()
	listeners := slices.Clone(r.listeners)
	r.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}

// Reload replaces the current snapshot with one built from cfg. The replaced
// snapshot's sources close once its in-flight invocations finish.
func (r *Registry) Reload(ctx context.Context, cfg Config) error {
	if r.current.Load() == nil {
		return toolerr.New(toolerr.KindConfig, "nothing loaded to reload")
	}
	return r.Load(ctx, cfg)
}

// retire closes a replaced snapshot in the background.
func (r *Registry) retire(old *Snapshot) {
	r.draining.Add(1)
	go func() {
		defer r.draining.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.drainTimeout)
		defer cancel()
		if err := closeSnapshot(ctx, old); err != nil {
			slog.Warn("closing replaced snapshot", "generation", old.generation, "error", err)
			return
		}
		slog.Debug("replaced snapshot closed", "generation", old.generation)
	}()
}

func closeSnapshot(ctx context.Context, s *Snapshot) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return s.sources.Close(ctx)
}

// Current returns the current snapshot, or nil before the first load.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Acquire returns the current snapshot and pins it until release is called.
func (r *Registry) Acquire() (*Snapshot, func(), error) {
	r.swap.RLock()
	s := r.current.Load()
	if s == nil {
		r.swap.RUnlock()
		return nil, nil, toolerr.New(toolerr.KindInternal, "no tools loaded")
	}
	s.inflight.Add(1)
	r.swap.RUnlock()

	var once sync.Once
	return s, func() { once.Do(s.inflight.Done) }, nil
}

// Get returns the tool registered under name in the current snapshot.
func (r *Registry) Get(name string) (*tools.Tool, error) {
	s := r.current.Load()
	if s == nil {
		return nil, toolerr.New(toolerr.KindToolNotFound, "tool %q not found", name)
	}
	return s.Get(name)
}

// ListToolset returns the ordered tool names of a toolset in the current snapshot.
func (r *Registry) ListToolset(name string) ([]string, error) {
	s := r.current.Load()
	if s == nil {
		if name == "" {
			return []string{}, nil
		}
		return nil, toolerr.New(toolerr.KindToolsetNotFound, "toolset %q not found", name)
	}
	return s.ListToolset(name)
}

// Manifest describes a toolset of the current snapshot.
func (r *Registry) Manifest(toolset string) (*tools.Manifest, error) {
	s := r.current.Load()
	if s == nil {
		if toolset == "" {
			return &tools.Manifest{ServerVersion: r.version, Tools: map[string]tools.ToolManifest{}}, nil
		}
		return nil, toolerr.New(toolerr.KindToolsetNotFound, "toolset %q not found", toolset)
	}
	return s.Manifest(r.version, toolset)
}

// ToolManifest describes one tool of the current snapshot.
func (r *Registry) ToolManifest(name string) (*tools.Manifest, error) {
	s := r.current.Load()
	if s == nil {
		return nil, toolerr.New(toolerr.KindToolNotFound, "tool %q not found", name)
	}
	return s.ToolManifest(r.version, name)
}

// Close closes the current snapshot after its in-flight invocations finish
// or ctx expires, and waits for snapshots replaced earlier to close.
func (r *Registry) Close(ctx context.Context) error {
	r.load.Lock()
	defer r.load.Unlock()

	r.swap.Lock()
	s := r.current.Swap(nil)
	r.swap.Unlock()

	var err error
	if s != nil {
		err = closeSnapshot(ctx, s)
	}

	done := make(chan struct{})
	go func() {
		r.draining.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}
