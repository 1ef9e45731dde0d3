package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

// RetryConfig bounds the backoff applied when a first connection fails.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"maxAttempts" toml:"maxAttempts"`
	InitialInterval time.Duration `yaml:"initialInterval" toml:"initialInterval"`
	MaxInterval     time.Duration `yaml:"maxInterval" toml:"maxInterval"`
	MaxElapsed      time.Duration `yaml:"maxElapsed" toml:"maxElapsed"`
}

// DefaultRetryConfig returns the retry bounds used when none are configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsed:      10 * time.Second,
	}
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = orDefault(c.InitialInterval, d.InitialInterval)
	exp.MaxInterval = orDefault(c.MaxInterval, d.MaxInterval)
	exp.MaxElapsedTime = orDefault(c.MaxElapsed, d.MaxElapsed)
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.MaxAttempts-1)), ctx) //nolint:gosec // MaxAttempts is positive
}

func orDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// Status describes one source for health output.
type Status struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Connected bool   `json:"connected"`
}

type entry struct {
	spec Spec
	conn Connector
	src  Source
}

// Registry holds source definitions and their shared handles.
type Registry struct {
	mu sync.RWMutex

	// Factory functions by kind
	factories map[string]Factory

	entries map[string]*entry
	group   singleflight.Group
	retry   RetryConfig

	closed  bool
	active  int
	drained chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithRetry sets the connection retry bounds.
func WithRetry(cfg RetryConfig) Option {
	return func(r *Registry) {
		r.retry = cfg
	}
}

// WithFactories copies kind factories into the registry.
func WithFactories(factories map[string]Factory) Option {
	return func(r *Registry) {
		for kind, f := range factories {
			r.factories[kind] = f
		}
	}
}

// NewRegistry creates an empty source registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		entries:   make(map[string]*entry),
		retry:     DefaultRetryConfig(),
		drained:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterKind registers the factory for a source kind.
func (r *Registry) RegisterKind(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Kinds returns the registered source kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Register validates spec and adds it. No connection is made.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return toolerr.New(toolerr.KindInvalidSource, "source name is required")
	}

	r.mu.RLock()
	_, exists := r.entries[spec.Name]
	factory, ok := r.factories[spec.Kind]
	r.mu.RUnlock()

	if exists {
		return toolerr.New(toolerr.KindDuplicateSource, "source %q already registered", spec.Name)
	}
	if !ok {
		if spec.Kind == "" {
			return toolerr.New(toolerr.KindInvalidSource, "source %q: kind is required", spec.Name)
		}
		return toolerr.New(toolerr.KindInvalidSource, "source %q: unknown kind %q", spec.Name, spec.Kind)
	}

	conn, err := factory(spec)
	if err != nil {
		if toolerr.KindOf(err) == toolerr.KindInvalidSource {
			return err
		}
		return toolerr.Wrap(toolerr.KindInvalidSource, err, "source %q (%s)", spec.Name, spec.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[spec.Name]; exists {
		return toolerr.New(toolerr.KindDuplicateSource, "source %q already registered", spec.Name)
	}
	r.entries[spec.Name] = &entry{spec: spec, conn: conn}
	return nil
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Spec{}, false
	}
	return e.spec, true
}

// Names returns all registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the shared handle for name, connecting on first use.
// The caller must call release when its invocation is done with the handle.
// Connection failures are retried with backoff, surfaced as ConnectionError
// and never cached.
func (r *Registry) Resolve(ctx context.Context, name string) (src Source, release func(), err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, toolerr.New(toolerr.KindConnection, "source %q: registry is closed", name)
	}
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return nil, nil, toolerr.New(toolerr.KindConnection, "source %q is not registered", name)
	}
	r.active++
	src = e.src
	r.mu.Unlock()

	release = r.releaser()
	if src != nil {
		return src, release, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		r.mu.RLock()
		existing := e.src
		r.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		s, err := r.connect(ctx, e)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			_ = s.Close()
			return nil, toolerr.New(toolerr.KindConnection, "source %q: registry closed while connecting", name)
		}
		e.src = s
		r.mu.Unlock()
		slog.Info("source connected", "source", name, "kind", e.spec.Kind)
		return s, nil
	})
	if err != nil {
		release()
		if toolerr.KindOf(err) == toolerr.KindConnection {
			return nil, nil, err
		}
		return nil, nil, toolerr.Wrap(toolerr.KindConnection, err, "connecting to source %q", name)
	}
	return v.(Source), release, nil //nolint:forcetypeassert // only Source values are stored
}

func (r *Registry) connect(ctx context.Context, e *entry) (Source, error) {
	var (
		src     Source
		attempt int
	)
	op := func() error {
		attempt++
		s, err := e.conn.Connect(ctx)
		if err != nil {
			return err
		}
		src = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("source connection failed, retrying",
			"source", e.spec.Name, "kind", e.spec.Kind, "attempt", attempt, "retry_in", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, r.retry.backOff(ctx), notify); err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return src, nil
}

func (r *Registry) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.active--
			if r.closed && r.active == 0 {
				close(r.drained)
			}
		})
	}
}

// Status reports every registered source and whether its handle is open.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, Status{Name: name, Kind: e.spec.Kind, Connected: e.src != nil})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Ping checks every open handle. Sources not yet connected are skipped.
func (r *Registry) Ping(ctx context.Context) error {
	r.mu.RLock()
	open := make([]Source, 0, len(r.entries))
	for _, e := range r.entries {
		if e.src != nil {
			open = append(open, e.src)
		}
	}
	r.mu.RUnlock()

	var errs []error
	for _, s := range open {
		if err := s.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close stops new resolutions, waits for in-flight invocations to release
// their handles (or ctx to end), then closes every open handle.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.active == 0 {
		close(r.drained)
	}
	r.mu.Unlock()

	select {
	case <-r.drained:
	case <-ctx.Done():
		slog.Warn("closing sources with invocations still in flight", "error", ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, e := range r.entries {
		if e.src == nil {
			continue
		}
		if err := e.src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing source %s: %w", name, err))
		}
		e.src = nil
	}
	return errors.Join(errs...)
}
