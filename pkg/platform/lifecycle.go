package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Hook is one lifecycle step. Either function may be nil. Stop runs only if
// Start succeeded.
type Hook struct {
	Name  string
	Start func(context.Context) error
	Stop  func(context.Context) error
}

// Lifecycle starts platform components in registration order and stops them
// in reverse.
type Lifecycle struct {
	mu      sync.Mutex
	hooks   []Hook
	started int
	running bool
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Append registers a hook.
func (l *Lifecycle) Append(h Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, h)
}

// OnStart registers a start-only hook.
func (l *Lifecycle) OnStart(name string, fn func(context.Context) error) {
	l.Append(Hook{Name: name, Start: fn})
}

// OnStop registers a stop-only hook.
func (l *Lifecycle) OnStop(name string, fn func(context.Context) error) {
	l.Append(Hook{Name: name, Stop: fn})
}

// RegisterCloser closes c on shutdown.
func (l *Lifecycle) RegisterCloser(name string, c interface{ Close() error }) {
	l.OnStop(name, func(context.Context) error { return c.Close() })
}

// Start runs every start hook. If one fails, the hooks already started are
// stopped in reverse order and the error is returned.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return errors.New("lifecycle already started")
	}

	for i, h := range l.hooks {
		if h.Start != nil {
			if err := h.Start(ctx); err != nil {
				l.started = i
				l.rollback(ctx)
				return fmt.Errorf("starting %s: %w", h.Name, err)
			}
		}
	}

	l.started = len(l.hooks)
	l.running = true
	return nil
}

// rollback stops the first l.started hooks in reverse order.
func (l *Lifecycle) rollback(ctx context.Context) {
	for j := l.started - 1; j >= 0; j-- {
		h := l.hooks[j]
		if h.Stop == nil {
			continue
		}
		if err := h.Stop(ctx); err != nil {
			slog.Warn("lifecycle rollback: stop hook failed", "hook", h.Name, "error", err)
		}
	}
	l.started = 0
}

// Stop runs every stop hook in reverse order, continuing past failures.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return nil
	}

	var errs []error
	for i := l.started - 1; i >= 0; i-- {
		h := l.hooks[i]
		if h.Stop == nil {
			continue
		}
		if err := h.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping %s: %w", h.Name, err))
		}
	}

	l.running = false
	l.started = 0
	return errors.Join(errs...)
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
