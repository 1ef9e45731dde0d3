// Package invoke runs tool invocations: argument validation, binding, source
// resolution and execution under a timeout.
package invoke

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/txn2/mcp-toolbox/pkg/audit"
	"github.com/txn2/mcp-toolbox/pkg/metrics"
	"github.com/txn2/mcp-toolbox/pkg/middleware"
	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/toolerr"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

// DefaultTimeout applies to tools that declare no timeout of their own.
const DefaultTimeout = 30 * time.Second

const auditWriteTimeout = 5 * time.Second

// Snapshots hands out pinned registry snapshots.
type Snapshots interface {
	Acquire() (*registry.Snapshot, func(), error)
}

// Engine executes tool invocations against the current registry snapshot.
// It is safe for concurrent use.
type Engine struct {
	snapshots      Snapshots
	defaultTimeout time.Duration

	audit         audit.Logger
	logParameters bool
	pending       sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultTimeout sets the timeout for tools without one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.defaultTimeout = d
		}
	}
}

// WithAudit emits one event per invocation to l. Argument values are
// included only when logParameters is set.
func WithAudit(l audit.Logger, logParameters bool) Option {
	return func(e *Engine) {
		e.audit = l
		e.logParameters = logParameters
	}
}

// New creates an engine over snapshots.
func New(snapshots Snapshots, opts ...Option) *Engine {
	e := &Engine{
		snapshots:      snapshots,
		defaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invoke runs the named tool with args. Failures are *toolerr.Error values:
// ToolNotFound, InvalidArgument, ConnectionError, TimeoutError or
// BackendExecutionError.
func (e *Engine) Invoke(ctx context.Context, name string, args map[string]any) (*query.Result, error) {
	start := time.Now()
	done := metrics.InvocationStarted()

	res, tool, err := e.invoke(ctx, name, args)

	duration := time.Since(start)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(toolerr.KindOf(err))
	}
	done(name, middleware.Transport(ctx), outcome, duration)
	e.log(ctx, name, res, err, duration)
	e.record(ctx, name, tool, args, res, err, duration)
	return res, err
}

func (e *Engine) invoke(ctx context.Context, name string, args map[string]any) (*query.Result, *tools.Tool, error) {
	snap, release, err := e.snapshots.Acquire()
	if err != nil {
		return nil, nil, toolerr.Wrap(toolerr.KindToolNotFound, err, "tool %q not found", name)
	}
	defer release()

	tool, err := snap.Get(name)
	if err != nil {
		return nil, nil, err
	}

	validated, err := tools.ValidateArgs(tool.Spec.Parameters, args)
	if err != nil {
		return nil, tool, err
	}

	src, releaseSrc, err := snap.Sources().Resolve(ctx, tool.Spec.Source)
	if err != nil {
		return nil, tool, err
	}
	defer releaseSrc()

	timeout := tool.Spec.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := tool.Execute(execCtx, src, validated)
	if err != nil {
		return nil, tool, classify(execCtx, name, timeout, err)
	}
	if res == nil {
		res = query.Rows(nil, nil)
	}
	return res, tool, nil
}

// classify maps a backend failure to the error taxonomy. Deadline
// expiry is reported as a timeout even when the driver wraps it.
func classify(execCtx context.Context, name string, timeout time.Duration, err error) error {
	switch {
	case errors.Is(execCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return toolerr.Wrap(toolerr.KindTimeout, err, "tool %q exceeded its %s timeout", name, timeout)
	case errors.Is(err, context.Canceled):
		return toolerr.Wrap(toolerr.KindInternal, err, "invocation of %q was canceled", name)
	case toolerr.KindOf(err) != toolerr.KindInternal:
		return err
	default:
		return toolerr.Wrap(toolerr.KindBackendExecution, err, "executing tool %q", name)
	}
}

func (*Engine) log(ctx context.Context, name string, res *query.Result, err error, duration time.Duration) {
	attrs := []any{
		"tool", name,
		"duration", duration,
		"request_id", middleware.RequestID(ctx),
		"transport", middleware.Transport(ctx),
	}
	if err == nil {
		slog.Debug("tool invoked", append(attrs, "records", res.Len(), "mutation", res.Mutation)...)
		return
	}
	switch toolerr.KindOf(err) {
	case toolerr.KindToolNotFound, toolerr.KindInvalidArgument:
		slog.Info("tool invocation rejected", append(attrs, "error", err)...)
	default:
		slog.Warn("tool invocation failed", append(attrs, "error", err)...)
	}
}

func (e *Engine) record(
	ctx context.Context,
	name string,
	tool *tools.Tool,
	args map[string]any,
	res *query.Result,
	err error,
	duration time.Duration,
) {
	if e.audit == nil {
		return
	}

	event := audit.NewEvent(name).
		WithRequestID(middleware.RequestID(ctx)).
		WithTransport(middleware.Transport(ctx))
	if tool != nil {
		event.WithTool(tool.Spec.Kind, tool.Spec.Source)
	}
	if e.logParameters {
		event.WithParameters(args)
	}
	if err != nil {
		var te *toolerr.Error
		msg := err.Error()
		if errors.As(err, &te) {
			msg = te.Detail()
		}
		event.WithResult(false, string(toolerr.KindOf(err)), msg, duration.Milliseconds())
	} else {
		event.WithResult(true, "", "", duration.Milliseconds()).WithRecords(res.Len(), res.RowsAffected)
	}

	// Log asynchronously to not block the response
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		actx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()
		if lerr := e.audit.Log(actx, *event); lerr != nil {
			slog.Warn("writing audit event", "tool", name, "error", lerr)
		}
	}()
}

// Close waits for pending audit writes, or for ctx to end.
func (e *Engine) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
