// Package middleware carries per-call context through the HTTP and MCP
// transports and provides their logging middleware.
package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys.
type contextKey int

const callContextKey contextKey = iota

// Transports.
const (
	TransportREST  = "rest"
	TransportMCP   = "mcp"
	TransportStdio = "stdio"
)

// CallContext identifies one request as it moves through a transport into
// the invocation engine.
type CallContext struct {
	RequestID string
	Transport string
	StartTime time.Time

	// ToolName is set once the transport has decoded the target tool.
	ToolName string
}

// NewCallContext creates a call context. An empty requestID gets a fresh one.
func NewCallContext(requestID, transport string) *CallContext {
	if requestID == "" {
		requestID = NewRequestID()
	}
	return &CallContext{
		RequestID: requestID,
		Transport: transport,
		StartTime: time.Now(),
	}
}

// NewRequestID returns a random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// WithCallContext adds a call context to ctx.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey, cc)
}

// GetCallContext retrieves the call context, or nil.
func GetCallContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(callContextKey).(*CallContext); ok {
		return cc
	}
	return nil
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	if cc := GetCallContext(ctx); cc != nil {
		return cc.RequestID
	}
	return ""
}

// Transport returns the transport carried by ctx, or "direct".
func Transport(ctx context.Context) string {
	if cc := GetCallContext(ctx); cc != nil && cc.Transport != "" {
		return cc.Transport
	}
	return "direct"
}
