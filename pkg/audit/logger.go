// Package audit records one event per tool invocation.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event represents one tool invocation.
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	DurationMS   int64          `json:"duration_ms"`
	RequestID    string         `json:"request_id"`
	Transport    string         `json:"transport"`
	ToolName     string         `json:"tool_name"`
	ToolKind     string         `json:"tool_kind,omitempty"`
	Source       string         `json:"source,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Success      bool           `json:"success"`
	ErrorKind    string         `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Records      int            `json:"records"`
	RowsAffected *int64         `json:"rows_affected,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	ID        string
	StartTime *time.Time
	EndTime   *time.Time
	ToolName  string
	Source    string
	ErrorKind string
	Success   *bool
	Limit     int
	Offset    int
}

// Config configures audit logging.
type Config struct {
	Enabled       bool `yaml:"enabled" toml:"enabled"`
	LogParameters bool `yaml:"logParameters" toml:"logParameters"`
	RetentionDays int  `yaml:"retentionDays" toml:"retentionDays"`

	// CleanupInterval is how often expired events are deleted.
	CleanupInterval time.Duration `yaml:"cleanupInterval" toml:"cleanupInterval"`
}

// SlogLogger writes events to the process log. It cannot be queried.
type SlogLogger struct{}

// Log writes event at info level, or warn when the invocation failed.
func (SlogLogger) Log(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	if !e.Success {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "tool invocation",
		"event_id", e.ID,
		"request_id", e.RequestID,
		"transport", e.Transport,
		"tool", e.ToolName,
		"source", e.Source,
		"success", e.Success,
		"error_kind", e.ErrorKind,
		"duration_ms", e.DurationMS,
		"records", e.Records,
	)
	return nil
}

// Query returns no events.
func (SlogLogger) Query(context.Context, QueryFilter) ([]Event, error) {
	return []Event{}, nil
}

// Close is a no-op.
func (SlogLogger) Close() error { return nil }

var _ Logger = SlogLogger{}
