package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewEvent creates a new audit event.
func NewEvent(toolName string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		ToolName:  toolName,
	}
}

// WithTool adds the tool kind and the source it ran on.
func (e *Event) WithTool(kind, source string) *Event {
	e.ToolKind = kind
	e.Source = source
	return e
}

// WithTransport records which transport received the call.
func (e *Event) WithTransport(transport string) *Event {
	e.Transport = transport
	return e
}

// WithParameters adds sanitized parameters to the event.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	return e
}

// WithResult adds result information to the event.
func (e *Event) WithResult(success bool, errorKind, errorMsg string, durationMS int64) *Event {
	e.Success = success
	e.ErrorKind = errorKind
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// WithRecords records the size of a successful result.
func (e *Event) WithRecords(records int, rowsAffected *int64) *Event {
	e.Records = records
	e.RowsAffected = rowsAffected
	return e
}

// WithRequestID adds a request ID to the event.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}

var sensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"credentials",
}

// SanitizeParameters redacts values whose names look like credentials.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if isSensitive(k) {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
