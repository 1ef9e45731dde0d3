// Package health provides readiness state tracking and HTTP health check handlers.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/txn2/mcp-toolbox/pkg/metrics"
	"github.com/txn2/mcp-toolbox/pkg/sources"
)

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// Checker tracks the readiness state of the platform.
// It is safe for concurrent use.
type Checker struct {
	state   atomic.Int32
	sources atomic.Pointer[SourceLister]
}

// SourceLister reports the sources behind the currently served tools.
type SourceLister func() []sources.Status

// NewChecker creates a Checker in the Starting state.
func NewChecker() *Checker {
	return &Checker{}
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// SetSources installs the function readiness uses to report sources.
func (c *Checker) SetSources(fn SourceLister) {
	c.sources.Store(&fn)
}

// Sources returns the current source status and refreshes the
// toolbox_source_connected gauges.
func (c *Checker) Sources() []sources.Status {
	fn := c.sources.Load()
	if fn == nil || *fn == nil {
		return nil
	}
	status := (*fn)()
	metrics.ResetSources()
	for _, s := range status {
		metrics.SetSourceConnected(s.Name, s.Kind, s.Connected)
	}
	return status
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status  string           `json:"status"`
	Sources []sources.Status `json:"sources,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for K8s livenessProbe (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when ready
// and 503 when starting or draining.
// Use this for K8s readinessProbe (/readyz). Sources are listed but a source
// without an open handle does not fail readiness; handles open lazily.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: c.State(), Sources: c.Sources()}
		if c.IsReady() {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
