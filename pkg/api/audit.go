package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/txn2/mcp-toolbox/pkg/audit"
)

const (
	paramStartTime = "start_time"
	paramEndTime   = "end_time"

	defaultAuditLimit = 50
	maxAuditLimit     = 1000

	kindAuditQuery = "AuditQueryError"
	kindBadRequest = "BadRequest"
)

// auditEventResponse wraps a paginated list of audit events.
type auditEventResponse struct {
	Data    []audit.Event `json:"data"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// listAuditEvents handles GET /api/audit/events.
//
// @Summary      List audit events
// @Description  Returns invocation audit events, newest first.
// @Tags         Audit
// @Produce      json
// @Param        tool_name   query  string  false  "Filter by tool name"
// @Param        source      query  string  false  "Filter by source name"
// @Param        error_kind  query  string  false  "Filter by error kind"
// @Param        success     query  boolean false  "Filter by success/failure"
// @Param        start_time  query  string  false  "Events after this time (RFC 3339)"
// @Param        end_time    query  string  false  "Events before this time (RFC 3339)"
// @Param        page        query  integer false  "Page number, 1-based (default: 1)"
// @Param        per_page    query  integer false  "Results per page (default: 50)"
// @Success      200  {object}  auditEventResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/audit/events [get]
func (h *Handler) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.QueryFilter{
		ToolName:  q.Get("tool_name"),
		Source:    q.Get("source"),
		ErrorKind: q.Get("error_kind"),
		StartTime: parseTimeParam(q, paramStartTime),
		EndTime:   parseTimeParam(q, paramEndTime),
	}
	if v := q.Get("success"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.Success = &b
		}
	}

	filter.Limit = parseLimit(q)
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}
	filter.Limit = min(filter.Limit, maxAuditLimit)
	filter.Offset = parsePageOffset(q, filter.Limit)

	events, err := h.deps.AuditQuerier.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindAuditQuery, "failed to query audit events")
		return
	}

	countFilter := filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := h.deps.AuditQuerier.Count(r.Context(), countFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindAuditQuery, "failed to count audit events")
		return
	}

	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, auditEventResponse{
		Data:    events,
		Total:   total,
		Page:    filter.Offset/filter.Limit + 1,
		PerPage: filter.Limit,
	})
}

// getAuditEvent handles GET /api/audit/events/{id}.
//
// @Summary      Get audit event
// @Tags         Audit
// @Produce      json
// @Param        id  path  string  true  "Audit event ID"
// @Success      200  {object}  audit.Event
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/audit/events/{id} [get]
func (h *Handler) getAuditEvent(w http.ResponseWriter, r *http.Request) {
	filter := audit.QueryFilter{ID: mux.Vars(r)["id"], Limit: 1}
	events, err := h.deps.AuditQuerier.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindAuditQuery, "failed to query audit event")
		return
	}
	if len(events) == 0 {
		writeError(w, http.StatusNotFound, "NotFound", "audit event not found")
		return
	}
	writeJSON(w, http.StatusOK, events[0])
}

// getAuditTimeseries handles GET /api/audit/metrics/timeseries.
//
// @Summary      Get invocation timeseries
// @Description  Returns invocation counts bucketed by time resolution.
// @Tags         Audit Metrics
// @Produce      json
// @Param        resolution  query  string  false  "Time bucket resolution: minute, hour, day (default: hour)"
// @Param        start_time  query  string  false  "Start time (RFC 3339)"
// @Param        end_time    query  string  false  "End time (RFC 3339)"
// @Success      200  {array}   audit.TimeseriesBucket
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/audit/metrics/timeseries [get]
func (h *Handler) getAuditTimeseries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resolution := audit.Resolution(q.Get("resolution"))
	if resolution == "" {
		resolution = audit.ResolutionHour
	}
	if !audit.ValidResolutions[resolution] {
		writeError(w, http.StatusBadRequest, kindBadRequest, "invalid resolution: must be minute, hour, or day")
		return
	}

	buckets, err := h.deps.AuditMetricsQuerier.Timeseries(r.Context(), audit.TimeseriesFilter{
		Resolution: resolution,
		StartTime:  parseTimeParam(q, paramStartTime),
		EndTime:    parseTimeParam(q, paramEndTime),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindAuditQuery, "failed to query timeseries")
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// getAuditBreakdown handles GET /api/audit/metrics/breakdown.
//
// @Summary      Get invocation breakdown
// @Description  Returns invocation counts grouped by a dimension.
// @Tags         Audit Metrics
// @Produce      json
// @Param        group_by    query  string  true   "Dimension: tool_name, tool_kind, source, error_kind, transport"
// @Param        limit       query  integer false  "Max entries (default: 10, max: 100)"
// @Param        start_time  query  string  false  "Start time (RFC 3339)"
// @Param        end_time    query  string  false  "End time (RFC 3339)"
// @Success      200  {array}   audit.BreakdownEntry
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/audit/metrics/breakdown [get]
func (h *Handler) getAuditBreakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	groupBy := audit.BreakdownDimension(q.Get("group_by"))
	if !audit.ValidBreakdownDimensions[groupBy] {
		writeError(w, http.StatusBadRequest, kindBadRequest,
			"invalid group_by: must be tool_name, tool_kind, source, error_kind, or transport")
		return
	}

	var limit int
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.deps.AuditMetricsQuerier.Breakdown(r.Context(), audit.BreakdownFilter{
		GroupBy:   groupBy,
		Limit:     limit,
		StartTime: parseTimeParam(q, paramStartTime),
		EndTime:   parseTimeParam(q, paramEndTime),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindAuditQuery, "failed to query breakdown")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// getAuditOverview handles GET /api/audit/metrics/overview.
//
// @Summary      Get invocation overview
// @Tags         Audit Metrics
// @Produce      json
// @Param        start_time  query  string  false  "Start time (RFC 3339)"
// @Param        end_time    query  string  false  "End time (RFC 3339)"
// @Success      200  {object}  audit.Overview
// @Failure      500  {object}  errorResponse
// @Router       /api/audit/metrics/overview [get]
func (h *Handler) getAuditOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	overview, err := h.deps.AuditMetricsQuerier.Overview(r.Context(),
		parseTimeParam(q, paramStartTime), parseTimeParam(q, paramEndTime))
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindAuditQuery, "failed to query overview")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// getAuditPerformance handles GET /api/audit/metrics/performance.
//
// @Summary      Get invocation latency percentiles
// @Tags         Audit Metrics
// @Produce      json
// @Param        start_time  query  string  false  "Start time (RFC 3339)"
// @Param        end_time    query  string  false  "End time (RFC 3339)"
// @Success      200  {object}  audit.PerformanceStats
// @Failure      500  {object}  errorResponse
// @Router       /api/audit/metrics/performance [get]
func (h *Handler) getAuditPerformance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perf, err := h.deps.AuditMetricsQuerier.Performance(r.Context(),
		parseTimeParam(q, paramStartTime), parseTimeParam(q, paramEndTime))
	if err != nil {
		writeError(w, http.StatusInternalServerError, kindAuditQuery, "failed to query performance")
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// parseTimeParam parses an RFC 3339 query parameter. Invalid values are ignored.
func parseTimeParam(q url.Values, key string) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// parsePageOffset computes the offset of the 1-based page parameter.
func parsePageOffset(q url.Values, limit int) int {
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return (n - 1) * limit
		}
	}
	return 0
}

func parseLimit(q url.Values) int {
	if v := q.Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
