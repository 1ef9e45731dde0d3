// Package query holds the normalized, backend-agnostic form of an invocation result.
package query

// Result is the normalized outcome of a successful invocation. Exactly one of
// Records (tabular/graph results) or RowsAffected (mutation confirmation) is
// meaningful; Mutation tells which.
type Result struct {
	Columns      []string         `json:"columns,omitempty"`
	Records      []map[string]any `json:"records"`
	Mutation     bool             `json:"mutation,omitempty"`
	RowsAffected *int64           `json:"rowsAffected,omitempty"`
}

// Rows builds a tabular result. A nil records slice is normalized to empty so
// that an empty read encodes as [] rather than null.
func Rows(columns []string, records []map[string]any) *Result {
	if records == nil {
		records = []map[string]any{}
	}
	return &Result{Columns: columns, Records: records}
}

// Affected builds a mutation confirmation. A negative count means the backend
// did not report one.
func Affected(n int64) *Result {
	r := &Result{Mutation: true, Records: []map[string]any{}}
	if n >= 0 {
		r.RowsAffected = &n
	}
	return r
}

// Confirmation is the payload returned for mutations.
type Confirmation struct {
	Status       string `json:"status"`
	RowsAffected *int64 `json:"rowsAffected,omitempty"`
}

// Payload returns the value transports place in the response body: the record
// sequence for reads, a Confirmation for mutations.
func (r *Result) Payload() any {
	if r == nil {
		return nil
	}
	if r.Mutation {
		return Confirmation{Status: "ok", RowsAffected: r.RowsAffected}
	}
	return r.Records
}

// Len returns the number of records.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}
