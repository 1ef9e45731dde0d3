// Package dgraph provides the "dgraph" source kind over Dgraph's HTTP API.
package dgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/txn2/mcp-toolbox/pkg/query"
	"github.com/txn2/mcp-toolbox/pkg/sources"
)

// Kind is the source kind name.
const Kind = "dgraph"

const (
	contentJSON = "application/json"
	contentRDF  = "application/rdf"

	// apiKeyHeader authenticates against Dgraph Cloud.
	apiKeyHeader = "X-Auth-Token"
	// accessTokenHeader carries the ACL access JWT from /login.
	accessTokenHeader = "X-Dgraph-AccessToken"
)

// Factory validates a dgraph spec.
func Factory(spec sources.Spec) (sources.Connector, error) {
	if err := spec.Require("dgraphUrl"); err != nil {
		return nil, err
	}
	u, err := url.Parse(spec.DgraphURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, spec.Invalid("dgraphUrl must be an http(s) URL, got %q", spec.DgraphURL)
	}
	if spec.User != "" && spec.Password == "" {
		return nil, spec.Invalid("password is required when user is set")
	}
	return sources.ConnectorFunc(func(ctx context.Context) (sources.Source, error) {
		return Open(ctx, spec, http.DefaultTransport)
	}), nil
}

// Source is a sources.Source talking to one Dgraph alpha.
type Source struct {
	name    string
	base    string
	spec    sources.Spec
	client  *http.Client
	tokenMu sync.RWMutex
	token   string
}

// Open checks the alpha's health endpoint and logs in when ACL credentials
// are configured.
func Open(ctx context.Context, spec sources.Spec, transport http.RoundTripper) (*Source, error) {
	s := &Source{
		name:   spec.Name,
		base:   strings.TrimRight(spec.DgraphURL, "/"),
		spec:   spec,
		client: &http.Client{Transport: transport},
	}
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	if spec.User != "" {
		if err := s.login(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Name implements sources.Source.
func (s *Source) Name() string { return s.name }

// Kind implements sources.Source.
func (s *Source) Kind() string { return Kind }

// Execute implements sources.Source. Queries go to /query with their
// variables; mutations go to /mutate and commit immediately.
func (s *Source) Execute(ctx context.Context, req sources.Request) (*query.Result, error) {
	if req.ReadOnly || !req.Mutates {
		return s.query(ctx, req)
	}
	return s.mutate(ctx, req)
}

// Ping implements sources.Source.
func (s *Source) Ping(ctx context.Context) error {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/health", http.NoBody)
	if err != nil {
		return err
	}
	if s.spec.APIKey != "" {
		hreq.Header.Set(apiKeyHeader, s.spec.APIKey)
	}
	resp, err := s.client.Do(hreq)
	if err != nil {
		return fmt.Errorf("checking dgraph health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dgraph health returned %s", resp.Status)
	}
	return nil
}

// Close implements sources.Source.
func (s *Source) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type mutationData struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	UIDs    map[string]string `json:"uids"`
}

func (s *Source) query(ctx context.Context, req sources.Request) (*query.Result, error) {
	vars := make(map[string]string, len(req.Vars))
	for k, v := range req.Vars {
		str, err := variableString(v)
		if err != nil {
			return nil, fmt.Errorf("encoding variable %s: %w", k, err)
		}
		vars["$"+k] = str
	}
	body, err := json.Marshal(map[string]any{"query": req.Statement, "variables": vars})
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if req.ReadOnly {
		params.Set("ro", "true")
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline).Round(time.Millisecond); remaining > 0 {
			params.Set("timeout", remaining.String())
		}
	}
	path := "/query"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	data, err := s.post(ctx, path, contentJSON, body)
	if err != nil {
		return nil, err
	}

	var rec map[string]any
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding query data: %w", err)
		}
	}
	if rec == nil {
		return query.Rows(nil, nil), nil
	}
	return query.Rows(nil, []map[string]any{query.NormalizeRecord(rec)}), nil
}

func (s *Source) mutate(ctx context.Context, req sources.Request) (*query.Result, error) {
	body := []byte(req.Statement)
	contentType := contentRDF

	if isJSON(req.Statement) {
		var tmpl any
		if err := json.Unmarshal(body, &tmpl); err != nil {
			return nil, fmt.Errorf("decoding mutation template: %w", err)
		}
		var err error
		if body, err = json.Marshal(substitute(tmpl, req.Vars)); err != nil {
			return nil, err
		}
		contentType = contentJSON
	} else if len(req.Vars) > 0 {
		return nil, errors.New("RDF mutations cannot bind variables; use a JSON mutation template")
	}

	data, err := s.post(ctx, "/mutate?commitNow=true", contentType, body)
	if err != nil {
		return nil, err
	}
	var md mutationData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &md); err != nil {
			return nil, fmt.Errorf("decoding mutation data: %w", err)
		}
	}
	return query.Affected(int64(len(md.UIDs))), nil
}

// post sends body and returns the response's data field. An expired ACL
// token triggers one re-login.
func (s *Source) post(ctx context.Context, path, contentType string, body []byte) (json.RawMessage, error) {
	data, err := s.do(ctx, path, contentType, body)
	if err != nil && s.spec.User != "" && strings.Contains(strings.ToLower(err.Error()), "token is expired") {
		if lerr := s.login(ctx); lerr != nil {
			return nil, lerr
		}
		return s.do(ctx, path, contentType, body)
	}
	return data, err
}

func (s *Source) do(ctx context.Context, path, contentType string, body []byte) (json.RawMessage, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", contentType)
	if s.spec.APIKey != "" {
		hreq.Header.Set(apiKeyHeader, s.spec.APIKey)
	}
	s.tokenMu.RLock()
	if s.token != "" {
		hreq.Header.Set(accessTokenHeader, s.token)
	}
	s.tokenMu.RUnlock()

	resp, err := s.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading dgraph response: %w", err)
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("dgraph returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		}
		return nil, fmt.Errorf("decoding dgraph response: %w", err)
	}
	if len(r.Errors) > 0 {
		msgs := make([]string, len(r.Errors))
		for i, e := range r.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("dgraph: %s", strings.Join(msgs, "; "))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dgraph returned %s", resp.Status)
	}
	return r.Data, nil
}

func (s *Source) login(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{
		"userid":    s.spec.User,
		"password":  s.spec.Password,
		"namespace": s.spec.Namespace,
	})
	if err != nil {
		return err
	}

	s.tokenMu.Lock()
	s.token = ""
	s.tokenMu.Unlock()

	data, err := s.do(ctx, "/login", contentJSON, body)
	if err != nil {
		return fmt.Errorf("logging in to dgraph as %s: %w", s.spec.User, err)
	}
	var tokens struct {
		AccessJWT string `json:"accessJWT"`
	}
	if err := json.Unmarshal(data, &tokens); err != nil || tokens.AccessJWT == "" {
		return fmt.Errorf("logging in to dgraph as %s: no access token returned", s.spec.User)
	}

	s.tokenMu.Lock()
	s.token = tokens.AccessJWT
	s.tokenMu.Unlock()
	return nil
}

// variableString renders a DQL variable; Dgraph takes variable values as strings.
func variableString(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []any, map[string]any:
		b, err := json.Marshal(val)
		return string(b), err
	default:
		return fmt.Sprint(val), nil
	}
}

func isJSON(stmt string) bool {
	return json.Valid([]byte(strings.TrimSpace(stmt)))
}

// substitute replaces every string leaf of the form "$name" with the typed
// value of that variable.
func substitute(v any, vars map[string]any) any {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "$") {
			if arg, ok := vars[val[1:]]; ok {
				return arg
			}
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = substitute(e, vars)
		}
		return val
	case map[string]any:
		for k, e := range val {
			val[k] = substitute(e, vars)
		}
		return val
	default:
		return val
	}
}
