// Package trino provides the "trino" source kind on trinodb/trino-go-client.
package trino

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/trinodb/trino-go-client/trino"

	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/sources/sqlutil"
)

// Kind is the source kind name.
const Kind = "trino"

const (
	defaultPlainPort = 8080
	defaultSSLPort   = 443
	clientSource     = "mcp-toolbox"
)

// Factory validates a trino spec.
func Factory(spec sources.Spec) (sources.Connector, error) {
	if err := spec.Require("host", "user", "catalog"); err != nil {
		return nil, err
	}
	dsn, err := DSN(spec)
	if err != nil {
		return nil, err
	}
	return sources.ConnectorFunc(func(ctx context.Context) (sources.Source, error) {
		db, err := sqlx.ConnectContext(ctx, "trino", dsn)
		if err != nil {
			return nil, fmt.Errorf("connecting to trino %s: %w", spec.Host, err)
		}
		if spec.MaxOpenConns > 0 {
			db.SetMaxOpenConns(spec.MaxOpenConns)
		}
		return sqlutil.New(spec.Name, Kind, db), nil
	}), nil
}

// DSN builds the trino-go-client connection string. A password or
// sslmode "require" selects https; the client refuses passwords over http.
func DSN(spec sources.Spec) (string, error) {
	ssl := spec.SSLMode == "require" || spec.Password != ""
	def := defaultPlainPort
	scheme := "http"
	if ssl {
		def = defaultSSLPort
		scheme = "https"
	}
	port, err := spec.PortNumber(def)
	if err != nil {
		return "", err
	}

	u := url.URL{
		Scheme: scheme,
		Host:   spec.Host + ":" + strconv.Itoa(port),
		User:   url.User(spec.User),
	}
	if spec.Password != "" {
		u.User = url.UserPassword(spec.User, spec.Password)
	}

	cfg := &trino.Config{
		ServerURI: u.String(),
		Source:    clientSource,
		Catalog:   spec.Catalog,
		Schema:    spec.Schema,
	}
	dsn, err := cfg.FormatDSN()
	if err != nil {
		return "", spec.Invalid("building dsn: %v", err)
	}
	return dsn, nil
}
