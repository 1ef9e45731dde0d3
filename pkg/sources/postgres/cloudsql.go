package postgres

import (
	"context"
	"fmt"
	"net"
	"strings"

	"cloud.google.com/go/cloudsqlconn"

	"github.com/txn2/mcp-toolbox/pkg/sources"
)

// CloudSQLFactory validates a cloud-sql-postgres spec. Without a password
// the connection uses IAM database authentication.
func CloudSQLFactory(spec sources.Spec) (sources.Connector, error) {
	if err := spec.Require("project", "region", "instance", "user", "database"); err != nil {
		return nil, err
	}
	ipType := strings.ToLower(spec.IPType)
	switch ipType {
	case "", "public", "private", "psc":
	default:
		return nil, spec.Invalid("ipType must be public, private or psc, got %q", spec.IPType)
	}

	return sources.ConnectorFunc(func(ctx context.Context) (sources.Source, error) {
		opts := []cloudsqlconn.Option{cloudsqlconn.WithDefaultDialOptions(dialOptions(ipType)...)}
		if spec.Password == "" {
			opts = append(opts, cloudsqlconn.WithIAMAuthN())
		}
		dialer, err := cloudsqlconn.NewDialer(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating cloud sql dialer: %w", err)
		}

		parts := []string{kv("user", spec.User), kv("dbname", spec.Database), kv("sslmode", "disable")}
		if spec.Password != "" {
			parts = append(parts, kv("password", spec.Password))
		}
		cfg, err := parseConfig(spec, strings.Join(parts, " "))
		if err != nil {
			_ = dialer.Close()
			return nil, err
		}
		instance := InstanceConnectionName(spec)
		cfg.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, instance)
		}

		src, err := open(ctx, spec, cfg, dialer.Close)
		if err != nil {
			_ = dialer.Close()
			return nil, err
		}
		return src, nil
	}), nil
}

// InstanceConnectionName returns project:region:instance.
func InstanceConnectionName(spec sources.Spec) string {
	return spec.Project + ":" + spec.Region + ":" + spec.Instance
}

func dialOptions(ipType string) []cloudsqlconn.DialOption {
	switch ipType {
	case "private":
		return []cloudsqlconn.DialOption{cloudsqlconn.WithPrivateIP()}
	case "psc":
		return []cloudsqlconn.DialOption{cloudsqlconn.WithPSC()}
	default:
		return []cloudsqlconn.DialOption{cloudsqlconn.WithPublicIP()}
	}
}
