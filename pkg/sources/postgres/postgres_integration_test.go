//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/txn2/mcp-toolbox/pkg/sources"
)

func TestPostgresSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15",
		tcpostgres.WithDatabase("travel"),
		tcpostgres.WithUsername("toolbox"),
		tcpostgres.WithPassword("toolbox"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = pgContainer.Terminate(ctx) }()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	conn, err := Factory(sources.Spec{
		Name:     "hotels",
		Kind:     Kind,
		Host:     host,
		Port:     port.Port(),
		User:     "toolbox",
		Password: "toolbox",
		Database: "travel",
		SSLMode:  "disable",
	})
	require.NoError(t, err)

	src, err := conn.Connect(ctx)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	_, err = src.Execute(ctx, sources.Request{Statement: `
		CREATE TABLE hotels (
			id            INTEGER PRIMARY KEY,
			name          VARCHAR NOT NULL,
			booked        BIT NOT NULL DEFAULT B'0',
			checkin_date  DATE,
			checkout_date DATE
		)`, Mutates: true})
	require.NoError(t, err)

	res, err := src.Execute(ctx, sources.Request{
		Statement: "INSERT INTO hotels (id, name) VALUES (1, 'Hilton Basel'), (3, 'Hyatt Regency Basel')",
		Mutates:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.RowsAffected)
	assert.Equal(t, int64(2), *res.RowsAffected)

	res, err = src.Execute(ctx, sources.Request{
		Statement: "SELECT id, name FROM hotels WHERE name ILIKE '%' || $1 || '%'",
		Args:      []any{"hilton"},
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, int32(1), res.Records[0]["id"])

	res, err = src.Execute(ctx, sources.Request{
		Statement: "UPDATE hotels SET checkin_date = CAST($2 as date) WHERE id = $1",
		Args:      []any{"3", "2024-04-10"},
		Mutates:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), *res.RowsAffected)

	res, err = src.Execute(ctx, sources.Request{
		Statement: "SELECT checkin_date FROM hotels WHERE id = $1",
		Args:      []any{"3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-04-10T00:00:00Z", res.Records[0]["checkin_date"])

	_, err = src.Execute(ctx, sources.Request{
		Statement: "WITH d AS (DELETE FROM hotels RETURNING id) SELECT count(*) AS n FROM d",
		ReadOnly:  true,
	})
	require.Error(t, err, "read-only transaction must reject the delete")

	res, err = src.Execute(ctx, sources.Request{Statement: "SELECT count(*) AS n FROM hotels", ReadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Records[0]["n"])
}
