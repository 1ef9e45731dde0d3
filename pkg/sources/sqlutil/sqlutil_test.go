package sqlutil

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-toolbox/pkg/sources"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New("hotels", "sqlite", sqlx.NewDb(db, "sqlmock")), mock
}

func TestExecuteQuery(t *testing.T) {
	d, mock := newMock(t)
	assert.Equal(t, "hotels", d.Name())
	assert.Equal(t, "sqlite", d.Kind())

	mock.ExpectQuery("SELECT \\* FROM hotels WHERE name LIKE").
		WithArgs("Hilton").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "booked"}).
			AddRow(int64(1), []byte("Hilton Basel"), false))

	res, err := d.Execute(context.Background(), sources.Request{
		Statement: "SELECT * FROM hotels WHERE name LIKE '%' || ? || '%'",
		Args:      []any{"Hilton"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "booked"}, res.Columns)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Hilton Basel", res.Records[0]["name"])
	assert.Equal(t, int64(1), res.Records[0]["id"])
	assert.False(t, res.Mutation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteEmptyQuery(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	res, err := d.Execute(context.Background(), sources.Request{Statement: "SELECT id FROM hotels"})
	require.NoError(t, err)
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
}

func TestExecuteMutation(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectExec("UPDATE hotels SET booked").
		WithArgs("3").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := d.Execute(context.Background(), sources.Request{
		Statement: "UPDATE hotels SET booked = 1 WHERE id = ?",
		Args:      []any{"3"},
		Mutates:   true,
	})
	require.NoError(t, err)
	assert.True(t, res.Mutation)
	require.NotNil(t, res.RowsAffected)
	assert.Equal(t, int64(1), *res.RowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationReturning(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO hotels").
		WithArgs("Ibis").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	res, err := d.Execute(context.Background(), sources.Request{
		Statement: "INSERT INTO hotels (name) VALUES (?) RETURNING id",
		Args:      []any{"Ibis"},
		Mutates:   true,
	})
	require.NoError(t, err)
	assert.False(t, res.Mutation)
	assert.Equal(t, int64(11), res.Records[0]["id"])
}

func TestExecuteErrors(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("no such table: hotel"))
	_, err := d.Execute(context.Background(), sources.Request{Statement: "SELECT * FROM hotel"})
	assert.EqualError(t, err, "no such table: hotel")

	mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint failed"))
	_, err = d.Execute(context.Background(), sources.Request{Statement: "DELETE FROM hotels", Mutates: true})
	assert.EqualError(t, err, "constraint failed")

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(1).RowError(0, errors.New("row failed")))
	_, err = d.Execute(context.Background(), sources.Request{Statement: "SELECT id FROM hotels"})
	assert.Error(t, err)
}

func TestPingAndClose(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	d := New("x", "trino", sqlx.NewDb(db, "sqlmock"))

	mock.ExpectPing()
	require.NoError(t, d.Ping(context.Background()))
	mock.ExpectClose()
	require.NoError(t, d.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReadOnlySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	d := New("hotels", "sqlite", sqlx.NewDb(db, "sqlmock"),
		WithReadOnlySession("PRAGMA query_only = ON", "PRAGMA query_only = OFF"))

	mock.ExpectExec("PRAGMA query_only = ON").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM hotels").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("PRAGMA query_only = OFF").WillReturnResult(sqlmock.NewResult(0, 0))

	res, err := d.Execute(context.Background(), sources.Request{Statement: "SELECT id FROM hotels", ReadOnly: true})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReadOnlyWithoutSession(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("SELECT id FROM hotels").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := d.Execute(context.Background(), sources.Request{Statement: "SELECT id FROM hotels", ReadOnly: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
