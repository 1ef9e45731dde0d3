package invoke_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/sources"
	"github.com/txn2/mcp-toolbox/pkg/sources/sqlite"
	"github.com/txn2/mcp-toolbox/pkg/statement"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

const hotelSchema = `
CREATE TABLE hotels (
	id            INTEGER NOT NULL PRIMARY KEY,
	name          TEXT    NOT NULL,
	location      TEXT    NOT NULL,
	price_tier    TEXT    NOT NULL,
	checkin_date  TEXT    NOT NULL,
	checkout_date TEXT    NOT NULL,
	booked        INTEGER NOT NULL DEFAULT 0
);
INSERT INTO hotels (id, name, location, price_tier, checkin_date, checkout_date, booked) VALUES
	(1, 'Hilton Basel', 'Basel', 'Luxury', '2024-04-22', '2024-04-20', 0),
	(2, 'Marriott Zurich', 'Zurich', 'Upscale', '2024-04-14', '2024-04-21', 0),
	(3, 'Hyatt Regency Basel', 'Basel', 'Upper Upscale', '2024-04-02', '2024-04-20', 0),
	(4, 'Radisson Blu Lucerne', 'Lucerne', 'Midscale', '2024-04-24', '2024-04-05', 0),
	(5, 'Best Western Bern', 'Bern', 'Upper Midscale', '2024-04-23', '2024-04-01', 0),
	(6, 'InterContinental Geneva', 'Geneva', 'Luxury', '2024-04-23', '2024-04-28', 0),
	(7, 'Sheraton Zurich', 'Zurich', 'Upper Upscale', '2024-04-27', '2024-04-02', 0),
	(8, 'Holiday Inn Basel', 'Basel', 'Upper Midscale', '2024-04-24', '2024-04-09', 0),
	(9, 'Courtyard Zurich', 'Zurich', 'Upscale', '2024-04-03', '2024-04-13', 0),
	(10, 'Comfort Inn Bern', 'Bern', 'Midscale', '2024-04-04', '2024-04-16', 0);
`

// seedHotels creates the hotels database file and returns its path.
func seedHotels(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hotels.db")
	db, err := sqlx.Open("sqlite", sqlite.DSN(path))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	_, err = db.Exec(hotelSchema)
	require.NoError(t, err)
	return path
}

func hotelTools() map[string]tools.Spec {
	id := tools.Parameter{Name: "hotel_id", Type: tools.TypeInteger, Description: "The ID of the hotel."}
	return map[string]tools.Spec{
		"search-hotels-by-name": {
			Kind:        tools.KindSQLiteSQL,
			Source:      "my-sqlite",
			Description: "Search for hotels based on name.",
			Parameters: []tools.Parameter{
				{Name: "name", Type: tools.TypeString, Description: "The name of the hotel."},
			},
			Statement: "SELECT * FROM hotels WHERE name LIKE '%' || ? || '%' ORDER BY id",
			ReadOnly:  true,
		},
		"search-hotels-by-location": {
			Kind:        tools.KindSQLiteSQL,
			Source:      "my-sqlite",
			Description: "Search for hotels based on location.",
			Parameters: []tools.Parameter{
				{Name: "location", Type: tools.TypeString, Description: "The location of the hotel."},
			},
			Statement: "SELECT * FROM hotels WHERE location LIKE '%' || ? || '%' ORDER BY id",
			ReadOnly:  true,
		},
		"get-hotel": {
			Kind:        tools.KindSQLiteSQL,
			Source:      "my-sqlite",
			Description: "Get a hotel by its ID.",
			Parameters:  []tools.Parameter{id},
			Statement:   "SELECT * FROM hotels WHERE id = ?",
		},
		"book-hotel": {
			Kind:        tools.KindSQLiteSQL,
			Source:      "my-sqlite",
			Description: "Book a hotel by its ID.",
			Parameters:  []tools.Parameter{id},
			Statement:   "UPDATE hotels SET booked = 1 WHERE id = ?",
		},
		"update-hotel": {
			Kind:        tools.KindSQLiteSQL,
			Source:      "my-sqlite",
			Description: "Update a hotel's check-in and check-out dates by its ID.",
			Parameters: []tools.Parameter{
				{Name: "checkin_date", Type: tools.TypeString, Description: "The new check-in date."},
				{Name: "checkout_date", Type: tools.TypeString, Description: "The new check-out date."},
				id,
			},
			Statement: "UPDATE hotels SET checkin_date = ?, checkout_date = ? WHERE id = ?",
		},
		"cancel-hotel": {
			Kind:        tools.KindSQLiteSQL,
			Source:      "my-sqlite",
			Description: "Cancel a hotel by its ID.",
			Parameters:  []tools.Parameter{id},
			Statement:   "UPDATE hotels SET booked = 0 WHERE id = ?",
		},
	}
}

func loadHotels(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(registry.WithVersion("test"))
	err := reg.Load(context.Background(), registry.Config{
		Sources: map[string]sources.Spec{
			"my-sqlite": {Kind: sqlite.Kind, Path: seedHotels(t)},
		},
		Tools: hotelTools(),
		Toolsets: map[string][]string{
			"my-toolset": {
				"search-hotels-by-name", "search-hotels-by-location", "get-hotel",
				"book-hotel", "update-hotel", "cancel-hotel",
			},
		},
		UnusedParameters: statement.UnusedWarn,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}
