package tbl

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE items (name TEXT, qty INTEGER, price REAL, note TEXT);
		INSERT INTO items VALUES ('apple', 3, 1.5, NULL);
		INSERT INTO items VALUES ('pear', 2, 2, 'ripe');
	`)
	require.NoError(t, err)
	return db
}

func TestQuery(t *testing.T) {
	db := openTestDB(t)

	f, err := AsFrame(Query{DB: db, Text: "SELECT name, qty, price, note FROM items ORDER BY name"})
	require.NoError(t, err)

	df, ok := f.(*DataFrame)
	require.True(t, ok)
	rows, cols := Shape(df)
	require.Equal(t, 2, rows)
	require.Equal(t, 4, cols)

	require.Equal(t, String, df.Series(0).Dtype)
	require.Equal(t, Int, df.Series(1).Dtype)
	require.Equal(t, Float, df.Series(2).Dtype)
	require.Equal(t, String, df.Series(3).Dtype)

	got, err := Serialize(context.Background(), df)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "qty", "price", "note"}, got.Columns)
	require.Equal(t, [][]any{{"apple", 3, 1.5, nil}, {"pear", 2, 2.0, "ripe"}}, got.Data)
}

func TestQuery_Args(t *testing.T) {
	db := openTestDB(t)

	f, err := AsFrame(Query{DB: db, Text: "SELECT qty FROM items WHERE name = ?", Args: []any{"pear"}})
	require.NoError(t, err)
	v, err := Cell(f, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestQuery_Error(t *testing.T) {
	db := openTestDB(t)

	_, err := AsFrame(Query{DB: db, Text: "SELECT * FROM missing"})
	require.Error(t, err)
}
