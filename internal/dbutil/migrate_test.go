package dbutil

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"migrations/000_create_schema_migrations.sql": &fstest.MapFile{Data: []byte(`
			CREATE TABLE schema_migrations (version TEXT PRIMARY KEY);
			CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		`)},
		"migrations/001_add_widget_color.sql": &fstest.MapFile{Data: []byte(`
			ALTER TABLE widgets ADD COLUMN color TEXT;
		`)},
	}
}

func TestApplyMigrations(t *testing.T) {
	t.Run("applies all migrations in order", func(t *testing.T) {
		db, err := Open(":memory:", nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, ApplyMigrations(db, nil, testMigrations(), "migrations"))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&count))
		assert.Equal(t, 1, count)

		var versions []string
		rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var v string
			require.NoError(t, rows.Scan(&v))
			versions = append(versions, v)
		}
		assert.Equal(t, []string{"000", "001"}, versions)

		_, err = db.Exec("INSERT INTO widgets (id, name, color) VALUES (1, 'gear', 'red')")
		assert.NoError(t, err)
	})

	t.Run("is idempotent across repeated calls", func(t *testing.T) {
		db, err := Open(":memory:", nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, ApplyMigrations(db, nil, testMigrations(), "migrations"))
		require.NoError(t, ApplyMigrations(db, nil, testMigrations(), "migrations"))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.Equal(t, 2, count)
	})
}
