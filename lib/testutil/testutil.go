package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

type DBParams struct {
	// Schema is executed on the fresh database, nothing is executed when empty.
	Schema string
	// Path is the sqlite file, `:memory:` when unspecified.
	Path string
}

// SetupDB opens a sqlite database that is closed when the test ends.
func SetupDB(t testing.TB, params DBParams) *sql.DB {
	dbpath := ":memory:"
	if params.Path != "" {
		dbpath = params.Path
	}
	sqlite, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a separate database
	sqlite.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlite.Close() })

	if params.Schema != "" {
		_, err = sqlite.Exec(params.Schema)
		if err != nil {
			t.Fatal(err)
		}
	}
	return sqlite
}
