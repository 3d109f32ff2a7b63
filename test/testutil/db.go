package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/shaibs/reqsearch/internal/config"
	"github.com/shaibs/reqsearch/internal/db"
)

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "reqsearch",
		Password: "reqsearch_pass",
		DBName:   "reqsearch_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// ResetTables empties every table so count assertions do not see rows left
// behind by other tests.
func ResetTables(t *testing.T, conn *sql.DB) {
	t.Helper()
	for _, table := range []string{"request_chunks", "requests", "embedding_cache"} {
		if _, err := conn.Exec("TRUNCATE TABLE " + table + " CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}
