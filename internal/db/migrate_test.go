package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyMigrationFileIsIdempotent(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })

	migration := filepath.Join("..", "..", "migrations", "001_init.sql")
	for i := 0; i < 2; i++ {
		if err := ApplyMigrationFile(sqdb, migration); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	for table, cols := range map[string][]string{
		"users":       {"id", "email", "username", "password_hash", "role", "is_activated", "activation_token", "created_at"},
		"status_logs": {"id", "recorded_at", "status"},
	} {
		for _, col := range cols {
			if !hasColumn(t, sqdb, table, col) {
				t.Fatalf("expected %s.%s to exist after migration", table, col)
			}
		}
	}
}

func TestApplyMigrationFileMissingFile(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })

	if err := ApplyMigrationFile(sqdb, filepath.Join(t.TempDir(), "missing.sql")); err == nil {
		t.Fatalf("expected error for missing migration file")
	}
}

func hasColumn(t *testing.T, sqdb *sql.DB, tableName, colName string) bool {
	t.Helper()
	rows, err := sqdb.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		t.Fatalf("table_info %s: %v", tableName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			t.Fatalf("scan table_info %s: %v", tableName, err)
		}
		if name == colName {
			return true
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate table_info %s: %v", tableName, err)
	}
	return false
}
