package db

import (
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/banshee-data/scene-regress/internal/testutil"
)

func TestPragmasApplied(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "pragmas.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Expected foreign_keys=1, got %d", foreignKeys)
	}
}

func TestEmbeddedMigrationsFS(t *testing.T) {
	entries, err := fs.ReadDir(MigrationsFS(), ".")
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}
	var up, down int
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".sql":
			if m, _ := filepath.Match("*.up.sql", e.Name()); m {
				up++
			}
			if m, _ := filepath.Match("*.down.sql", e.Name()); m {
				down++
			}
		}
	}
	if up == 0 || up != down {
		t.Errorf("expected matching up/down migrations, got %d up and %d down", up, down)
	}
}

func TestNewDB_CreatesSchema(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"runs", "scene_results", "schema_migrations"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	version, dirty, err := db.MigrateVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected version 1 clean, got %d dirty=%v", version, dirty)
	}
}

func TestNewDB_ReopenIsNoChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := NewDB(path)
	testutil.AssertNoError(t, err)
	db.Close()

	db, err = NewDB(path)
	testutil.AssertNoError(t, err)
	db.Close()
}

func TestOpenDB_BadPath(t *testing.T) {
	_, err := NewDB(filepath.Join(t.TempDir(), "missing", "dir", "history.db"))
	testutil.AssertError(t, err)
}

func TestMigrateUp_MapFS(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "mapfs.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	migrations := fstest.MapFS{
		"000001_init.up.sql":   &fstest.MapFile{Data: []byte("CREATE TABLE IF NOT EXISTS t1 (id INTEGER PRIMARY KEY);")},
		"000001_init.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE IF EXISTS t1;")},
	}

	version, _, err := db.MigrateVersion(migrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 before migrating, got %d", version)
	}

	if err := db.MigrateUp(migrations); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t1 (id) VALUES (1)"); err != nil {
		t.Fatalf("t1 not created: %v", err)
	}

	version, dirty, err := db.MigrateVersion(migrations)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected version 1 clean, got %d dirty=%v", version, dirty)
	}
}

func TestMigrateUp_NilFS(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "nil.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp(nil); err == nil {
		t.Error("expected error for nil migrations filesystem")
	}
}

func TestMigrateUp_BadSQL(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "bad.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	migrations := fstest.MapFS{
		"000001_bad.up.sql":   &fstest.MapFile{Data: []byte("CREATE TABLEX nope;")},
		"000001_bad.down.sql": &fstest.MapFile{Data: []byte("")},
	}
	if err := db.MigrateUp(migrations); err == nil {
		t.Error("expected error from invalid migration SQL")
	}
}
