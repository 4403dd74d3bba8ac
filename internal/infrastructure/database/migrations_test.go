package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testSource() Source {
	return Source{
		FS: fstest.MapFS{
			"m/20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
			"m/20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
			"m/20260102_000000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);")},
			"m/20260102_000000_gadgets.down.sql": {Data: []byte("DROP TABLE gadgets;")},
			"m/README.md":                        {Data: []byte("ignored")},
		},
		Dir: "m",
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	src := testSource()

	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"widgets", "gadgets"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}

	// Idempotent
	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	src := testSource()

	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, src); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "gadgets") {
		t.Error("latest migration was not rolled back")
	}
	if !tableExists(t, db, "widgets") {
		t.Error("earlier migration was rolled back")
	}

	_, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "gadgets" {
		t.Errorf("pending = %+v, want gadgets", pending)
	}
}

func TestMigrate_FailureStopsAtBrokenMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	src := Source{FS: fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok_table (id INTEGER);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE nonsense (")},
		"20260103_000000_later.up.sql":  {Data: []byte("CREATE TABLE later_table (id INTEGER);")},
	}}

	if err := db.Migrate(ctx, src); err == nil {
		t.Fatal("Migrate() error = nil, want error")
	}
	if !tableExists(t, db, "ok_table") {
		t.Error("migration before the failure was not committed")
	}
	if tableExists(t, db, "later_table") {
		t.Error("migration after the failure was attempted")
	}
}

func TestMigrate_NilSource(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background(), Source{}); err != nil {
		t.Errorf("Migrate() with no source error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260118_120000_device_credentials.up.sql", "20260118_120000", "device_credentials", true, true},
		{"20260118_120000_device_credentials.down.sql", "20260118_120000", "device_credentials", false, true},
		{"20260118_120000.up.sql", "20260118_120000", "", true, true},
		{"20260118.up.sql", "", "", false, false},
		{"20260118_120000_x.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || isUp != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					version, name, isUp, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
