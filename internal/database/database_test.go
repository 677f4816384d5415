package database

import (
	"context"
	"testing"
)

func TestRebind(t *testing.T) {
	q := `SELECT id FROM recipes WHERE author_id = ? AND id IN (?, ?)`
	if got := rebind(SQLite, q); got != q {
		t.Errorf("sqlite rebind changed the query: %s", got)
	}
	want := `SELECT id FROM recipes WHERE author_id = $1 AND id IN ($2, $3)`
	if got := rebind(Postgres, q); got != want {
		t.Errorf("postgres rebind = %s", got)
	}
}

func TestPlaceholders(t *testing.T) {
	for n, want := range map[int]string{0: "", 1: "?", 3: "?, ?, ?"} {
		if got := Placeholders(n); got != want {
			t.Errorf("Placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestOpenSQLiteEnforcesConstraints(t *testing.T) {
	db, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `INSERT INTO tags (name, slug) VALUES (?, ?)`, "Breakfast", "breakfast"); err != nil {
		t.Fatalf("insert tag: %v", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO tags (name, slug) VALUES (?, ?)`, "Breakfast 2", "breakfast")
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)`, 999, 1)
	if !IsForeignKeyViolation(err) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
	if IsUniqueViolation(err) {
		t.Fatal("foreign key failure classified as unique")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		db, err := Open(Options{Driver: "sqlite3", DataDir: dir})
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		db.Close()
	}
	if _, err := Open(Options{Driver: "mongo"}); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
