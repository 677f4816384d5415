package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/repository"
)

func TestReadIngredients(t *testing.T) {
	items, err := readIngredients(strings.NewReader("name,measurement_unit\nабрикосовое варенье,г\n\"salt, coarse\", g\n"))
	if err != nil {
		t.Fatalf("readIngredients failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[1].Name != "salt, coarse" || items[1].MeasurementUnit != "g" {
		t.Errorf("unexpected item: %+v", items[1])
	}

	if _, err := readIngredients(strings.NewReader("only-one-column\n")); err == nil {
		t.Error("expected an error for a short row")
	}
}

func TestImportTagsSkipsExisting(t *testing.T) {
	db, err := database.OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()
	repo := repository.New(db)

	path := filepath.Join(t.TempDir(), "tags.yaml")
	fixture := "- name: Breakfast\n  slug: breakfast\n- name: Lunch\n  slug: lunch\n"
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	created, skipped, err := importTags(ctx, repo, path)
	if err != nil || created != 2 || skipped != 0 {
		t.Fatalf("first import = %d/%d, %v", created, skipped, err)
	}
	created, skipped, err = importTags(ctx, repo, path)
	if err != nil || created != 0 || skipped != 2 {
		t.Fatalf("second import = %d/%d, %v", created, skipped, err)
	}
}
