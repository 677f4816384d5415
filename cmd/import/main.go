// Command import loads ingredient and tag fixtures into the database.
//
//	import -ingredients data/ingredients.csv -tags data/tags.yaml
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/config"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/models"
	"github.com/gera1311/foodgram/internal/repository"
)

func main() {
	ingredientsPath := flag.String("ingredients", "", "CSV file with name,measurement_unit rows")
	tagsPath := flag.String("tags", "", "YAML file with a list of {name, slug}")
	flag.Parse()

	if *ingredientsPath == "" && *tagsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Open(database.Options{
		Driver:  cfg.Database.Driver,
		DataDir: cfg.Database.DataDir,
		URL:     cfg.Database.URL,
	})
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()

	repo := repository.New(db, repository.WithLogger(log))
	ctx := context.Background()

	if *ingredientsPath != "" {
		n, err := importIngredients(ctx, repo, *ingredientsPath)
		if err != nil {
			log.Fatal("ingredient import failed", "file", *ingredientsPath, "error", err)
		}
		log.Info("ingredients loaded", "file", *ingredientsPath, "count", n)
	}
	if *tagsPath != "" {
		created, skipped, err := importTags(ctx, repo, *tagsPath)
		if err != nil {
			log.Fatal("tag import failed", "file", *tagsPath, "error", err)
		}
		log.Info("tags loaded", "file", *tagsPath, "created", created, "skipped", skipped)
	}
}

func importIngredients(ctx context.Context, repo *repository.Repository, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	items, err := readIngredients(f)
	if err != nil {
		return 0, err
	}
	return repo.CreateIngredients(ctx, items)
}

// readIngredients parses name,unit rows. A leading header row is skipped.
func readIngredients(r io.Reader) ([]models.IngredientInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	var items []models.IngredientInput
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(rec[0], "name") {
			continue
		}
		items = append(items, models.IngredientInput{Name: rec[0], MeasurementUnit: rec[1]})
	}
	return items, nil
}

func importTags(ctx context.Context, repo *repository.Repository, path string) (created, skipped int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	var tags []models.TagInput
	if err := yaml.Unmarshal(raw, &tags); err != nil {
		return 0, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, t := range tags {
		_, err := repo.CreateTag(ctx, t)
		switch {
		case err == nil:
			created++
		case apperr.IsCode(err, "tag_exists"):
			skipped++
		default:
			return created, skipped, fmt.Errorf("tag %q: %w", t.Slug, err)
		}
	}
	return created, skipped, nil
}
