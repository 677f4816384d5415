package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchKey is the folded form stored in name_search. SQLite's lower()
// only folds ASCII, so folding happens here for every driver.
func searchKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ListIngredients returns ingredients whose name starts with prefix,
// ignoring case. An empty prefix lists everything.
func (r *Repository) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	query := `SELECT id, name, measurement_unit FROM ingredients`
	args := []interface{}{}
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		query += ` WHERE name_search LIKE ? ESCAPE '\'`
		args = append(args, likeEscaper.Replace(searchKey(prefix))+"%")
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := []models.Ingredient{}
	for rows.Next() {
		var i models.Ingredient
		if err := rows.Scan(&i.ID, &i.Name, &i.MeasurementUnit); err != nil {
			return nil, err
		}
		ingredients = append(ingredients, i)
	}
	return ingredients, rows.Err()
}

func (r *Repository) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	var i models.Ingredient
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, measurement_unit FROM ingredients WHERE id = ?`, id).
		Scan(&i.ID, &i.Name, &i.MeasurementUnit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("ingredient_not_found", "ingredient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load ingredient: %w", err)
	}
	return &i, nil
}

// CreateIngredients inserts the batch in one transaction and returns the
// number of rows written. Every entry needs a name and a unit.
func (r *Repository) CreateIngredients(ctx context.Context, in []models.IngredientInput) (int, error) {
	v := apperr.NewValidator()
	for _, it := range in {
		v.Check(strings.TrimSpace(it.Name) != "", "name", "name_required", "ingredient name is required")
		v.Check(strings.TrimSpace(it.MeasurementUnit) != "", "measurement_unit", "unit_required", "measurement unit is required")
	}
	if err := v.Err(); err != nil {
		return 0, err
	}

	err := r.withTx(ctx, func(tx *database.Tx) error {
		for _, it := range in {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ingredients (name, name_search, measurement_unit) VALUES (?, ?, ?)`,
				strings.TrimSpace(it.Name), searchKey(it.Name), strings.TrimSpace(it.MeasurementUnit)); err != nil {
				return fmt.Errorf("insert ingredient %q: %w", it.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.log.Info("ingredients imported", "count", len(in))
	return len(in), nil
}
