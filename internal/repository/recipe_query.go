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

// recipeColumns expects the viewer id bound three times, before any
// WHERE arguments.
const recipeColumns = `
	SELECT r.id, r.name, r.text, r.cooking_time, r.image, r.created_at,
	       u.id, u.email, u.username, u.first_name, u.last_name, u.avatar,
	       EXISTS(SELECT 1 FROM favorites f WHERE f.recipe_id = r.id AND f.user_id = ?),
	       EXISTS(SELECT 1 FROM shopping_carts sc WHERE sc.recipe_id = r.id AND sc.user_id = ?),
	       EXISTS(SELECT 1 FROM follows fo WHERE fo.author_id = u.id AND fo.user_id = ?)
	FROM recipes r
	JOIN users u ON u.id = r.author_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s scanner) (*models.Recipe, error) {
	var rec models.Recipe
	var avatar sql.NullString
	err := s.Scan(&rec.ID, &rec.Name, &rec.Text, &rec.CookingTime, &rec.Image, &rec.CreatedAt,
		&rec.Author.ID, &rec.Author.Email, &rec.Author.Username, &rec.Author.FirstName, &rec.Author.LastName, &avatar,
		&rec.IsFavorited, &rec.IsInShoppingCart, &rec.Author.IsSubscribed)
	if err != nil {
		return nil, err
	}
	rec.Author.Avatar = avatar.String
	return &rec, nil
}

// GetRecipe returns the recipe as seen by viewerID (0 for anonymous).
func (r *Repository) GetRecipe(ctx context.Context, recipeID, viewerID int64) (*models.Recipe, error) {
	return getRecipe(ctx, r.db, recipeID, viewerID)
}

func getRecipe(ctx context.Context, q querier, recipeID, viewerID int64) (*models.Recipe, error) {
	rec, err := scanRecipe(q.QueryRowContext(ctx, recipeColumns+` WHERE r.id = ?`,
		viewerID, viewerID, viewerID, recipeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recipe_not_found", "recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	if err := loadRecipeChildren(ctx, q, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecipes returns one page of recipes, newest first, and the total
// number of recipes matching the filter.
func (r *Repository) ListRecipes(ctx context.Context, f models.RecipeFilter, viewerID int64) ([]models.Recipe, int, error) {
	var conditions []string
	var args []interface{}

	if f.AuthorID != nil {
		conditions = append(conditions, "r.author_id = ?")
		args = append(args, *f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		conditions = append(conditions, `r.id IN (
			SELECT rt.recipe_id FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
			WHERE t.slug IN (`+database.Placeholders(len(f.TagSlugs))+`))`)
		for _, slug := range f.TagSlugs {
			args = append(args, slug)
		}
	}
	if viewerID != 0 && f.IsFavorited {
		conditions = append(conditions, "r.id IN (SELECT recipe_id FROM favorites WHERE user_id = ?)")
		args = append(args, viewerID)
	}
	if viewerID != 0 && f.IsInShoppingCart {
		conditions = append(conditions, "r.id IN (SELECT recipe_id FROM shopping_carts WHERE user_id = ?)")
		args = append(args, viewerID)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recipes: %w", err)
	}

	limit, offset := pageArgs(f.Limit, f.Offset)
	queryArgs := append([]interface{}{viewerID, viewerID, viewerID}, args...)
	queryArgs = append(queryArgs, limit, offset)
	rows, err := r.db.QueryContext(ctx,
		recipeColumns+where+` ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []models.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, err
		}
		recipes = append(recipes, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	// Load tags and ingredients for each recipe
	for i := range recipes {
		if err := loadRecipeChildren(ctx, r.db, &recipes[i]); err != nil {
			return nil, 0, err
		}
	}
	return recipes, total, nil
}

func loadRecipeChildren(ctx context.Context, q querier, rec *models.Recipe) error {
	tags, err := recipeTags(ctx, q, rec.ID)
	if err != nil {
		return err
	}
	lines, err := recipeLines(ctx, q, rec.ID)
	if err != nil {
		return err
	}
	rec.Tags = tags
	rec.Ingredients = lines
	return nil
}

func recipeTags(ctx context.Context, q querier, recipeID int64) ([]models.Tag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug FROM tags t
		JOIN recipe_tags rt ON t.id = rt.tag_id
		WHERE rt.recipe_id = ?
		ORDER BY t.name, t.id
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("load recipe tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func recipeLines(ctx context.Context, q querier, recipeID int64) ([]models.RecipeIngredient, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ri.id, i.id, i.name, i.measurement_unit, ri.amount
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ?
		ORDER BY ri.id
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("load recipe ingredients: %w", err)
	}
	defer rows.Close()

	lines := []models.RecipeIngredient{}
	for rows.Next() {
		var l models.RecipeIngredient
		if err := rows.Scan(&l.ID, &l.IngredientID, &l.Name, &l.MeasurementUnit, &l.Amount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// IsFavorited is false for an anonymous viewer and for storage errors.
func (r *Repository) IsFavorited(ctx context.Context, recipeID, viewerID int64) bool {
	return r.edgeExists(ctx, `SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = ? AND recipe_id = ?)`, viewerID, recipeID)
}

// IsInCart is false for an anonymous viewer and for storage errors.
func (r *Repository) IsInCart(ctx context.Context, recipeID, viewerID int64) bool {
	return r.edgeExists(ctx, `SELECT EXISTS(SELECT 1 FROM shopping_carts WHERE user_id = ? AND recipe_id = ?)`, viewerID, recipeID)
}

func (r *Repository) edgeExists(ctx context.Context, query string, viewerID, otherID int64) bool {
	if viewerID == 0 {
		return false
	}
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, viewerID, otherID).Scan(&ok); err != nil {
		r.log.Warn("edge existence check failed", "error", err)
		return false
	}
	return ok
}
