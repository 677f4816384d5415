package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/models"
)

// CreateRecipe validates the aggregate and persists the recipe, its tag
// set and its ingredient lines in one transaction.
func (r *Repository) CreateRecipe(ctx context.Context, authorID int64, in models.RecipeInput) (recipe *models.Recipe, err error) {
	ctx, span := startSpan(ctx, "CreateRecipe", attribute.Int64("author_id", authorID))
	defer func() { endSpan(span, err) }()

	v := validateRecipeInput(in)

	err = r.withTx(ctx, func(tx *database.Tx) error {
		if err := checkReferences(ctx, tx, v, in.Tags, in.Ingredients); err != nil {
			return err
		}
		if err := v.Err(); err != nil {
			return err
		}

		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO recipes (author_id, name, text, cooking_time, image)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`, authorID, strings.TrimSpace(in.Name), in.Text, in.CookingTime, in.Image).Scan(&id)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return apperr.NotFound("author_not_found", "author does not exist")
			}
			return fmt.Errorf("insert recipe: %w", err)
		}

		if err := setRecipeTags(ctx, tx, id, in.Tags); err != nil {
			return err
		}
		for _, it := range in.Ingredients {
			if err := insertRecipeIngredient(ctx, tx, id, it); err != nil {
				return err
			}
		}

		recipe, err = getRecipe(ctx, tx, id, authorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("recipe created", "recipe_id", recipe.ID, "author_id", authorID)
	return recipe, nil
}

// UpdateRecipe applies a partial update. Tags are replaced as a set;
// ingredient lines are reconciled so unchanged ingredients keep their row.
func (r *Repository) UpdateRecipe(ctx context.Context, recipeID, authorID int64, p models.RecipePatch) (recipe *models.Recipe, err error) {
	ctx, span := startSpan(ctx, "UpdateRecipe",
		attribute.Int64("recipe_id", recipeID), attribute.Int64("author_id", authorID))
	defer func() { endSpan(span, err) }()

	v := validateRecipePatch(p)

	err = r.withTx(ctx, func(tx *database.Tx) error {
		if err := assertOwner(ctx, tx, recipeID, authorID); err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, v, p.Tags, p.Ingredients); err != nil {
			return err
		}
		if err := v.Err(); err != nil {
			return err
		}

		if err := updateRecipeScalars(ctx, tx, recipeID, p); err != nil {
			return err
		}
		if p.Tags != nil {
			if err := setRecipeTags(ctx, tx, recipeID, p.Tags); err != nil {
				return err
			}
		}
		if p.Ingredients != nil {
			if err := reconcileIngredients(ctx, tx, recipeID, p.Ingredients); err != nil {
				return err
			}
		}

		recipe, err = getRecipe(ctx, tx, recipeID, authorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("recipe updated", "recipe_id", recipeID)
	return recipe, nil
}

// DeleteRecipe removes the recipe and, by cascade, its lines, tag links,
// edges and short links. It returns the image reference of the removed
// recipe.
func (r *Repository) DeleteRecipe(ctx context.Context, recipeID, authorID int64) (image string, err error) {
	ctx, span := startSpan(ctx, "DeleteRecipe",
		attribute.Int64("recipe_id", recipeID), attribute.Int64("author_id", authorID))
	defer func() { endSpan(span, err) }()

	err = r.withTx(ctx, func(tx *database.Tx) error {
		if err := assertOwner(ctx, tx, recipeID, authorID); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT image FROM recipes WHERE id = ?`, recipeID).Scan(&image); err != nil {
			return fmt.Errorf("load recipe image: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, recipeID); err != nil {
			return fmt.Errorf("delete recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	r.log.Debug("recipe deleted", "recipe_id", recipeID)
	return image, nil
}

func assertOwner(ctx context.Context, q querier, recipeID, authorID int64) error {
	var owner int64
	err := q.QueryRowContext(ctx, `SELECT author_id FROM recipes WHERE id = ?`, recipeID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("recipe_not_found", "recipe not found")
	}
	if err != nil {
		return fmt.Errorf("load recipe owner: %w", err)
	}
	if owner != authorID {
		return apperr.Permission("not_owner", "only the author can change this recipe")
	}
	return nil
}

func updateRecipeScalars(ctx context.Context, tx *database.Tx, recipeID int64, p models.RecipePatch) error {
	var sets []string
	var args []interface{}
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, strings.TrimSpace(*p.Name))
	}
	if p.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *p.Text)
	}
	if p.CookingTime != nil {
		sets = append(sets, "cooking_time = ?")
		args = append(args, *p.CookingTime)
	}
	if p.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, *p.Image)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, recipeID)
	if _, err := tx.ExecContext(ctx, `UPDATE recipes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	return nil
}

// setRecipeTags replaces the tag set: links absent from tagIDs are removed.
func setRecipeTags(ctx context.Context, tx *database.Tx, recipeID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, recipeID); err != nil {
		return fmt.Errorf("clear recipe tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)`, recipeID, tagID); err != nil {
			return fmt.Errorf("insert recipe tag: %w", err)
		}
	}
	return nil
}

func insertRecipeIngredient(ctx context.Context, tx *database.Tx, recipeID int64, it models.IngredientAmount) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount) VALUES (?, ?, ?)`,
		recipeID, it.ID, it.Amount)
	if err != nil {
		return fmt.Errorf("insert recipe ingredient: %w", err)
	}
	return nil
}

type lineRow struct {
	ID           int64
	IngredientID int64
	Amount       int
}

type linePlan struct {
	Update []lineRow // ID is the existing row, Amount the new amount
	Insert []models.IngredientAmount
	Delete []int64 // row ids
}

// planLines diffs the stored lines of a recipe against the incoming set.
// Incoming ingredient ids are distinct.
func planLines(existing []lineRow, incoming []models.IngredientAmount) linePlan {
	var plan linePlan
	byIngredient := make(map[int64]lineRow, len(existing))
	for _, row := range existing {
		byIngredient[row.IngredientID] = row
	}
	keep := make(map[int64]bool, len(incoming))
	for _, it := range incoming {
		keep[it.ID] = true
		row, ok := byIngredient[it.ID]
		switch {
		case !ok:
			plan.Insert = append(plan.Insert, it)
		case row.Amount != it.Amount:
			plan.Update = append(plan.Update, lineRow{ID: row.ID, IngredientID: it.ID, Amount: it.Amount})
		}
	}
	for _, row := range existing {
		if !keep[row.IngredientID] {
			plan.Delete = append(plan.Delete, row.ID)
		}
	}
	return plan
}

func reconcileIngredients(ctx context.Context, tx *database.Tx, recipeID int64, incoming []models.IngredientAmount) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, ingredient_id, amount FROM recipe_ingredients WHERE recipe_id = ?`, recipeID)
	if err != nil {
		return fmt.Errorf("load recipe ingredients: %w", err)
	}
	var existing []lineRow
	for rows.Next() {
		var row lineRow
		if err := rows.Scan(&row.ID, &row.IngredientID, &row.Amount); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	plan := planLines(existing, incoming)
	for _, id := range plan.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete recipe ingredient: %w", err)
		}
	}
	for _, row := range plan.Update {
		if _, err := tx.ExecContext(ctx, `UPDATE recipe_ingredients SET amount = ? WHERE id = ?`, row.Amount, row.ID); err != nil {
			return fmt.Errorf("update recipe ingredient: %w", err)
		}
	}
	for _, it := range plan.Insert {
		if err := insertRecipeIngredient(ctx, tx, recipeID, it); err != nil {
			return err
		}
	}
	return nil
}
