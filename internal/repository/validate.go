package repository

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/models"
)

const maxNameLength = 200

func checkName(v *apperr.Validator, name string) {
	name = strings.TrimSpace(name)
	v.Check(name != "", "name", "name_required", "name is required")
	v.Check(utf8.RuneCountInString(name) <= maxNameLength, "name", "name_too_long",
		fmt.Sprintf("name must be at most %d characters", maxNameLength))
}

func checkText(v *apperr.Validator, text string) {
	v.Check(strings.TrimSpace(text) != "", "text", "text_required", "text is required")
}

func checkCookingTime(v *apperr.Validator, minutes int) {
	v.Check(minutes >= 1, "cooking_time", "cooking_time_invalid", "cooking time must be at least 1 minute")
}

func checkImage(v *apperr.Validator, image string) {
	v.Check(strings.TrimSpace(image) != "", "image", "image_required", "image is required")
}

func checkTagIDs(v *apperr.Validator, ids []int64) {
	if len(ids) == 0 {
		v.Add("tags", "tags_empty", "at least one tag is required")
		return
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			v.Add("tags", "tags_duplicate", "tags must not repeat")
			return
		}
		seen[id] = true
	}
}

func checkIngredientItems(v *apperr.Validator, items []models.IngredientAmount) {
	if len(items) == 0 {
		v.Add("ingredients", "ingredients_empty", "at least one ingredient is required")
		return
	}
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			v.Add("ingredients", "ingredients_duplicate", "ingredients must not repeat")
			return
		}
		seen[it.ID] = true
	}
	for _, it := range items {
		if it.Amount <= 0 {
			v.Add("ingredients", "amount_invalid", "ingredient amount must be greater than 0")
			return
		}
	}
}

// checkReferences verifies that every referenced tag and ingredient
// exists. Fields that already failed shape validation are skipped.
func checkReferences(ctx context.Context, q querier, v *apperr.Validator, tagIDs []int64, items []models.IngredientAmount) error {
	if tagIDs != nil && !v.Failed("tags") {
		ok, err := allExist(ctx, q, "tags", tagIDs)
		if err != nil {
			return err
		}
		v.Check(ok, "tags", "tags_unknown", "one or more tags do not exist")
	}
	if items != nil && !v.Failed("ingredients") {
		ids := make([]int64, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		ok, err := allExist(ctx, q, "ingredients", ids)
		if err != nil {
			return err
		}
		v.Check(ok, "ingredients", "ingredients_unknown", "one or more ingredients do not exist")
	}
	return nil
}

// allExist expects ids to be distinct.
func allExist(ctx context.Context, q querier, table string, ids []int64) (bool, error) {
	var n int
	query := `SELECT COUNT(*) FROM ` + table + ` WHERE id IN (` + database.Placeholders(len(ids)) + `)`
	if err := q.QueryRowContext(ctx, query, int64Args(ids)...).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return n == len(ids), nil
}

func validateRecipeInput(in models.RecipeInput) *apperr.Validator {
	v := apperr.NewValidator()
	checkName(v, in.Name)
	checkText(v, in.Text)
	checkCookingTime(v, in.CookingTime)
	checkImage(v, in.Image)
	checkTagIDs(v, in.Tags)
	checkIngredientItems(v, in.Ingredients)
	return v
}

func validateRecipePatch(p models.RecipePatch) *apperr.Validator {
	v := apperr.NewValidator()
	if p.Name != nil {
		checkName(v, *p.Name)
	}
	if p.Text != nil {
		checkText(v, *p.Text)
	}
	if p.CookingTime != nil {
		checkCookingTime(v, *p.CookingTime)
	}
	if p.Image != nil {
		checkImage(v, *p.Image)
	}
	if p.Tags != nil {
		checkTagIDs(v, p.Tags)
	}
	if p.Ingredients != nil {
		checkIngredientItems(v, p.Ingredients)
	}
	return v
}
