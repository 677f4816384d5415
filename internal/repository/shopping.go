package repository

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gera1311/foodgram/internal/models"
)

// ShoppingReport sums ingredient amounts over every recipe in the user's
// cart, merging lines that share a name and measurement unit. The recipe
// count lets callers tell an empty cart from one whose recipes carry no
// ingredients.
//
// Both reads go straight to the pool: a transaction would take the SQLite
// write lock.
func (r *Repository) ShoppingReport(ctx context.Context, userID int64) (report *models.ShoppingReport, err error) {
	ctx, span := startSpan(ctx, "ShoppingReport", attribute.Int64("user_id", userID))
	defer func() { endSpan(span, err) }()

	report = &models.ShoppingReport{Items: []models.ShoppingItem{}}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_carts WHERE user_id = ?`, userID).Scan(&report.RecipeCount); err != nil {
		return nil, fmt.Errorf("count cart: %w", err)
	}
	if report.RecipeCount == 0 {
		return report, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.name, i.measurement_unit, SUM(ri.amount)
		FROM shopping_carts sc
		JOIN recipe_ingredients ri ON ri.recipe_id = sc.recipe_id
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE sc.user_id = ?
		GROUP BY i.name, i.measurement_unit
		ORDER BY i.name, i.measurement_unit
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate cart: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.ShoppingItem
		if err := rows.Scan(&it.Name, &it.Unit, &it.Amount); err != nil {
			return nil, err
		}
		report.Items = append(report.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return report, nil
}
