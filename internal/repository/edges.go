package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/models"
)

// edge describes one user-owned relation table keyed by (user_id, column).
type edge struct {
	table      string
	column     string
	existsCode string
	missCode   string
	targetCode string
}

var (
	favoriteEdge = edge{table: "favorites", column: "recipe_id",
		existsCode: "favorite_exists", missCode: "favorite_missing", targetCode: "recipe_not_found"}
	cartEdge = edge{table: "shopping_carts", column: "recipe_id",
		existsCode: "cart_exists", missCode: "cart_missing", targetCode: "recipe_not_found"}
	followEdge = edge{table: "follows", column: "author_id",
		existsCode: "follow_exists", missCode: "follow_missing", targetCode: "user_not_found"}
)

func (r *Repository) addEdge(ctx context.Context, e edge, userID, targetID int64) (err error) {
	ctx, span := startSpan(ctx, "add."+e.table,
		attribute.Int64("user_id", userID), attribute.Int64("target_id", targetID))
	defer func() { endSpan(span, err) }()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO `+e.table+` (user_id, `+e.column+`) VALUES (?, ?)`, userID, targetID)
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return apperr.Conflict(e.existsCode, "already exists")
	case database.IsForeignKeyViolation(err):
		return apperr.NotFound(e.targetCode, "target does not exist")
	default:
		return fmt.Errorf("insert %s: %w", e.table, err)
	}
}

func (r *Repository) removeEdge(ctx context.Context, e edge, userID, targetID int64) (err error) {
	ctx, span := startSpan(ctx, "remove."+e.table,
		attribute.Int64("user_id", userID), attribute.Int64("target_id", targetID))
	defer func() { endSpan(span, err) }()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM `+e.table+` WHERE user_id = ? AND `+e.column+` = ?`, userID, targetID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.table, err)
	}
	if n == 0 {
		return apperr.NotFound(e.missCode, "relation does not exist")
	}
	return nil
}

// AddFavorite marks the recipe as a favorite of the user and returns its card.
func (r *Repository) AddFavorite(ctx context.Context, userID, recipeID int64) (*models.RecipeCard, error) {
	if err := r.addEdge(ctx, favoriteEdge, userID, recipeID); err != nil {
		return nil, err
	}
	return r.recipeCard(ctx, recipeID)
}

func (r *Repository) RemoveFavorite(ctx context.Context, userID, recipeID int64) error {
	return r.removeEdge(ctx, favoriteEdge, userID, recipeID)
}

// AddToCart puts the recipe in the user's shopping cart and returns its card.
func (r *Repository) AddToCart(ctx context.Context, userID, recipeID int64) (*models.RecipeCard, error) {
	if err := r.addEdge(ctx, cartEdge, userID, recipeID); err != nil {
		return nil, err
	}
	return r.recipeCard(ctx, recipeID)
}

func (r *Repository) RemoveFromCart(ctx context.Context, userID, recipeID int64) error {
	return r.removeEdge(ctx, cartEdge, userID, recipeID)
}

// Follow subscribes userID to authorID. Following yourself is rejected
// before any storage access.
func (r *Repository) Follow(ctx context.Context, userID, authorID int64, recipesLimit int) (*models.Subscription, error) {
	if userID == authorID {
		return nil, apperr.Validation("author", "follow_self", "you cannot follow yourself")
	}
	if err := r.addEdge(ctx, followEdge, userID, authorID); err != nil {
		return nil, err
	}
	u, err := r.GetUser(ctx, authorID, userID)
	if err != nil {
		return nil, err
	}
	return r.subscription(ctx, *u, recipesLimit)
}

func (r *Repository) Unfollow(ctx context.Context, userID, authorID int64) error {
	return r.removeEdge(ctx, followEdge, userID, authorID)
}

func (r *Repository) ListFavorites(ctx context.Context, userID int64) ([]models.RecipeCard, error) {
	return r.listCards(ctx, `
		SELECT r.id, r.name, r.image, r.cooking_time FROM recipes r
		JOIN favorites f ON f.recipe_id = r.id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC, r.id DESC
	`, userID)
}

func (r *Repository) ListCart(ctx context.Context, userID int64) ([]models.RecipeCard, error) {
	return r.listCards(ctx, `
		SELECT r.id, r.name, r.image, r.cooking_time FROM recipes r
		JOIN shopping_carts sc ON sc.recipe_id = r.id
		WHERE sc.user_id = ?
		ORDER BY sc.created_at DESC, r.id DESC
	`, userID)
}

// Subscriptions lists the authors userID follows together with up to
// recipesLimit of their latest recipes (all when recipesLimit <= 0).
func (r *Repository) Subscriptions(ctx context.Context, userID int64, recipesLimit, limit, offset int) ([]models.Subscription, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	limit, offset = pageArgs(limit, offset)
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.avatar
		FROM users u
		JOIN follows fo ON fo.author_id = u.id
		WHERE fo.user_id = ?
		ORDER BY u.username, u.id
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	var authors []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		u.IsSubscribed = true
		authors = append(authors, *u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	subs := make([]models.Subscription, 0, len(authors))
	for _, u := range authors {
		s, err := r.subscription(ctx, u, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, *s)
	}
	return subs, total, nil
}

func (r *Repository) subscription(ctx context.Context, author models.User, recipesLimit int) (*models.Subscription, error) {
	s := &models.Subscription{User: author}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes WHERE author_id = ?`, author.ID).Scan(&s.RecipesCount); err != nil {
		return nil, fmt.Errorf("count author recipes: %w", err)
	}

	query := `SELECT id, name, image, cooking_time FROM recipes WHERE author_id = ? ORDER BY created_at DESC, id DESC`
	args := []interface{}{author.ID}
	if recipesLimit > 0 {
		query += ` LIMIT ?`
		args = append(args, recipesLimit)
	}
	cards, err := r.listCards(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	s.Recipes = cards
	return s, nil
}

func (r *Repository) recipeCard(ctx context.Context, recipeID int64) (*models.RecipeCard, error) {
	var c models.RecipeCard
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, image, cooking_time FROM recipes WHERE id = ?`, recipeID).
		Scan(&c.ID, &c.Name, &c.Image, &c.CookingTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recipe_not_found", "recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load recipe card: %w", err)
	}
	return &c, nil
}

func (r *Repository) listCards(ctx context.Context, query string, args ...interface{}) ([]models.RecipeCard, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipe cards: %w", err)
	}
	defer rows.Close()

	cards := []models.RecipeCard{}
	for rows.Next() {
		var c models.RecipeCard
		if err := rows.Scan(&c.ID, &c.Name, &c.Image, &c.CookingTime); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
