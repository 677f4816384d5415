package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/database"
)

const (
	shortCodeLength   = 6
	shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	shortCodeAttempts = 16
)

func randomShortCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(shortCodeAlphabet)))
	b := make([]byte, shortCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// ShortLink returns the recipe's short code, creating one on first use.
// Generated codes that collide with an existing one are regenerated.
func (r *Repository) ShortLink(ctx context.Context, recipeID int64) (string, error) {
	code, err := r.existingShortCode(ctx, recipeID)
	if err != nil || code != "" {
		return code, err
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM recipes WHERE id = ?)`, recipeID).Scan(&exists); err != nil {
		return "", fmt.Errorf("check recipe: %w", err)
	}
	if !exists {
		return "", apperr.NotFound("recipe_not_found", "recipe not found")
	}

	for attempt := 1; attempt <= shortCodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return "", fmt.Errorf("generate short code: %w", err)
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO short_links (short_code, recipe_id) VALUES (?, ?)`, code, recipeID)
		switch {
		case err == nil:
			return code, nil
		case database.IsForeignKeyViolation(err):
			return "", apperr.NotFound("recipe_not_found", "recipe not found")
		case database.IsUniqueViolation(err):
			// A concurrent request may have created the recipe's link.
			if existing, lookupErr := r.existingShortCode(ctx, recipeID); lookupErr != nil {
				return "", lookupErr
			} else if existing != "" {
				return existing, nil
			}
			r.log.Debug("short code collision", "attempt", attempt)
		default:
			return "", fmt.Errorf("insert short link: %w", err)
		}
	}
	return "", fmt.Errorf("short code generation exhausted after %d attempts", shortCodeAttempts)
}

func (r *Repository) existingShortCode(ctx context.Context, recipeID int64) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx,
		`SELECT short_code FROM short_links WHERE recipe_id = ? ORDER BY created_at LIMIT 1`, recipeID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load short link: %w", err)
	}
	return code, nil
}

// ResolveShortLink maps a code to its recipe id.
func (r *Repository) ResolveShortLink(ctx context.Context, code string) (int64, error) {
	var recipeID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT recipe_id FROM short_links WHERE short_code = ?`, code).Scan(&recipeID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("short_link_not_found", "short link not found")
	}
	if err != nil {
		return 0, fmt.Errorf("resolve short link: %w", err)
	}
	return recipeID, nil
}
