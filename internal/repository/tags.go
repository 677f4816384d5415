package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/models"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

func (r *Repository) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug FROM tags ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
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

func (r *Repository) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	var t models.Tag
	err := r.db.QueryRowContext(ctx, `SELECT id, name, slug FROM tags WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("tag_not_found", "tag not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load tag: %w", err)
	}
	return &t, nil
}

// CreateTag stores a tag; slugs are unique.
func (r *Repository) CreateTag(ctx context.Context, in models.TagInput) (*models.Tag, error) {
	t := models.Tag{Name: strings.TrimSpace(in.Name), Slug: strings.TrimSpace(in.Slug)}

	v := apperr.NewValidator()
	v.Check(t.Name != "", "name", "name_required", "tag name is required")
	v.Check(slugPattern.MatchString(t.Slug), "slug", "slug_invalid",
		"slug may contain only letters, digits, hyphens and underscores")
	if err := v.Err(); err != nil {
		return nil, err
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tags (name, slug) VALUES (?, ?) RETURNING id`, t.Name, t.Slug).Scan(&t.ID)
	if database.IsUniqueViolation(err) {
		return nil, apperr.Conflict("tag_exists", "a tag with this slug already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return &t, nil
}
