package repository

import (
	"context"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/models"
)

func setupTestRepo(t *testing.T, opts ...Option) (*Repository, *database.DB) {
	t.Helper()
	db, err := database.OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	return New(db, opts...), db
}

func seedUser(t *testing.T, repo *Repository, username string) *models.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), models.UserInput{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "First",
		LastName:  "Last",
		Password:  "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedTag(t *testing.T, repo *Repository, slug string) *models.Tag {
	t.Helper()
	tag, err := repo.CreateTag(context.Background(), models.TagInput{Name: slug, Slug: slug})
	if err != nil {
		t.Fatalf("seed tag %s: %v", slug, err)
	}
	return tag
}

func seedIngredient(t *testing.T, db *database.DB, name, unit string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowContext(context.Background(),
		`INSERT INTO ingredients (name, name_search, measurement_unit) VALUES (?, ?, ?) RETURNING id`,
		name, searchKey(name), unit).Scan(&id)
	if err != nil {
		t.Fatalf("seed ingredient %s: %v", name, err)
	}
	return id
}

func seedRecipe(t *testing.T, repo *Repository, authorID int64, name string, tagIDs []int64, items ...models.IngredientAmount) *models.Recipe {
	t.Helper()
	rec, err := repo.CreateRecipe(context.Background(), authorID, models.RecipeInput{
		Name:        name,
		Text:        "Mix and cook.",
		CookingTime: 10,
		Image:       "recipes/images/" + name + ".png",
		Tags:        tagIDs,
		Ingredients: items,
	})
	if err != nil {
		t.Fatalf("seed recipe %s: %v", name, err)
	}
	return rec
}

func countRows(t *testing.T, db *database.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRowContext(context.Background(), fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func fixedCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", fmt.Errorf("no more codes")
		}
		c := codes[i]
		i++
		return c, nil
	}
}
