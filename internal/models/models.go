package models

import "time"

type Ingredient struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Avatar       string    `json:"avatar,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	IsSubscribed bool      `json:"is_subscribed"` // computed field
}

// RecipeIngredient is one line item of a recipe. ID is the row identity
// of the association and is not exposed; the JSON id is the ingredient's.
type RecipeIngredient struct {
	ID              int64  `json:"-"`
	IngredientID    int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type Recipe struct {
	ID               int64              `json:"id"`
	Tags             []Tag              `json:"tags"`
	Author           User               `json:"author"`
	Ingredients      []RecipeIngredient `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`        // computed field
	IsInShoppingCart bool               `json:"is_in_shopping_cart"` // computed field
	Name             string             `json:"name"`
	Image            string             `json:"image"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
	CreatedAt        time.Time          `json:"created_at"`
}

// RecipeCard is the short form used by favorites, carts and subscriptions.
type RecipeCard struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type Subscription struct {
	User
	Recipes      []RecipeCard `json:"recipes"`
	RecipesCount int          `json:"recipes_count"`
}

type ShortLink struct {
	Code      string
	RecipeID  int64
	CreatedAt time.Time
}

// Inputs

type IngredientAmount struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

type RecipeInput struct {
	Name        string             `json:"name"`
	Text        string             `json:"text"`
	CookingTime int                `json:"cooking_time"`
	Image       string             `json:"image"`
	Tags        []int64            `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
}

// RecipePatch carries only the fields being changed. A nil pointer or a
// nil slice means "absent"; a non-nil empty slice is present and empty.
type RecipePatch struct {
	Name        *string
	Text        *string
	CookingTime *int
	Image       *string
	Tags        []int64
	Ingredients []IngredientAmount
}

type RecipeFilter struct {
	AuthorID         *int64
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
	Limit            int
	Offset           int
}

type IngredientInput struct {
	Name            string `json:"name" yaml:"name"`
	MeasurementUnit string `json:"measurement_unit" yaml:"measurement_unit"`
}

type TagInput struct {
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug" yaml:"slug"`
}

type UserInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Shopping list

type ShoppingItem struct {
	Name   string `json:"name"`
	Unit   string `json:"measurement_unit"`
	Amount int64  `json:"amount"`
}

type ShoppingReport struct {
	RecipeCount int            `json:"recipe_count"`
	Items       []ShoppingItem `json:"items"`
}

// Empty reports whether the cart held no recipes at all, as opposed to
// recipes that contributed no ingredients.
func (r *ShoppingReport) Empty() bool {
	return r == nil || r.RecipeCount == 0
}
