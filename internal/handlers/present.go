package handlers

import (
	"github.com/gera1311/foodgram/internal/media"
	"github.com/gera1311/foodgram/internal/models"
)

// Stored image keys are turned into public URLs on the way out.

func presentUser(store media.Store, u models.User) models.User {
	u.Avatar = store.URL(u.Avatar)
	return u
}

func presentUsers(store media.Store, users []models.User) []models.User {
	out := make([]models.User, len(users))
	for i, u := range users {
		out[i] = presentUser(store, u)
	}
	return out
}

func presentRecipe(store media.Store, r models.Recipe) models.Recipe {
	r.Image = store.URL(r.Image)
	r.Author = presentUser(store, r.Author)
	return r
}

func presentRecipes(store media.Store, recipes []models.Recipe) []models.Recipe {
	out := make([]models.Recipe, len(recipes))
	for i, r := range recipes {
		out[i] = presentRecipe(store, r)
	}
	return out
}

func presentCard(store media.Store, c models.RecipeCard) models.RecipeCard {
	c.Image = store.URL(c.Image)
	return c
}

func presentCards(store media.Store, cards []models.RecipeCard) []models.RecipeCard {
	out := make([]models.RecipeCard, len(cards))
	for i, c := range cards {
		out[i] = presentCard(store, c)
	}
	return out
}

func presentSubscription(store media.Store, s models.Subscription) models.Subscription {
	s.User = presentUser(store, s.User)
	s.Recipes = presentCards(store, s.Recipes)
	return s
}
