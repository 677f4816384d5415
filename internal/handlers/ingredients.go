package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/repository"
)

type IngredientHandler struct {
	repo *repository.Repository
	log  *logger.Logger
}

func NewIngredientHandler(repo *repository.Repository, log *logger.Logger) *IngredientHandler {
	return &IngredientHandler{repo: repo, log: log}
}

// List filters by a case-insensitive name prefix (?name=).
func (h *IngredientHandler) List(c *gin.Context) {
	ingredients, err := h.repo.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *IngredientHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	ingredient, err := h.repo.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}
