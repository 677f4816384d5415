package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/media"
	"github.com/gera1311/foodgram/internal/models"
	"github.com/gera1311/foodgram/internal/report"
	"github.com/gera1311/foodgram/internal/repository"
)

type RecipeHandler struct {
	repo  *repository.Repository
	media media.Store
	log   *logger.Logger
}

func NewRecipeHandler(repo *repository.Repository, store media.Store, log *logger.Logger) *RecipeHandler {
	return &RecipeHandler{repo: repo, media: store, log: log.With("handler", "recipes")}
}

type recipeRequest struct {
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	CookingTime int                       `json:"cooking_time"`
	Image       string                    `json:"image"`
	Tags        []int64                   `json:"tags"`
	Ingredients []models.IngredientAmount `json:"ingredients"`
}

// recipePatchRequest uses pointers so absent keys can be told apart
// from empty values.
type recipePatchRequest struct {
	Name        *string                    `json:"name"`
	Text        *string                    `json:"text"`
	CookingTime *int                       `json:"cooking_time"`
	Image       *string                    `json:"image"`
	Tags        *[]int64                   `json:"tags"`
	Ingredients *[]models.IngredientAmount `json:"ingredients"`
}

func (h *RecipeHandler) List(c *gin.Context) {
	p := parsePage(c)
	f := models.RecipeFilter{
		TagSlugs:         c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Limit:            p.limit,
		Offset:           p.offset(),
	}
	if author := queryInt(c, "author", 0); author > 0 {
		id := int64(author)
		f.AuthorID = &id
	}

	recipes, total, err := h.repo.ListRecipes(c.Request.Context(), f, viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, presentRecipes(h.media, recipes)))
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	rec, err := h.repo.GetRecipe(c.Request.Context(), id, viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, presentRecipe(h.media, *rec))
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badBody(err))
		return
	}
	ctx := c.Request.Context()

	in := models.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Tags:        req.Tags,
		Ingredients: req.Ingredients,
	}
	if req.Image != "" {
		key, err := h.saveImage(ctx, "image", req.Image)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		in.Image = key
	}

	rec, err := h.repo.CreateRecipe(ctx, viewerID(c), in)
	if err != nil {
		h.discard(ctx, in.Image)
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, presentRecipe(h.media, *rec))
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	var req recipePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badBody(err))
		return
	}
	ctx := c.Request.Context()
	uid := viewerID(c)

	p := models.RecipePatch{Name: req.Name, Text: req.Text, CookingTime: req.CookingTime}
	if req.Tags != nil {
		p.Tags = append([]int64{}, *req.Tags...)
	}
	if req.Ingredients != nil {
		p.Ingredients = append([]models.IngredientAmount{}, *req.Ingredients...)
	}

	var oldImage string
	if req.Image != nil {
		image := ""
		if *req.Image != "" {
			current, err := h.repo.GetRecipe(ctx, id, uid)
			if err != nil {
				respondError(c, h.log, err)
				return
			}
			if current.Author.ID != uid {
				respondError(c, h.log, apperr.Permission("not_owner", "only the author can change this recipe"))
				return
			}
			oldImage = current.Image
			if image, err = h.saveImage(ctx, "image", *req.Image); err != nil {
				respondError(c, h.log, err)
				return
			}
		}
		p.Image = &image
	}

	rec, err := h.repo.UpdateRecipe(ctx, id, uid, p)
	if err != nil {
		if p.Image != nil {
			h.discard(ctx, *p.Image)
		}
		respondError(c, h.log, err)
		return
	}
	if oldImage != "" && oldImage != rec.Image {
		h.discard(ctx, oldImage)
	}
	c.JSON(http.StatusOK, presentRecipe(h.media, *rec))
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	image, err := h.repo.DeleteRecipe(c.Request.Context(), id, viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.discard(c.Request.Context(), image)
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	code, err := h.repo.ShortLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"short-link": absoluteURL(c, "/s/"+code)})
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addEdge(c, h.repo.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeEdge(c, h.repo.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addEdge(c, h.repo.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeEdge(c, h.repo.RemoveFromCart)
}

func (h *RecipeHandler) addEdge(c *gin.Context, add func(ctx context.Context, userID, recipeID int64) (*models.RecipeCard, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	card, err := add(c.Request.Context(), viewerID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, presentCard(h.media, *card))
}

func (h *RecipeHandler) removeEdge(c *gin.Context, remove func(ctx context.Context, userID, recipeID int64) error) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := remove(c.Request.Context(), viewerID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	list, err := h.repo.ShoppingReport(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if list.Empty() {
		respondError(c, h.log, apperr.Validation("shopping_cart", "cart_empty", "shopping cart is empty"))
		return
	}
	doc, err := report.Render(c.Query("format"), list.Items)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (h *RecipeHandler) saveImage(ctx context.Context, field, dataURI string) (string, error) {
	data, ext, err := media.DecodeDataURI(field, dataURI)
	if err != nil {
		return "", err
	}
	key, err := h.media.Save(ctx, media.RecipeImages, ext, data)
	if err != nil {
		return "", fmt.Errorf("save recipe image: %w", err)
	}
	return key, nil
}

// discard removes a stored image; failures are logged, not returned.
func (h *RecipeHandler) discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := h.media.Delete(ctx, key); err != nil {
		h.log.Warn("failed to delete image (ignored)", "key", key, "error", err)
	}
}
