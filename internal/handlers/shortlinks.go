package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/repository"
)

type ShortLinkHandler struct {
	repo *repository.Repository
	log  *logger.Logger
}

func NewShortLinkHandler(repo *repository.Repository, log *logger.Logger) *ShortLinkHandler {
	return &ShortLinkHandler{repo: repo, log: log}
}

// Redirect sends the client to the recipe page behind a short code.
func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	id, err := h.repo.ResolveShortLink(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%d/", id))
}
