package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/repository"
)

type TagHandler struct {
	repo *repository.Repository
	log  *logger.Logger
}

func NewTagHandler(repo *repository.Repository, log *logger.Logger) *TagHandler {
	return &TagHandler{repo: repo, log: log}
}

func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.repo.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	tag, err := h.repo.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}
