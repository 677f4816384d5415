package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gera1311/foodgram/internal/auth"
	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/media"
	"github.com/gera1311/foodgram/internal/models"
	"github.com/gera1311/foodgram/internal/repository"
)

type UserHandler struct {
	repo   *repository.Repository
	media  media.Store
	tokens *auth.Tokens
	log    *logger.Logger
}

func NewUserHandler(repo *repository.Repository, store media.Store, tokens *auth.Tokens, log *logger.Logger) *UserHandler {
	return &UserHandler{repo: repo, media: store, tokens: tokens, log: log.With("handler", "users")}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

type avatarRequest struct {
	Avatar string `json:"avatar"`
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badBody(err))
		return
	}
	u, err := h.repo.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}

// Logout exists for client compatibility; tokens are stateless and
// expire on their own.
func (h *UserHandler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req models.UserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badBody(err))
		return
	}
	u, err := h.repo.CreateUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	})
}

func (h *UserHandler) List(c *gin.Context) {
	p := parsePage(c)
	users, total, err := h.repo.ListUsers(c.Request.Context(), viewerID(c), p.limit, p.offset())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, presentUsers(h.media, users)))
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	u, err := h.repo.GetUser(c.Request.Context(), id, viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, presentUser(h.media, *u))
}

func (h *UserHandler) Me(c *gin.Context) {
	uid := viewerID(c)
	u, err := h.repo.GetUser(c.Request.Context(), uid, uid)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, presentUser(h.media, *u))
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badBody(err))
		return
	}
	if err := h.repo.SetPassword(c.Request.Context(), viewerID(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req avatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, badBody(err))
		return
	}
	ctx := c.Request.Context()
	data, ext, err := media.DecodeDataURI("avatar", req.Avatar)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	key, err := h.media.Save(ctx, media.Avatars, ext, data)
	if err != nil {
		respondError(c, h.log, fmt.Errorf("save avatar: %w", err))
		return
	}
	previous, err := h.repo.SetAvatar(ctx, viewerID(c), key)
	if err != nil {
		_ = h.media.Delete(ctx, key)
		respondError(c, h.log, err)
		return
	}
	if previous != "" {
		if err := h.media.Delete(ctx, previous); err != nil {
			h.log.Warn("failed to delete old avatar (ignored)", "key", previous, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"avatar": h.media.URL(key)})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	ctx := c.Request.Context()
	previous, err := h.repo.ClearAvatar(ctx, viewerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.media.Delete(ctx, previous); err != nil {
		h.log.Warn("failed to delete avatar (ignored)", "key", previous, "error", err)
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	p := parsePage(c)
	subs, total, err := h.repo.Subscriptions(c.Request.Context(), viewerID(c),
		queryInt(c, "recipes_limit", 0), p.limit, p.offset())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]models.Subscription, len(subs))
	for i, s := range subs {
		out[i] = presentSubscription(h.media, s)
	}
	c.JSON(http.StatusOK, newPage(c, p, total, out))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	sub, err := h.repo.Follow(c.Request.Context(), viewerID(c), id, queryInt(c, "recipes_limit", 0))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, presentSubscription(h.media, *sub))
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.repo.Unfollow(c.Request.Context(), viewerID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
