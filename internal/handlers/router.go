package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/gera1311/foodgram/internal/auth"
	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/media"
	"github.com/gera1311/foodgram/internal/repository"
)

type RouterConfig struct {
	Log         *logger.Logger
	Repo        *repository.Repository
	Media       media.Store
	Tokens      *auth.Tokens
	CORSOrigins []string
	ServiceName string

	// MediaPrefix and MediaDir serve locally stored images when both are set.
	MediaPrefix string
	MediaDir    string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(AttachRequestID())
	r.Use(RequestLogger(cfg.Log))
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(Authenticate(cfg.Tokens))

	if cfg.MediaDir != "" && strings.HasPrefix(cfg.MediaPrefix, "/") {
		r.Static(cfg.MediaPrefix, cfg.MediaDir)
	}

	recipes := NewRecipeHandler(cfg.Repo, cfg.Media, cfg.Log)
	users := NewUserHandler(cfg.Repo, cfg.Media, cfg.Tokens, cfg.Log)
	tags := NewTagHandler(cfg.Repo, cfg.Log)
	ingredients := NewIngredientHandler(cfg.Repo, cfg.Log)
	links := NewShortLinkHandler(cfg.Repo, cfg.Log)
	requireAuth := RequireAuth(cfg.Log)

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/s/:code", links.Redirect)

	api := r.Group("/api")
	{
		api.POST("/auth/token/login", users.Login)
		api.POST("/auth/token/logout", requireAuth, users.Logout)

		api.GET("/users", users.List)
		api.POST("/users", users.Create)
		api.GET("/users/me", requireAuth, users.Me)
		api.PUT("/users/me/avatar", requireAuth, users.SetAvatar)
		api.DELETE("/users/me/avatar", requireAuth, users.DeleteAvatar)
		api.POST("/users/set_password", requireAuth, users.SetPassword)
		api.GET("/users/subscriptions", requireAuth, users.Subscriptions)
		api.GET("/users/:id", users.Get)
		api.POST("/users/:id/subscribe", requireAuth, users.Subscribe)
		api.DELETE("/users/:id/subscribe", requireAuth, users.Unsubscribe)

		api.GET("/tags", tags.List)
		api.GET("/tags/:id", tags.Get)

		api.GET("/ingredients", ingredients.List)
		api.GET("/ingredients/:id", ingredients.Get)

		api.GET("/recipes", recipes.List)
		api.POST("/recipes", requireAuth, recipes.Create)
		api.GET("/recipes/download_shopping_cart", requireAuth, recipes.DownloadShoppingCart)
		api.GET("/recipes/:id", recipes.Get)
		api.PATCH("/recipes/:id", requireAuth, recipes.Update)
		api.DELETE("/recipes/:id", requireAuth, recipes.Delete)
		api.GET("/recipes/:id/get-link", recipes.GetLink)
		api.POST("/recipes/:id/favorite", requireAuth, recipes.AddFavorite)
		api.DELETE("/recipes/:id/favorite", requireAuth, recipes.RemoveFavorite)
		api.POST("/recipes/:id/shopping_cart", requireAuth, recipes.AddToCart)
		api.DELETE("/recipes/:id/shopping_cart", requireAuth, recipes.RemoveFromCart)
	}
	return r
}
