package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/auth"
	"github.com/gera1311/foodgram/internal/logger"
)

const (
	headerRequestID = "X-Request-Id"
	ctxRequestID    = "request_id"
)

func AttachRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(ctxRequestID, reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ctxRequestID),
		}
		if id, ok := auth.UserID(c.Request.Context()); ok {
			fields = append(fields, "user_id", id)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", headerRequestID},
		ExposeHeaders:    []string{headerRequestID, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// Authenticate attaches the caller's identity when a bearer token is
// sent. Requests without a token pass through anonymously; a bad token
// is rejected.
func Authenticate(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		id, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorEnvelope{
				Error: APIError{Message: "missing or invalid token", Code: "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), id))
		c.Next()
	}
}

func RequireAuth(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.UserID(c.Request.Context()); !ok {
			respondError(c, log, apperr.Unauthorized("unauthorized", "authentication credentials were not provided"))
			return
		}
		c.Next()
	}
}

// bearerToken accepts both "Bearer" and the "Token" scheme used by
// existing frontends.
func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	for _, scheme := range []string{"Bearer ", "Token "} {
		if len(h) > len(scheme) && strings.EqualFold(h[:len(scheme)], scheme) {
			return strings.TrimSpace(h[len(scheme):])
		}
	}
	return ""
}
