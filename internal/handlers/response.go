package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/auth"
	"github.com/gera1311/foodgram/internal/logger"
)

const (
	defaultPageLimit = 6
	maxPageLimit     = 100
)

type APIError struct {
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPermission:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Errors that are not domain
// errors are logged and reported without detail.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(ctxRequestID),
			"error", err,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorEnvelope{
			Error: APIError{Message: "internal server error", Code: "internal"},
		})
		return
	}
	c.AbortWithStatusJSON(statusFor(e.Kind), ErrorEnvelope{
		Error: APIError{Message: e.Message, Code: e.Code, Fields: e.Fields},
	})
}

func badBody(err error) error {
	return apperr.Validation("body", "malformed_body", "request body is not valid JSON: "+err.Error())
}

func viewerID(c *gin.Context) int64 {
	id, _ := auth.UserID(c.Request.Context())
	return id
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("not_found", "invalid id")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return n
}

func queryFlag(c *gin.Context, name string) bool {
	switch c.Query(name) {
	case "1", "true":
		return true
	}
	return false
}

// Page is the paginated list body: {count, next, previous, results}.
type Page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

type pageRequest struct {
	page  int
	limit int
}

func (p pageRequest) offset() int { return (p.page - 1) * p.limit }

func parsePage(c *gin.Context) pageRequest {
	p := pageRequest{page: queryInt(c, "page", 1), limit: queryInt(c, "limit", defaultPageLimit)}
	if p.page < 1 {
		p.page = 1
	}
	if p.limit < 1 {
		p.limit = defaultPageLimit
	}
	if p.limit > maxPageLimit {
		p.limit = maxPageLimit
	}
	return p
}

func newPage(c *gin.Context, p pageRequest, count int, results interface{}) Page {
	out := Page{Count: count, Results: results}
	if p.page*p.limit < count {
		out.Next = pageLink(c.Request.URL, p.page+1)
	}
	if p.page > 1 {
		out.Previous = pageLink(c.Request.URL, p.page-1)
	}
	return out
}

func pageLink(u *url.URL, page int) *string {
	next := *u
	q := next.Query()
	q.Set("page", strconv.Itoa(page))
	next.RawQuery = q.Encode()
	s := next.RequestURI()
	return &s
}

func absoluteURL(c *gin.Context, path string) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + path
}
