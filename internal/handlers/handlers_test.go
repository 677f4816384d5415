package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/gera1311/foodgram/internal/auth"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/logger"
	"github.com/gera1311/foodgram/internal/media"
	"github.com/gera1311/foodgram/internal/models"
	"github.com/gera1311/foodgram/internal/repository"
)

type testServer struct {
	engine *gin.Engine
	repo   *repository.Repository
	db     *database.DB
	media  *countingStore
}

// countingStore records how many files were written through it.
type countingStore struct {
	media.Store
	saves atomic.Int32
}

func (s *countingStore) Save(ctx context.Context, dir, ext string, data []byte) (string, error) {
	s.saves.Add(1)
	return s.Store.Save(ctx, dir, ext, data)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	local, err := media.NewLocalStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("media store: %v", err)
	}
	store := &countingStore{Store: local}
	repo := repository.New(db, repository.WithBcryptCost(bcrypt.MinCost))
	engine := NewRouter(RouterConfig{
		Log:         logger.Nop(),
		Repo:        repo,
		Media:       store,
		Tokens:      auth.NewTokens("test-secret", time.Hour),
		CORSOrigins: []string{"http://localhost:3000"},
	})
	return &testServer{engine: engine, repo: repo, db: db, media: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

// login registers a user and returns its id and token.
func (s *testServer) login(t *testing.T, username string) (int64, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users", "", models.UserInput{
		Email: username + "@example.com", Username: username,
		FirstName: "First", LastName: "Last", Password: "s3cret-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &created)

	rec = s.do(t, http.MethodPost, "/api/auth/token/login", "", gin.H{
		"email": username + "@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body)
	}
	var tok struct {
		Token string `json:"auth_token"`
	}
	decode(t, rec, &tok)
	return created.ID, tok.Token
}

func (s *testServer) seedCatalog(t *testing.T) (tagID, ingredientID int64) {
	t.Helper()
	ctx := context.Background()
	tag, err := s.repo.CreateTag(ctx, models.TagInput{Name: "Lunch", Slug: "lunch"})
	if err != nil {
		t.Fatalf("seed tag: %v", err)
	}
	if _, err := s.repo.CreateIngredients(ctx, []models.IngredientInput{{Name: "Salt", MeasurementUnit: "g"}}); err != nil {
		t.Fatalf("seed ingredient: %v", err)
	}
	list, _ := s.repo.ListIngredients(ctx, "salt")
	return tag.ID, list[0].ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
}

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not really a png"))

func TestAnonymousReadsAndProtectedWrites(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/recipes", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list recipes: status %d", rec.Code)
	}
	var page Page
	decode(t, rec, &page)
	if page.Count != 0 || page.Next != nil || page.Previous != nil {
		t.Errorf("unexpected empty page: %+v", page)
	}

	rec = s.do(t, http.MethodPost, "/api/recipes", "", gin.H{"name": "x"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous create: expected 401, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/recipes", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Error("expected a request id header")
	}
}

func TestRecipeLifecycle(t *testing.T) {
	s := newTestServer(t)
	tagID, saltID := s.seedCatalog(t)
	_, chefToken := s.login(t, "chef")
	_, guestToken := s.login(t, "guest")

	rec := s.do(t, http.MethodPost, "/api/recipes", chefToken, gin.H{
		"name": "Soup", "text": "Boil.", "cooking_time": 0, "image": pngDataURI,
		"tags": []int64{tagID}, "ingredients": []gin.H{{"id": saltID, "amount": 5}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid create: expected 400, got %d %s", rec.Code, rec.Body)
	}
	var envelope ErrorEnvelope
	decode(t, rec, &envelope)
	if len(envelope.Error.Fields) != 1 || envelope.Error.Fields[0].Code != "cooking_time_invalid" {
		t.Errorf("unexpected error body: %+v", envelope)
	}

	rec = s.do(t, http.MethodPost, "/api/recipes", chefToken, gin.H{
		"name": "Soup", "text": "Boil.", "cooking_time": 15, "image": pngDataURI,
		"tags": []int64{tagID}, "ingredients": []gin.H{{"id": saltID, "amount": 5}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body)
	}
	var created models.Recipe
	decode(t, rec, &created)
	if !strings.HasPrefix(created.Image, "/media/recipes/images/") {
		t.Errorf("expected a media URL, got %q", created.Image)
	}
	if len(created.Ingredients) != 1 || created.Ingredients[0].Amount != 5 || created.Ingredients[0].Name != "Salt" {
		t.Errorf("unexpected ingredients: %+v", created.Ingredients)
	}

	path := "/api/recipes/" + itoa(created.ID)
	rec = s.do(t, http.MethodPatch, path, guestToken, gin.H{"name": "Mine"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign patch: expected 403, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPatch, path, chefToken, gin.H{"name": "Better soup", "ingredients": []gin.H{{"id": saltID, "amount": 7}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d %s", rec.Code, rec.Body)
	}
	var updated models.Recipe
	decode(t, rec, &updated)
	if updated.Name != "Better soup" || updated.Ingredients[0].Amount != 7 || updated.Image != created.Image {
		t.Errorf("unexpected patched recipe: %+v", updated)
	}

	rec = s.do(t, http.MethodPost, path+"/favorite", guestToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("favorite: expected 201, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, path+"/favorite", guestToken, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate favorite: expected 409, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, path, guestToken, nil)
	var seen models.Recipe
	decode(t, rec, &seen)
	if !seen.IsFavorited || seen.IsInShoppingCart {
		t.Errorf("unexpected flags for guest: fav=%v cart=%v", seen.IsFavorited, seen.IsInShoppingCart)
	}

	rec = s.do(t, http.MethodDelete, path, guestToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign delete: expected 403, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodDelete, path, chefToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, path, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted recipe: expected 404, got %d", rec.Code)
	}
}

func TestShoppingCartDownload(t *testing.T) {
	s := newTestServer(t)
	tagID, saltID := s.seedCatalog(t)
	_, token := s.login(t, "chef")

	rec := s.do(t, http.MethodGet, "/api/recipes/download_shopping_cart", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty cart: expected 400, got %d", rec.Code)
	}
	var envelope ErrorEnvelope
	decode(t, rec, &envelope)
	if len(envelope.Error.Fields) != 1 || envelope.Error.Fields[0].Code != "cart_empty" {
		t.Errorf("unexpected empty cart body: %+v", envelope)
	}

	rec = s.do(t, http.MethodPost, "/api/recipes", token, gin.H{
		"name": "Soup", "text": "Boil.", "cooking_time": 15, "image": pngDataURI,
		"tags": []int64{tagID}, "ingredients": []gin.H{{"id": saltID, "amount": 5}},
	})
	var created models.Recipe
	decode(t, rec, &created)

	rec = s.do(t, http.MethodPost, "/api/recipes/"+itoa(created.ID)+"/shopping_cart", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add to cart: expected 201, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/recipes/download_shopping_cart?format=csv", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Salt,g,5") {
		t.Errorf("unexpected csv body: %s", rec.Body)
	}

	rec = s.do(t, http.MethodGet, "/api/recipes/download_shopping_cart?format=pdf", token, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("pdf download: got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "shopping_list.pdf") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	rec = s.do(t, http.MethodGet, "/api/recipes/download_shopping_cart?format=doc", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format: expected 400, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodDelete, "/api/recipes/"+itoa(created.ID)+"/shopping_cart", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("remove from cart: expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodDelete, "/api/recipes/"+itoa(created.ID)+"/shopping_cart", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("remove missing cart entry: expected 404, got %d", rec.Code)
	}
}

func TestShortLinkRedirect(t *testing.T) {
	s := newTestServer(t)
	tagID, saltID := s.seedCatalog(t)
	_, token := s.login(t, "chef")

	rec := s.do(t, http.MethodPost, "/api/recipes", token, gin.H{
		"name": "Soup", "text": "Boil.", "cooking_time": 15, "image": pngDataURI,
		"tags": []int64{tagID}, "ingredients": []gin.H{{"id": saltID, "amount": 5}},
	})
	var created models.Recipe
	decode(t, rec, &created)

	rec = s.do(t, http.MethodGet, "/api/recipes/"+itoa(created.ID)+"/get-link", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get-link: expected 200, got %d", rec.Code)
	}
	var link map[string]string
	decode(t, rec, &link)
	short := link["short-link"]
	i := strings.Index(short, "/s/")
	if i < 0 {
		t.Fatalf("unexpected short link %q", short)
	}

	rec = s.do(t, http.MethodGet, short[i:], "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("redirect: expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/recipes/"+itoa(created.ID)+"/" {
		t.Errorf("unexpected location %q", loc)
	}

	rec = s.do(t, http.MethodGet, "/s/zzzzzz", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown code: expected 404, got %d", rec.Code)
	}
}

func TestSubscriptions(t *testing.T) {
	s := newTestServer(t)
	chefID, _ := s.login(t, "chef")
	fanID, fanToken := s.login(t, "fan")

	rec := s.do(t, http.MethodPost, "/api/users/"+itoa(fanID)+"/subscribe", fanToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self subscribe: expected 400, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/users/"+itoa(chefID)+"/subscribe", fanToken, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe: expected 201, got %d %s", rec.Code, rec.Body)
	}
	var sub models.Subscription
	decode(t, rec, &sub)
	if sub.ID != chefID || !sub.IsSubscribed || sub.RecipesCount != 0 {
		t.Errorf("unexpected subscription: %+v", sub)
	}

	rec = s.do(t, http.MethodGet, "/api/users/subscriptions", fanToken, nil)
	var page struct {
		Count   int                   `json:"count"`
		Results []models.Subscription `json:"results"`
	}
	decode(t, rec, &page)
	if page.Count != 1 || len(page.Results) != 1 {
		t.Errorf("unexpected subscriptions page: %+v", page)
	}

	rec = s.do(t, http.MethodDelete, "/api/users/"+itoa(chefID)+"/subscribe", fanToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("unsubscribe: expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodDelete, "/api/users/"+itoa(chefID)+"/subscribe", fanToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing subscription: expected 404, got %d", rec.Code)
	}
}

func TestUsersMeAndAvatar(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "chef")

	rec := s.do(t, http.MethodGet, "/api/users/me", token, nil)
	var me models.User
	decode(t, rec, &me)
	if me.Username != "chef" {
		t.Errorf("unexpected me: %+v", me)
	}

	rec = s.do(t, http.MethodPut, "/api/users/me/avatar", token, gin.H{"avatar": pngDataURI})
	if rec.Code != http.StatusOK {
		t.Fatalf("set avatar: expected 200, got %d %s", rec.Code, rec.Body)
	}
	var avatar map[string]string
	decode(t, rec, &avatar)
	if !strings.HasPrefix(avatar["avatar"], "/media/users/") {
		t.Errorf("unexpected avatar url %q", avatar["avatar"])
	}

	rec = s.do(t, http.MethodDelete, "/api/users/me/avatar", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete avatar: expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodDelete, "/api/users/me/avatar", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing avatar: expected 404, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/users/set_password", token, gin.H{
		"current_password": "wrong", "new_password": "another-pass",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong current password: expected 400, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/users/set_password", token, gin.H{
		"current_password": "s3cret-pass", "new_password": "another-pass",
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("set password: expected 204, got %d", rec.Code)
	}
}

func TestPageLinks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/recipes?page=2&limit=2&tags=lunch", nil)

	p := parsePage(c)
	if p.offset() != 2 {
		t.Fatalf("expected offset 2, got %d", p.offset())
	}
	page := newPage(c, p, 5, []int{})
	if page.Next == nil || !strings.Contains(*page.Next, "page=3") || !strings.Contains(*page.Next, "tags=lunch") {
		t.Errorf("unexpected next link: %v", page.Next)
	}
	if page.Previous == nil || !strings.Contains(*page.Previous, "page=1") {
		t.Errorf("unexpected previous link: %v", page.Previous)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestForeignImageUpdateStoresNothing(t *testing.T) {
	s := newTestServer(t)
	tagID, saltID := s.seedCatalog(t)
	_, chefToken := s.login(t, "chef")
	_, guestToken := s.login(t, "guest")

	rec := s.do(t, http.MethodPost, "/api/recipes", chefToken, gin.H{
		"name": "Soup", "text": "Boil.", "cooking_time": 15, "image": pngDataURI,
		"tags": []int64{tagID}, "ingredients": []gin.H{{"id": saltID, "amount": 5}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body)
	}
	var created models.Recipe
	decode(t, rec, &created)
	before := s.media.saves.Load()

	rec = s.do(t, http.MethodPatch, "/api/recipes/"+itoa(created.ID), guestToken, gin.H{"image": pngDataURI})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign image patch: expected 403, got %d %s", rec.Code, rec.Body)
	}
	if got := s.media.saves.Load(); got != before {
		t.Errorf("foreign patch wrote %d files", got-before)
	}

	rec = s.do(t, http.MethodPatch, "/api/recipes/"+itoa(created.ID), chefToken, gin.H{"image": pngDataURI})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner image patch: expected 200, got %d %s", rec.Code, rec.Body)
	}
	if got := s.media.saves.Load(); got != before+1 {
		t.Errorf("expected one new file, got %d", got-before)
	}
}
