package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/memstore"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/services"
	"github.com/myscheme/schemeapi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	auth   *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidation()

	store, err := memstore.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := utils.NewTokenIssuer("test-access", "test-refresh", time.Minute, time.Hour)
	auth := services.NewAuthService(store, tokens, logger)

	r := gin.New()
	RegisterRoutes(r, Handlers{
		Schemes:    services.NewSchemeService(store, services.SchemeServiceOptions{Limits: query.Limits{Default: 12, Max: 100}}, logger),
		Categories: services.NewCategoryService(store, logger),
		Favourites: services.NewFavouriteService(store, logger),
		Stats:      services.NewStatsService(store),
		Auth:       auth,
		Users:      services.NewUserService(store, 100),
		Feedback:   services.NewFeedbackService(store, 100, logger),
		Tokens:     tokens,
	})
	return &testServer{router: r, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	_, err := s.auth.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "adminpass")
	require.NoError(t, err)
	w, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "adminpass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	return body["accessToken"].(string)
}

func (s *testServer) userToken(t *testing.T, email string) string {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Citizen", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return body["accessToken"].(string)
}

func data(body map[string]any) map[string]any {
	return body["data"].(map[string]any)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
}

func TestSchemeLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	w, body := s.do(t, http.MethodPost, "/api/categories", admin, map[string]any{"name": "Education"})
	require.Equal(t, http.StatusCreated, w.Code)
	categoryID := data(body)["id"].(string)

	w, body = s.do(t, http.MethodPost, "/api/schemes", admin, map[string]any{
		"name":                 "Merit Scholarship",
		"description":          "Support for students",
		"benefits":             []string{"fees"},
		"applicationProcedure": "apply online",
		"categoryId":           categoryID,
		"eligibility":          map[string]any{"age": map[string]int{"min": 16, "max": 25}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	scheme := data(body)
	slug := scheme["slug"].(string)
	schemeID := scheme["id"].(string)
	assert.Equal(t, "education", scheme["category"].(map[string]any)["slug"])

	w, body = s.do(t, http.MethodGet, "/api/schemes?minAge=18&maxAge=20", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 1, body["pages"])

	w, body = s.do(t, http.MethodGet, "/api/schemes?maxAge=30", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["total"])

	w, body = s.do(t, http.MethodGet, "/api/schemes/"+slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, data(body)["views"])

	w, _ = s.do(t, http.MethodDelete, "/api/categories/"+categoryID, admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/schemes/"+schemeID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/categories/"+categoryID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/schemes/"+slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemeListValidation(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []string{"limit=0", "page=-1", "minAge=abc", "sort=bogus"} {
		w, body := s.do(t, http.MethodGet, "/api/schemes?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Equal(t, "VALIDATION", body["code"], q)
	}
}

func TestCreateSchemeBindingErrors(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)

	w, body := s.do(t, http.MethodPost, "/api/schemes", admin, map[string]any{
		"name":            "Incomplete",
		"officialWebsite": "ftp://example.com",
		"categoryId":      "nope",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := body["details"].(map[string]any)
	assert.Contains(t, details, "description")
	assert.Contains(t, details, "categoryId")
	assert.Contains(t, details, "officialWebsite")
}

func TestAdminRoutesRequireRole(t *testing.T) {
	s := newTestServer(t)
	user := s.userToken(t, "citizen@example.com")

	w, _ := s.do(t, http.MethodPost, "/api/categories", "", map[string]any{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/categories", user, map[string]any{"name": "X"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/users/admin/stats", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/schemes/admin/stats", s.adminToken(t), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFavouritesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	user := s.userToken(t, "fan@example.com")

	_, body := s.do(t, http.MethodPost, "/api/categories", admin, map[string]any{"name": "Health"})
	categoryID := data(body)["id"].(string)
	_, body = s.do(t, http.MethodPost, "/api/schemes", admin, map[string]any{
		"name": "Insurance", "description": "d", "benefits": []string{"cover"},
		"applicationProcedure": "p", "categoryId": categoryID,
	})
	schemeID := data(body)["id"].(string)

	w, _ := s.do(t, http.MethodPost, "/api/users/favourites/"+schemeID, user, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/users/favourites/"+schemeID, user, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/users/favourites", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])

	w, _ = s.do(t, http.MethodDelete, "/api/users/favourites/"+schemeID, user, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/users/favourites/"+schemeID, user, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/users/favourites/not-an-id", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshRotatesCookie(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Rotating", "email": "rotate@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first := body["refreshToken"].(string)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	w, _ = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": first})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeedbackOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	user := s.userToken(t, "voice@example.com")

	w, body := s.do(t, http.MethodPost, "/api/feedback", user, map[string]any{
		"type": "general", "subject": "Great site", "message": "Thanks", "rating": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := data(body)["id"].(string)

	w, _ = s.do(t, http.MethodPost, "/api/feedback", user, map[string]any{
		"type": "complaint", "subject": "x", "message": "y",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodPatch, "/api/feedback/"+id, admin, map[string]any{"status": "reviewed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reviewed", data(body)["status"])

	w, body = s.do(t, http.MethodGet, "/api/feedback?status=reviewed", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["total"])
}
