package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/ratelimit"
	"github.com/myscheme/schemeapi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidation()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"not found", apperrors.NotFound("scheme not found"), http.StatusNotFound, "NOT_FOUND", "scheme not found"},
		{"conflict", apperrors.Conflict("dup"), http.StatusConflict, "CONFLICT", "dup"},
		{"validation", apperrors.Validation("bad"), http.StatusBadRequest, "VALIDATION", "bad"},
		{"forbidden", apperrors.Forbidden("no"), http.StatusForbidden, "FORBIDDEN", "no"},
		{"plain error hides message", errors.New("socket closed"), http.StatusInternalServerError, "INTERNAL", "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RenderError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestRenderError_Details(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RenderError(c, apperrors.ValidationWithDetails("invalid", map[string]string{"limit": "must be positive"}))

	body := decode(t, w)
	assert.Equal(t, map[string]any{"limit": "must be positive"}, body["details"])
}

type bindTarget struct {
	Name  string `json:"name" binding:"required,max=5"`
	Color string `json:"color" binding:"omitempty,hexcolor"`
}

func TestBindJSON(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var in bindTarget
		if !BindJSON(c, &in) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": in.Name})
	})

	send := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := send(`{"name":"ok"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(`{"name":"too long","color":"red"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]any)
	assert.Equal(t, "must not exceed 5 characters", details["name"])
	assert.Equal(t, "must be a hex color", details["color"])

	w = send(`{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decode(t, w)["error"])
}

func newAuthRouter(tokens *utils.TokenIssuer) *gin.Engine {
	r := gin.New()
	auth := r.Group("/", AuthMiddleware(tokens))
	auth.GET("/me", func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "role": Role(c)})
	})
	auth.GET("/admin", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenIssuer("a-secret", "r-secret", time.Minute, time.Hour)
	r := newAuthRouter(tokens)
	userID := bson.NewObjectID().Hex()

	call := func(path, header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Bearer garbage").Code)

	refresh, _, err := tokens.RefreshToken(userID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call("/me", "Bearer "+refresh).Code, "refresh token must not pass as access")

	userToken, err := tokens.AccessToken(userID, "u@example.com", "user")
	require.NoError(t, err)
	w := call("/me", "Bearer "+userToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, decode(t, w)["id"])
	assert.Equal(t, http.StatusForbidden, call("/admin", "Bearer "+userToken).Code)

	adminToken, err := tokens.AccessToken(userID, "a@example.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, call("/admin", "Bearer "+adminToken).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ctxRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(0.001, 2, time.Minute)
	t.Cleanup(limiter.Stop)

	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
