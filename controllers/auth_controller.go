package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/services"
)

const refreshCookie = "refreshToken"

// CookieSettings control the refresh token cookie.
type CookieSettings struct {
	Secure bool
	Domain string
}

func setRefreshCookie(c *gin.Context, cs CookieSettings, token string, expires time.Time) {
	sameSite := http.SameSiteLaxMode
	if cs.Secure {
		sameSite = http.SameSiteNoneMode // for cross-site
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/api/auth",
		Domain:   cs.Domain,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   cs.Secure,
		SameSite: sameSite,
	})
}

func clearRefreshCookie(c *gin.Context, cs CookieSettings) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api/auth",
		Domain:   cs.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cs.Secure,
	})
}

func writeSession(c *gin.Context, cs CookieSettings, status int, res *services.AuthResult) {
	setRefreshCookie(c, cs, res.RefreshToken, res.RefreshExpires)
	c.JSON(status, gin.H{
		"success":      true,
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"data":         res.User,
	})
}

// refreshTokenFrom prefers the body, then the cookie.
func refreshTokenFrom(c *gin.Context) string {
	var body dto.RefreshDTO
	_ = c.ShouldBindJSON(&body)
	if body.RefreshToken != "" {
		return body.RefreshToken
	}
	token, _ := c.Cookie(refreshCookie)
	return token
}

// POST /api/auth/register
func Register(svc *services.AuthService, cs CookieSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		res, err := svc.Register(c.Request.Context(), body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		writeSession(c, cs, http.StatusCreated, res)
	}
}

// POST /api/auth/login
func Login(svc *services.AuthService, cs CookieSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		res, err := svc.Login(c.Request.Context(), body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		writeSession(c, cs, http.StatusOK, res)
	}
}

// POST /api/auth/refresh
func Refresh(svc *services.AuthService, cs CookieSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Refresh(c.Request.Context(), refreshTokenFrom(c))
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		writeSession(c, cs, http.StatusOK, res)
	}
}

// POST /api/auth/logout
func Logout(svc *services.AuthService, cs CookieSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Logout(c.Request.Context(), refreshTokenFrom(c)); err != nil {
			middleware.RenderError(c, err)
			return
		}
		clearRefreshCookie(c, cs)
		okMessage(c, "logged out")
	}
}

// GET /api/auth/me
func Me(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, found := currentUser(c)
		if !found {
			return
		}
		user, err := svc.Me(c.Request.Context(), userID)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, user)
	}
}

// PUT /api/auth/profile
func UpdateProfile(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, found := currentUser(c)
		if !found {
			return
		}
		var body dto.UpdateProfileDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		user, err := svc.UpdateProfile(c.Request.Context(), userID, body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, user)
	}
}

// PUT /api/auth/password
func ChangeMyPassword(svc *services.AuthService, cs CookieSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, found := currentUser(c)
		if !found {
			return
		}
		var body dto.ChangeMyPasswordDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		if err := svc.ChangePassword(c.Request.Context(), userID, body); err != nil {
			middleware.RenderError(c, err)
			return
		}
		clearRefreshCookie(c, cs)
		okMessage(c, "password updated")
	}
}
