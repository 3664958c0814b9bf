package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/ratelimit"
	"github.com/myscheme/schemeapi/services"
	"github.com/myscheme/schemeapi/utils"
)

// Handlers bundles everything the routes need.
type Handlers struct {
	Schemes    *services.SchemeService
	Categories *services.CategoryService
	Favourites *services.FavouriteService
	Stats      *services.StatsService
	Auth       *services.AuthService
	Users      *services.UserService
	Feedback   *services.FeedbackService

	Tokens  *utils.TokenIssuer
	Cookies CookieSettings
	// AuthLimiter throttles the auth endpoints when set.
	AuthLimiter *ratelimit.KeyedRateLimiter
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	requireAuth := middleware.AuthMiddleware(h.Tokens)
	adminOnly := middleware.AdminOnly()

	auth := api.Group("/auth")
	if h.AuthLimiter != nil {
		auth.Use(middleware.RateLimit(h.AuthLimiter))
	}
	{
		auth.POST("/register", Register(h.Auth, h.Cookies))
		auth.POST("/login", Login(h.Auth, h.Cookies))
		auth.POST("/refresh", Refresh(h.Auth, h.Cookies))
		auth.POST("/logout", Logout(h.Auth, h.Cookies))
		auth.GET("/me", requireAuth, Me(h.Auth))
		auth.PUT("/profile", requireAuth, UpdateProfile(h.Auth))
		auth.PUT("/password", requireAuth, ChangeMyPassword(h.Auth, h.Cookies))
	}

	schemes := api.Group("/schemes")
	{
		schemes.GET("", GetSchemes(h.Schemes))
		schemes.GET("/suggestions", GetSchemeSuggestions(h.Schemes))
		schemes.GET("/admin/stats", requireAuth, adminOnly, GetSchemeStats(h.Stats))
		schemes.GET("/:slug", GetScheme(h.Schemes))
		schemes.POST("", requireAuth, adminOnly, AddScheme(h.Schemes))
		schemes.PUT("/:id", requireAuth, adminOnly, UpdateScheme(h.Schemes))
		schemes.DELETE("/:id", requireAuth, adminOnly, DeleteScheme(h.Schemes))
		schemes.POST("/:id/banner", requireAuth, adminOnly, UploadSchemeBanner(h.Schemes))
	}

	categories := api.Group("/categories")
	{
		categories.GET("", middleware.OptionalAuth(h.Tokens), GetCategories(h.Categories))
		categories.GET("/:slug", GetCategory(h.Categories))
		categories.POST("", requireAuth, adminOnly, AddCategory(h.Categories))
		categories.PUT("/:id", requireAuth, adminOnly, UpdateCategory(h.Categories))
		categories.DELETE("/:id", requireAuth, adminOnly, DeleteCategory(h.Categories))
	}

	users := api.Group("/users", requireAuth)
	{
		users.GET("/favourites", GetFavourites(h.Favourites))
		users.POST("/favourites/:schemeId", AddFavourite(h.Favourites))
		users.DELETE("/favourites/:schemeId", RemoveFavourite(h.Favourites))
		users.GET("", adminOnly, GetUsers(h.Users))
		users.GET("/admin/stats", adminOnly, GetUserStats(h.Stats))
	}

	feedback := api.Group("/feedback", requireAuth)
	{
		feedback.POST("", CreateFeedback(h.Feedback))
		feedback.GET("", adminOnly, GetFeedback(h.Feedback))
		feedback.PATCH("/:id", adminOnly, UpdateFeedbackStatus(h.Feedback))
	}
}
