package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/services"
	"github.com/myscheme/schemeapi/utils"
)

// GET /api/users/favourites
func GetFavourites(svc *services.FavouriteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, found := currentUser(c)
		if !found {
			return
		}
		items, err := svc.List(c.Request.Context(), userID)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
	}
}

// POST /api/users/favourites/:schemeId
func AddFavourite(svc *services.FavouriteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, found := currentUser(c)
		if !found {
			return
		}
		schemeID, valid := paramID(c, "schemeId")
		if !valid {
			return
		}
		if err := svc.Add(c.Request.Context(), userID, schemeID); err != nil {
			middleware.RenderError(c, err)
			return
		}
		okMessage(c, "scheme added to favourites")
	}
}

// DELETE /api/users/favourites/:schemeId
func RemoveFavourite(svc *services.FavouriteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, found := currentUser(c)
		if !found {
			return
		}
		schemeID, valid := paramID(c, "schemeId")
		if !valid {
			return
		}
		if err := svc.Remove(c.Request.Context(), userID, schemeID); err != nil {
			middleware.RenderError(c, err)
			return
		}
		okMessage(c, "scheme removed from favourites")
	}
}

// GET /api/users?search=&page=&limit=
func GetUsers(svc *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParseIntDefault(c.Query("page"), 1)
		limit := utils.ParseIntDefault(c.Query("limit"), 20)

		res, err := svc.List(c.Request.Context(), c.Query("search"), page, limit)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		paged(c, res.Items, len(res.Items), res.Total, res.Page, res.Pages)
	}
}

// GET /api/users/admin/stats
func GetUserStats(svc *services.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.UserStats(c.Request.Context())
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, stats)
	}
}
