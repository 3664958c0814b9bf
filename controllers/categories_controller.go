package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/services"
	"github.com/myscheme/schemeapi/utils"
)

// GET /api/categories
// Admins may pass all=true to include inactive categories.
func GetCategories(svc *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := utils.ParseBoolQuery(c.Query("all"))
		if err != nil {
			middleware.RenderError(c, apperrors.Validation("all must be a boolean"))
			return
		}
		includeInactive := all != nil && *all && middleware.Role(c) == string(models.RoleAdmin)

		items, err := svc.List(c.Request.Context(), includeInactive)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
	}
}

// GET /api/categories/:slug
func GetCategory(svc *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat, err := svc.GetBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, cat)
	}
}

// POST /api/categories
func AddCategory(svc *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateCategoryDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		cat, err := svc.Create(c.Request.Context(), body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusCreated, cat)
	}
}

// PUT /api/categories/:id
func UpdateCategory(svc *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramID(c, "id")
		if !valid {
			return
		}
		var body dto.UpdateCategoryDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		cat, err := svc.Update(c.Request.Context(), id, body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, cat)
	}
}

// DELETE /api/categories/:id
func DeleteCategory(svc *services.CategoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramID(c, "id")
		if !valid {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			middleware.RenderError(c, err)
			return
		}
		okMessage(c, "category deleted")
	}
}
