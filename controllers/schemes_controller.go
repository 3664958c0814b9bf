package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/query"
	"github.com/myscheme/schemeapi/services"
)

// GET /api/schemes
func GetSchemes(svc *services.SchemeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := svc.List(c.Request.Context(), query.Params{
			Search:      c.Query("search"),
			Category:    c.Query("category"),
			State:       c.Query("state"),
			Gender:      c.Query("gender"),
			IncomeGroup: c.Query("incomeGroup"),
			MinAge:      c.Query("minAge"),
			MaxAge:      c.Query("maxAge"),
			Page:        c.Query("page"),
			Limit:       c.Query("limit"),
			Sort:        c.Query("sort"),
		})
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		paged(c, page.Items, page.Count, page.Total, page.Page, page.Pages)
	}
}

// GET /api/schemes/suggestions?q=
func GetSchemeSuggestions(svc *services.SchemeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.Suggestions(c.Request.Context(), c.Query("q"))
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, out)
	}
}

// GET /api/schemes/:slug
func GetScheme(svc *services.SchemeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, err := svc.GetBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, scheme)
	}
}

// POST /api/schemes
func AddScheme(svc *services.SchemeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateSchemeDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		scheme, err := svc.Create(c.Request.Context(), body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusCreated, scheme)
	}
}

// PUT /api/schemes/:id
func UpdateScheme(svc *services.SchemeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramID(c, "id")
		if !valid {
			return
		}
		var body dto.UpdateSchemeDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		scheme, err := svc.Update(c.Request.Context(), id, body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, scheme)
	}
}

// DELETE /api/schemes/:id
func DeleteScheme(svc *services.SchemeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramID(c, "id")
		if !valid {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			middleware.RenderError(c, err)
			return
		}
		okMessage(c, "scheme deleted")
	}
}

// POST /api/schemes/:id/banner (multipart field "image")
func UploadSchemeBanner(svc *services.SchemeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramID(c, "id")
		if !valid {
			return
		}
		fh, err := c.FormFile("image")
		if err != nil {
			middleware.RenderError(c, apperrors.ValidationWithDetails("invalid upload", map[string]string{
				"image": "is required",
			}))
			return
		}
		scheme, err := svc.UploadBanner(c.Request.Context(), id, fh)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, scheme)
	}
}

// GET /api/schemes/admin/stats
func GetSchemeStats(svc *services.StatsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.SchemeStats(c.Request.Context())
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, stats)
	}
}
