package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/dto"
	"github.com/myscheme/schemeapi/middleware"
	"github.com/myscheme/schemeapi/services"
	"github.com/myscheme/schemeapi/utils"
)

// POST /api/feedback
func CreateFeedback(svc *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, found := currentUser(c)
		if !found {
			return
		}
		var body dto.CreateFeedbackDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		fb, err := svc.Create(c.Request.Context(), userID, body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusCreated, fb)
	}
}

// GET /api/feedback?status=&page=&limit=
func GetFeedback(svc *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParseIntDefault(c.Query("page"), 1)
		limit := utils.ParseIntDefault(c.Query("limit"), 20)

		res, err := svc.List(c.Request.Context(), c.Query("status"), page, limit)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		paged(c, res.Items, len(res.Items), res.Total, res.Page, res.Pages)
	}
}

// PATCH /api/feedback/:id
func UpdateFeedbackStatus(svc *services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramID(c, "id")
		if !valid {
			return
		}
		var body dto.UpdateFeedbackStatusDTO
		if !middleware.BindJSON(c, &body) {
			return
		}
		fb, err := svc.UpdateStatus(c.Request.Context(), id, body)
		if err != nil {
			middleware.RenderError(c, err)
			return
		}
		ok(c, http.StatusOK, fb)
	}
}
