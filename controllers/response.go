package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/middleware"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func okMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func paged(c *gin.Context, data any, count int, total int64, page, pages int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"count":   count,
		"total":   total,
		"page":    page,
		"pages":   pages,
	})
}

// paramID parses the named path parameter, rendering a validation error when
// it is not an ObjectID.
func paramID(c *gin.Context, name string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(c.Param(name))
	if err != nil {
		middleware.RenderError(c, apperrors.Validationf("invalid %s", name))
		return bson.NilObjectID, false
	}
	return id, true
}

func currentUser(c *gin.Context) (bson.ObjectID, bool) {
	id, found := middleware.UserID(c)
	if !found {
		middleware.RenderError(c, apperrors.Unauthorized("missing token"))
		return bson.NilObjectID, false
	}
	return id, true
}
