package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

func courseIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "course id must be a positive integer")
	}
	return id, nil
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return nil
}
