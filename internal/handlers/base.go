package handlers

import (
	"errors"
	"net/http"

	"elim/internal/middleware"
	"elim/internal/models"

	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like the current profile
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if profile := middleware.CurrentProfile(c); profile != nil {
		obj["CurrentProfile"] = profile
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = int(count.(int64))
		} else {
			obj["UnreadCount"] = 0
		}
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// HtmxRefresh asks HTMX to reload the page after a mutation.
func HtmxRefresh(c *gin.Context) {
	c.Header("HX-Refresh", "true")
	c.Status(http.StatusOK)
}

func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Title": http.StatusText(code)})
}

const genericFailure = "something went wrong, please try again"

// errorStatus maps domain errors to an HTTP status and a message safe to show.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrEmptyContent):
		return http.StatusBadRequest, models.ErrEmptyContent.Error()
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "please sign in"
	case errors.Is(err, models.ErrPostNotFound):
		return http.StatusNotFound, models.ErrPostNotFound.Error()
	case errors.Is(err, models.ErrParentNotFound):
		return http.StatusUnprocessableEntity, models.ErrParentNotFound.Error()
	default:
		return http.StatusInternalServerError, genericFailure
	}
}

// abortJSON answers an API call with {"error": message}. Server errors are
// attached to the context so the request logger records the cause.
func abortJSON(c *gin.Context, err error) {
	code, message := errorStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

func abortPage(c *gin.Context, err error) {
	code, message := errorStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RenderError(c, code, message)
	c.Abort()
}
