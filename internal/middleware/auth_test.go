package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"elim/internal/db/dbtest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthRequired(t *testing.T) {
	gdb := dbtest.New(t)
	profile := dbtest.Profile(t, gdb, "erin")

	r := gin.New()
	r.Use(Sessions("test-secret"), LoadProfile(gdb))
	r.POST("/login/:id", func(c *gin.Context) {
		require.NoError(t, SignIn(c, c.Param("id")))
		c.Status(http.StatusNoContent)
	})
	r.GET("/api/me", AuthRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentProfileID(c)})
	})
	r.GET("/page", AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("api without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"please sign in"}`, w.Body.String())
	})

	t.Run("page without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("signed in", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login/"+profile.ID, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		cookies := w.Result().Cookies()
		require.NotEmpty(t, cookies)

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"`+profile.ID+`"}`, w.Body.String())
	})

	t.Run("unknown profile in session", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login/ghost", nil))
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		for _, ck := range w.Result().Cookies() {
			req.AddCookie(ck)
		}
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
