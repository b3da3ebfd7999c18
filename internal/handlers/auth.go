package handlers

import (
	"errors"
	"net/http"
	"strings"

	"elim/internal/middleware"
	"elim/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler only bridges identity into the session. Accounts are created
// and verified by the ELIM identity provider; DevLogin enables a
// username-only sign-in for local development and tests.
type AuthHandler struct {
	db       *gorm.DB
	devLogin bool
}

func NewAuthHandler(db *gorm.DB, devLogin bool) *AuthHandler {
	return &AuthHandler{db: db, devLogin: devLogin}
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Sign in", "DevLogin": h.devLogin})
}

type devLoginRequest struct {
	Username string `json:"username" form:"username"`
}

// Login signs in by username when development sign-in is enabled.
func (h *AuthHandler) Login(c *gin.Context) {
	if !h.devLogin {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	var req devLoginRequest
	_ = c.ShouldBind(&req)
	username := strings.TrimSpace(req.Username)

	var profile models.Profile
	err := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || username == "" {
		if middleware.WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown username"})
			return
		}
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Title": "Sign in", "DevLogin": true, "Error": "unknown username"})
		return
	}
	if err != nil {
		abortJSON(c, err)
		return
	}

	if err := middleware.SignIn(c, profile.ID); err != nil {
		abortJSON(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, profile)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	_ = middleware.SignOut(c)
	if middleware.WantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusFound, "/")
}
