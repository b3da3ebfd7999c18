package middleware

import (
	"net/http"
	"strings"

	"elim/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	SessionName       = "elim_session"
	SessionProfileKey = "profile_id"

	CurrentProfileKey = "profile"
	UnreadCountKey    = "unread_count"
)

// Sessions installs the signed cookie session store.
func Sessions(secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionName, store)
}

// LoadProfile retrieves the profile from the session and sets it on the context
func LoadProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		profileID, _ := session.Get(SessionProfileKey).(string)

		if profileID != "" {
			var profile models.Profile
			if err := db.WithContext(c.Request.Context()).Where("id = ?", profileID).First(&profile).Error; err == nil {
				c.Set(CurrentProfileKey, &profile)

				var count int64
				db.WithContext(c.Request.Context()).Model(&models.Notification{}).
					Where("profile_id = ? AND is_read = ?", profile.ID, false).
					Count(&count)
				c.Set(UnreadCountKey, count)
			}
		}
		c.Next()
	}
}

// CurrentProfile returns the signed-in profile or nil.
func CurrentProfile(c *gin.Context) *models.Profile {
	v, ok := c.Get(CurrentProfileKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Profile)
	return p
}

// CurrentProfileID returns "" when nobody is signed in.
func CurrentProfileID(c *gin.Context) string {
	if p := CurrentProfile(c); p != nil {
		return p.ID
	}
	return ""
}

// AuthRequired ensures a profile is signed in. API callers get a JSON 401,
// pages are redirected to the login screen.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentProfile(c) != nil {
			c.Next()
			return
		}
		if WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in"})
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// WantsJSON reports whether the request came through the JSON API.
func WantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

// SignIn stores profileID in the session.
func SignIn(c *gin.Context, profileID string) error {
	session := sessions.Default(c)
	session.Set(SessionProfileKey, profileID)
	return session.Save()
}

func SignOut(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
