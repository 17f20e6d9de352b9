package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionCookie = "edu_sid"

// landingRouteFor is the single source of truth for role-based
// landing pages, shared by the route guard and the auth responses.
func landingRouteFor(role string) string {
	if role == RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

func setSessionCookie(c *gin.Context, token string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentUser resolves the session cookie to a profile and stashes it
// in the request context. Unauthenticated requests pass through.
func CurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}
		var sess AuthSession
		if err := db.First(&sess, "token = ?", token).Error; err != nil {
			c.Next()
			return
		}
		var profile Profile
		if err := db.First(&profile, "id = ?", sess.IdentityID).Error; err != nil {
			c.Next()
			return
		}
		c.Set("sessionToken", token)
		c.Set("profile", profile)
		c.Next()
	}
}

func profileFrom(c *gin.Context) (Profile, bool) {
	v, ok := c.Get("profile")
	if !ok {
		return Profile{}, false
	}
	p, ok := v.(Profile)
	return p, ok
}

// RequireAuth blocks unauthenticated requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := profileFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "auth required",
				"redirect": "/login",
			})
			return
		}
		c.Next()
	}
}

// RequireRole blocks authenticated users of the wrong role and points
// them at their own landing page, mirroring the client route guard.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := profileFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "auth required",
				"redirect": "/login",
			})
			return
		}
		if p.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "forbidden",
				"redirect": landingRouteFor(p.Role),
			})
			return
		}
		c.Next()
	}
}
