package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SignupReq struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Profile Profile `json:"profile"`
	Email   string  `json:"email"`
	Landing string  `json:"landing"`
}

// Signup creates an identity and its profile row (default role
// "user"). The confirm-password check runs before anything is created.
// If the profile insert fails the freshly created identity is signed
// back out and removed — a compensating action, not a transaction.
func Signup(db *gorm.DB, hub *Hub, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
			return
		}
		if req.Password != req.ConfirmPassword {
			c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
			return
		}

		var existing Identity
		if err := db.First(&existing, "email = ?", req.Email).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash"})
			return
		}
		identity := Identity{ID: uuid.New().String(), Email: req.Email, PasswordHash: string(hash)}
		if err := db.Create(&identity).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
			return
		}

		profile := Profile{ID: identity.ID, Role: RoleUser, Theme: "light", Language: "en"}
		if err := db.Create(&profile).Error; err != nil {
			// Reverse the signup: remove the identity and local state.
			db.Delete(&Identity{}, "id = ?", identity.ID)
			clearSessionCookie(c, secureCookies)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "profile creation failed"})
			return
		}
		hub.Publish(TableProfiles, "insert")

		token := uuid.New().String()
		if err := db.Create(&AuthSession{Token: token, IdentityID: identity.ID}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		setSessionCookie(c, token, secureCookies)

		c.JSON(http.StatusOK, AuthResponse{
			Profile: profile,
			Email:   identity.Email,
			Landing: landingRouteFor(profile.Role),
		})
	}
}

// Login exchanges email/password for a session cookie. Failures come
// back as inline error text.
func Login(db *gorm.DB, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))

		var identity Identity
		if err := db.First(&identity, "email = ?", req.Email).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		var profile Profile
		if err := db.First(&profile, "id = ?", identity.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "profile missing"})
			return
		}

		token := uuid.New().String()
		if err := db.Create(&AuthSession{Token: token, IdentityID: identity.ID}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		setSessionCookie(c, token, secureCookies)

		c.JSON(http.StatusOK, AuthResponse{
			Profile: profile,
			Email:   identity.Email,
			Landing: landingRouteFor(profile.Role),
		})
	}
}

// Logout deletes the session row and clears the cookie.
func Logout(db *gorm.DB, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := c.Get("sessionToken"); ok {
			db.Delete(&AuthSession{}, "token = ?", token)
		}
		clearSessionCookie(c, secureCookies)
		c.JSON(http.StatusOK, gin.H{"status": "signed out"})
	}
}
