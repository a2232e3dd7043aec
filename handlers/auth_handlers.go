package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"yieldboard/models"
	"yieldboard/store"
	"yieldboard/utils"
)

// AuthCookie carries the session JWT.
const AuthCookie = "jwt_token"

type AuthHandlers struct {
	UserStore *store.UserStore
	JWT       *utils.JWTManager
	// SecureCookie marks the session cookie Secure; set it behind TLS.
	SecureCookie bool
}

func NewAuthHandlers(userStore *store.UserStore, jwt *utils.JWTManager) *AuthHandlers {
	return &AuthHandlers{UserStore: userStore, JWT: jwt}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Errorf("Failed to hash password for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user, err := h.UserStore.CreateUser(c.Request.Context(), req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		log.Errorf("Failed to create user %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, models.AccountResponse{Message: "User registered successfully", UserEmail: user.Email})
}

// Login checks credentials and issues the session cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Errorf("Login lookup failed for %s: %v", req.Email, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check credentials"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		log.WithField("email", req.Email).Info("Login failed: password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := h.JWT.GenerateJWT(user)
	if err != nil {
		log.Errorf("Failed to generate JWT for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(AuthCookie, tokenString, int(h.JWT.TTL().Seconds()), "/", "", h.SecureCookie, true)

	now := time.Now().UTC()
	if err := h.UserStore.RecordLogin(c.Request.Context(), user.ID, now); err != nil {
		log.Warnf("Failed to record login for user %d: %v", user.ID, err)
	}
	expires := now.Add(h.JWT.TTL())

	log.WithFields(log.Fields{"user_id": user.ID, "email": user.Email}).Info("User logged in")
	c.JSON(http.StatusOK, models.AccountResponse{
		Message:     "Login successful",
		UserEmail:   user.Email,
		LastLoginAt: user.LastLoginAt,
		ExpiresAt:   &expires,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(AuthCookie, "", -1, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
