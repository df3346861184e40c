package api

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/justyntemme/librarian/internal/apperr"
	"github.com/justyntemme/librarian/internal/auth"
	"github.com/justyntemme/librarian/internal/models"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
}

// AuthHandler contains authentication handlers
type AuthHandler struct {
	users  UserStore
	tokens *auth.Manager
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserStore, tokens *auth.Manager, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

func userTaken(c *gin.Context) {
	c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken", "kind": "conflict"})
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.New(apperr.InvalidInput, "Username, email, and password are required"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 32 {
		respondError(c, h.logger, apperr.New(apperr.InvalidInput, "Username must be 3-32 characters"))
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if !emailRegex.MatchString(req.Email) {
		respondError(c, h.logger, apperr.New(apperr.InvalidInput, "Invalid email format"))
		return
	}

	if len(req.Password) < 8 {
		respondError(c, h.logger, apperr.New(apperr.InvalidInput, "Password must be at least 8 characters"))
		return
	}

	ctx := c.Request.Context()
	exists, err := h.users.UserExists(ctx, req.Username, req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if exists {
		userTaken(c)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.users.CreateUser(ctx, user); err != nil {
		if apperr.Is(err, apperr.DuplicateIdentifier) {
			userTaken(c)
			return
		}
		respondError(c, h.logger, err)
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "User registered", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.New(apperr.InvalidInput, "Username and password are required"))
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		respondError(c, h.logger, err)
		return
	}
	if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "kind": "unauthorized"})
		return
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// RefreshToken refreshes an existing token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.New(apperr.InvalidInput, "Token is required"))
		return
	}

	newToken, err := h.tokens.RefreshToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "kind": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": newToken})
}

// GetCurrentUser returns the currently authenticated user
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.users.GetUserByID(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
