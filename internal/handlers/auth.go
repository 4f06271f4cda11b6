package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/studynest/backend/internal/apperrors"
	tokens "github.com/anonto42/studynest/backend/internal/auth"
	"github.com/anonto42/studynest/backend/internal/middleware"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IDTokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	blacklist      repositories.TokenBlacklist
	issuer         *tokens.Issuer
	firebaseAuth   IDTokenVerifier
	logger         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil.
func NewAuthHandler(userRepo repositories.UserRepository, blacklist repositories.TokenBlacklist, issuer *tokens.Issuer, firebaseAuth IDTokenVerifier, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		blacklist:      blacklist,
		issuer:         issuer,
		firebaseAuth:   firebaseAuth,
		logger:         logger,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
	g.POST("/logout", h.Logout, requireAuth)
	g.GET("/me", h.Me, requireAuth)
}

// Register creates a student or teacher account
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role, err := models.ParseRole(req.Role)
	if err != nil || role == models.RoleAdmin {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid role")
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Email already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hashedPassword, err := tokens.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: hashedPassword,
		Role:     role,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return echo.NewHTTPError(http.StatusBadRequest, "Email already exists")
		}
		return err
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID.Hex()), zap.String("role", string(role)))
	return c.JSON(http.StatusCreated, echo.Map{"user": user.Sanitized()})
}

// Login exchanges email and password for a bearer token
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid email or password")
		}
		return err
	}
	if user.Password == "" || !tokens.CheckPassword(user.Password, req.Password) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid email or password")
	}

	return h.respondWithToken(c, user)
}

// Logout revokes the caller's token until it expires
func (h *AuthHandler) Logout(c echo.Context) error {
	claims := middleware.CurrentClaims(c)
	token := middleware.CurrentToken(c)
	if claims == nil || token == "" {
		return apperrors.Unauthenticated("User not authenticated")
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.blacklist.Revoke(c.Request().Context(), tokens.HashToken(token), expiresAt); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token and issues a local token. Users
// signing in for the first time are created as students.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Firebase login is not configured")
	}

	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return apperrors.Unauthenticated("Invalid Firebase ID token")
	}

	email, _ := token.Claims["email"].(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email")
	}
	name, _ := token.Claims["name"].(string)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, token.UID)
	if errors.Is(err, repositories.ErrNotFound) {
		user, err = h.userRepository.GetUserByEmail(ctx, email)
		if errors.Is(err, repositories.ErrNotFound) {
			user = &models.User{
				Name:        name,
				Email:       email,
				Role:        models.RoleStudent,
				FirebaseUID: token.UID,
			}
			err = h.userRepository.CreateUser(ctx, user)
		} else if err == nil && user.FirebaseUID == "" {
			err = h.userRepository.LinkFirebaseUID(ctx, user.ID, token.UID)
		}
	}
	if err != nil {
		return err
	}

	return h.respondWithToken(c, user)
}

func (h *AuthHandler) respondWithToken(c echo.Context, user *models.User) error {
	token, expiresAt, err := h.issuer.Issue(user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":       user.Sanitized(),
		"token":      token,
		"expires_at": expiresAt,
	})
}
