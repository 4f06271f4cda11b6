package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/anonto42/studynest/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserCleanup removes data owned by a deleted user.
type UserCleanup func(ctx context.Context, userID primitive.ObjectID) error

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
	uploader       *storage.Uploader
	cleanups       []UserCleanup
	logger         *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, uploader *storage.Uploader, logger *zap.Logger, cleanups ...UserCleanup) *UserHandler {
	return &UserHandler{
		userRepository: userRepo,
		uploader:       uploader,
		cleanups:       cleanups,
		logger:         logger,
	}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group, uploadLimit echo.MiddlewareFunc) {
	g.GET("/users/profile", h.GetProfile)
	g.PUT("/users/profile", h.UpdateProfile)
	g.PUT("/users/profile/picture", h.UpdateProfilePicture, uploadLimit)
	g.DELETE("/users/profile", h.DeleteUser)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
}

// GetUser returns another user's public profile
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := objectIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return notFound(err, "User profile not found")
	}
	return c.JSON(http.StatusOK, user.Sanitized())
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.userRepository.UpdateName(c.Request().Context(), user.ID, strings.TrimSpace(req.Name))
	if err != nil {
		return notFound(err, "User profile not found")
	}
	return c.JSON(http.StatusOK, updated.Sanitized())
}

// UpdateProfilePicture stores an uploaded image as the user's avatar
func (h *UserHandler) UpdateProfilePicture(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "An image file is required")
	}

	ctx := c.Request().Context()
	attachment, err := h.uploader.Upload(ctx, fh, "avatars", storage.ImageTypes)
	if err != nil {
		return err
	}

	updated, err := h.userRepository.UpdateProfilePicture(ctx, user.ID, attachment.FileURL)
	if err != nil {
		return notFound(err, "User profile not found")
	}
	return c.JSON(http.StatusOK, updated.Sanitized())
}

// DeleteUser deletes the authenticated user and the content they own
func (h *UserHandler) DeleteUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.userRepository.DeleteUser(ctx, user.ID); err != nil {
		return notFound(err, "User profile not found")
	}
	for _, cleanup := range h.cleanups {
		if err := cleanup(ctx, user.ID); err != nil {
			h.logger.Error("failed to clean up user data", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchUsers searches for users by name or email
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, queryInt64(c, "limit", 20, 50))
	if err != nil {
		return err
	}

	results := make([]models.UserCompact, len(users))
	for i := range users {
		results[i] = users[i].ToCompact()
	}
	return c.JSON(http.StatusOK, echo.Map{"users": results})
}
