package handlers

import (
	"net/http"

	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	userRepository repositories.UserRepository
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(userRepo repositories.UserRepository) *FollowHandler {
	return &FollowHandler{userRepository: userRepo}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	targetID, err := objectIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	if targetID == user.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	if err := h.userRepository.Follow(c.Request().Context(), user.ID, targetID); err != nil {
		return notFound(err, "User not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Followed successfully"})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	targetID, err := objectIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	if targetID == user.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot unfollow yourself")
	}

	if err := h.userRepository.Unfollow(c.Request().Context(), user.ID, targetID); err != nil {
		return notFound(err, "User not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Unfollowed successfully"})
}
