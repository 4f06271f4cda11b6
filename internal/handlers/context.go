package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/anonto42/studynest/backend/internal/middleware"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUser returns the authenticated user or an Unauthenticated error.
func currentUser(c echo.Context) (*models.User, error) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return nil, apperrors.Unauthenticated("User not authenticated")
	}
	return user, nil
}

// objectIDParam parses the path parameter name as an ObjectID.
func objectIDParam(c echo.Context, name, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+label+" ID")
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return c.Validate(req)
}

// notFound converts repositories.ErrNotFound into an API NotFound error.
func notFound(err error, msg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound(msg)
	}
	return err
}

// queryInt64 reads a non-negative integer query parameter, falling back to def.
func queryInt64(c echo.Context, name string, def, max int64) int64 {
	v, err := strconv.ParseInt(c.QueryParam(name), 10, 64)
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
