package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/anonto42/studynest/backend/internal/auth"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	userKey   = "user"
	claimsKey = "claims"
	tokenKey  = "token"
)

// UserLookup resolves a token subject to a stored user.
type UserLookup interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// IdentityVerifier turns a bearer credential into the authenticated user.
type IdentityVerifier struct {
	issuer    *auth.Issuer
	users     UserLookup
	blacklist repositories.TokenBlacklist
	logger    *zap.Logger
}

func NewIdentityVerifier(issuer *auth.Issuer, users UserLookup, blacklist repositories.TokenBlacklist, logger *zap.Logger) *IdentityVerifier {
	return &IdentityVerifier{issuer: issuer, users: users, blacklist: blacklist, logger: logger}
}

// Verify checks an Authorization header value and returns the user with the
// password hash stripped, the token claims and the raw token.
func (v *IdentityVerifier) Verify(ctx context.Context, authHeader string) (*models.User, *models.JwtCustomClaims, string, error) {
	if authHeader == "" {
		return nil, nil, "", apperrors.Unauthenticated("Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, nil, "", apperrors.Unauthenticated("Invalid Authorization header format")
	}
	tokenString := parts[1]

	claims, err := v.issuer.Parse(tokenString)
	if err != nil {
		return nil, nil, "", apperrors.Unauthenticated("Invalid token")
	}

	revoked, err := v.blacklist.IsRevoked(ctx, auth.HashToken(tokenString))
	if err != nil {
		return nil, nil, "", err
	}
	if revoked {
		return nil, nil, "", apperrors.Unauthenticated("Token has been revoked")
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, nil, "", apperrors.Unauthenticated("Invalid token")
	}
	user, err := v.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, "", apperrors.Unauthenticated("User not found")
		}
		return nil, nil, "", err
	}

	sanitized := user.Sanitized()
	return &sanitized, claims, tokenString, nil
}

// Middleware rejects requests without a valid credential and stores the
// authenticated user in the echo context.
func (v *IdentityVerifier) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, claims, token, err := v.Verify(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				if !apperrors.Is(err, apperrors.KindUnauthenticated) {
					v.logger.Error("identity verification failed", zap.Error(err))
				}
				return err
			}

			c.Set(userKey, user)
			c.Set(claimsKey, claims)
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Middleware, or nil.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}

func CurrentClaims(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get(claimsKey).(*models.JwtCustomClaims)
	return claims
}

func CurrentToken(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}
