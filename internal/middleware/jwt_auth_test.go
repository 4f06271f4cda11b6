package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/anonto42/studynest/backend/internal/auth"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubUsers map[primitive.ObjectID]models.User

func (s stubUsers) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := s[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

type stubBlacklist map[string]bool

func (b stubBlacklist) Revoke(_ context.Context, hash string, _ time.Time) error {
	b[hash] = true
	return nil
}

func (b stubBlacklist) IsRevoked(_ context.Context, hash string) (bool, error) {
	return b[hash], nil
}

func setupVerifier(t *testing.T) (*IdentityVerifier, *auth.Issuer, models.User, stubBlacklist) {
	t.Helper()
	issuer := auth.NewIssuer("test-secret", time.Hour)
	user := models.User{ID: primitive.NewObjectID(), Name: "Ada", Password: "$2a$10$hash", Role: models.RoleTeacher}
	blacklist := stubBlacklist{}
	return NewIdentityVerifier(issuer, stubUsers{user.ID: user}, blacklist, zap.NewNop()), issuer, user, blacklist
}

func TestVerifyStripsPassword(t *testing.T) {
	verifier, issuer, user, _ := setupVerifier(t)
	token, _, err := issuer.Issue(&user)
	require.NoError(t, err)

	got, claims, raw, err := verifier.Verify(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.Password)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, token, raw)
}

func TestVerifyFailures(t *testing.T) {
	verifier, issuer, user, blacklist := setupVerifier(t)

	ghost := models.User{ID: primitive.NewObjectID(), Role: models.RoleStudent}
	ghostToken, _, err := issuer.Issue(&ghost)
	require.NoError(t, err)

	revokedToken, _, err := issuer.Issue(&user)
	require.NoError(t, err)
	require.NoError(t, blacklist.Revoke(context.Background(), auth.HashToken(revokedToken), time.Now().Add(time.Hour)))

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing Authorization header"},
		{"wrong scheme", "Basic abc", "Invalid Authorization header format"},
		{"garbage token", "Bearer abc.def.ghi", "Invalid token"},
		{"unknown user", "Bearer " + ghostToken, "User not found"},
		{"revoked token", "Bearer " + revokedToken, "Token has been revoked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := verifier.Verify(context.Background(), tt.header)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestMiddlewareThenAuthorizeRoles(t *testing.T) {
	verifier, issuer, teacher, _ := setupVerifier(t)
	e := echo.New()
	e.GET("/best", func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentUser(c).Name)
	}, verifier.Middleware(), AuthorizeRoles(models.RoleTeacher))

	token, _, err := issuer.Issue(&teacher)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/best", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", rec.Body.String())
}

func TestAuthorizeRolesRequiresUser(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	err := AuthorizeRoles(models.RoleTeacher)(func(echo.Context) error { return nil })(c)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
}

func TestAuthorizeRolesForbidsOtherRoles(t *testing.T) {
	student := &models.User{ID: primitive.NewObjectID(), Role: models.RoleStudent}
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set(userKey, student)

	err := AuthorizeRoles(models.RoleTeacher)(func(echo.Context) error { return nil })(c)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}
