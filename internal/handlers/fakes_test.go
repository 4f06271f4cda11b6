package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	tokens "github.com/anonto42/studynest/backend/internal/auth"
	"github.com/anonto42/studynest/backend/internal/middleware"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/anonto42/studynest/backend/internal/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUsers) add(name string, role models.Role) *models.User {
	u := &models.User{ID: primitive.NewObjectID(), Name: name, Email: strings.ToLower(name) + "@example.com", Role: role}
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
	return u
}

func (r *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUsers) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.FirebaseUID != "" && u.FirebaseUID == uid })
}

func (r *fakeUsers) ListRecipients(_ context.Context, exclude primitive.ObjectID, asOf time.Time) ([]primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []primitive.ObjectID
	for id, u := range r.users {
		if id != exclude && !u.CreatedAt.After(asOf) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeUsers) update(id primitive.ObjectID, apply func(*models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	apply(u)
	cp := *u
	return &cp, nil
}

func (r *fakeUsers) UpdateName(_ context.Context, id primitive.ObjectID, name string) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.Name = name })
}

func (r *fakeUsers) UpdateProfilePicture(_ context.Context, id primitive.ObjectID, url string) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.ProfilePicture = url })
}

func (r *fakeUsers) LinkFirebaseUID(_ context.Context, id primitive.ObjectID, uid string) error {
	_, err := r.update(id, func(u *models.User) { u.FirebaseUID = uid })
	return err
}

func (r *fakeUsers) DeleteUser(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUsers) SearchUsers(_ context.Context, query string, limit int64) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) && int64(len(out)) < limit {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUsers) Follow(_ context.Context, followerID, targetID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.users[targetID]
	if !ok {
		return repositories.ErrNotFound
	}
	for _, id := range target.Followers {
		if id == followerID {
			return nil
		}
	}
	target.Followers = append(target.Followers, followerID)
	if follower, ok := r.users[followerID]; ok {
		follower.Following = append(follower.Following, targetID)
	}
	return nil
}

func (r *fakeUsers) Unfollow(_ context.Context, followerID, targetID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.users[targetID]
	if !ok {
		return repositories.ErrNotFound
	}
	target.Followers = without(target.Followers, followerID)
	if follower, ok := r.users[followerID]; ok {
		follower.Following = without(follower.Following, targetID)
	}
	return nil
}

func without(ids []primitive.ObjectID, drop primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

type fakeBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (b *fakeBlacklist) Revoke(_ context.Context, hash string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.revoked == nil {
		b.revoked = make(map[string]time.Time)
	}
	b.revoked[hash] = exp
	return nil
}

func (b *fakeBlacklist) IsRevoked(_ context.Context, hash string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.revoked[hash]
	return ok && exp.After(time.Now()), nil
}

// memoryNotifications is a notify.Store keyed like the Mongo collection.
type memoryNotifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (s *memoryNotifications) InsertMany(_ context.Context, batch []models.Notification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range batch {
		n.ID = primitive.NewObjectID()
		s.items = append(s.items, n)
	}
	return len(batch), nil
}

func (s *memoryNotifications) ListRecent(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryNotifications) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *memoryNotifications) MarkRead(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID && !s.items[i].IsRead {
			s.items[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryNotifications) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.items {
		if s.items[i].UserID == userID && !s.items[i].IsRead {
			s.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func noopMiddleware(next echo.HandlerFunc) echo.HandlerFunc { return next }

// testServer is an echo instance wired the way the router wires production.
type testServer struct {
	e           *echo.Echo
	api         *echo.Group
	users       *fakeUsers
	blacklist   *fakeBlacklist
	issuer      *tokens.Issuer
	requireAuth echo.MiddlewareFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	e := echo.New()
	v := validators.NewValidator()
	e.Validator = v
	e.HTTPErrorHandler = NewHTTPErrorHandler(v, zap.NewNop())

	users := newFakeUsers()
	blacklist := &fakeBlacklist{}
	issuer := tokens.NewIssuer("test-secret", time.Hour)
	requireAuth := middleware.NewIdentityVerifier(issuer, users, blacklist, zap.NewNop()).Middleware()

	api := e.Group("/api")
	api.Use(requireAuth)

	return &testServer{
		e:           e,
		api:         api,
		users:       users,
		blacklist:   blacklist,
		issuer:      issuer,
		requireAuth: requireAuth,
	}
}

func (s *testServer) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := s.issuer.Issue(user)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return s.send(req, token)
}

func (s *testServer) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
