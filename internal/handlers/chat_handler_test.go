package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/studynest/backend/internal/ai"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type scriptedModel struct {
	reply string
	err   error
}

func (m *scriptedModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

type fakeChats struct {
	mu    sync.Mutex
	chats map[primitive.ObjectID]*models.Chat
}

func (r *fakeChats) CreateChat(_ context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = time.Now()
	chat.UpdatedAt = chat.CreatedAt
	cp := *chat
	r.chats[chat.ID] = &cp
	return nil
}

func (r *fakeChats) GetChats(_ context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Chat{}
	for _, c := range r.chats {
		if c.UserID == userID {
			cp := *c
			cp.Messages = nil
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *fakeChats) GetChat(_ context.Context, id, userID primitive.ObjectID) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok || c.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChats) AppendMessages(_ context.Context, id, userID primitive.ObjectID, messages ...models.ChatMessage) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok || c.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	c.Messages = append(c.Messages, messages...)
	cp := *c
	return &cp, nil
}

func (r *fakeChats) DeleteChat(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok || c.UserID != userID {
		return repositories.ErrNotFound
	}
	delete(r.chats, id)
	return nil
}

func (r *fakeChats) DeleteChatsByUser(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.chats {
		if c.UserID == userID {
			delete(r.chats, id)
		}
	}
	return nil
}

func newChatServer(t *testing.T, model *scriptedModel) (*testServer, *fakeChats) {
	srv := newTestServer(t)
	chats := &fakeChats{chats: make(map[primitive.ObjectID]*models.Chat)}
	client := ai.NewWithModel(model, time.Second, zap.NewNop())
	NewChatHandler(chats, client).RegisterChatRoutes(srv.api, noopMiddleware)
	return srv, chats
}

func TestStartChatStoresBothTurns(t *testing.T) {
	srv, chats := newChatServer(t, &scriptedModel{reply: "Photosynthesis turns light into sugar."})
	user := srv.users.add("Ada", models.RoleStudent)

	rec := srv.do(t, http.MethodPost, "/api/chats", map[string]string{"message": "Explain photosynthesis\nin simple terms"}, srv.tokenFor(t, user))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, chats.chats, 1)
	for _, chat := range chats.chats {
		assert.Equal(t, "Explain photosynthesis", chat.Title)
		require.Len(t, chat.Messages, 2)
		assert.Equal(t, models.ChatRoleUser, chat.Messages[0].Role)
		assert.Equal(t, models.ChatRoleTutor, chat.Messages[1].Role)
	}
}

func TestSendMessageLeavesChatUntouchedWhenTutorIsBusy(t *testing.T) {
	model := &scriptedModel{reply: "Hi!"}
	srv, chats := newChatServer(t, model)
	user := srv.users.add("Ada", models.RoleStudent)
	token := srv.tokenFor(t, user)

	rec := srv.do(t, http.MethodPost, "/api/chats", map[string]string{"message": "Hello"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)

	model.err = errors.New("429 Too Many Requests")
	rec = srv.do(t, http.MethodPost, "/api/chats/"+id+"/messages", map[string]string{"message": "Next question"}, token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	chatID, err := primitive.ObjectIDFromHex(id)
	require.NoError(t, err)
	assert.Len(t, chats.chats[chatID].Messages, 2)

	model.err = nil
	rec = srv.do(t, http.MethodPost, "/api/chats/"+id+"/messages", map[string]string{"message": "Next question"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, chats.chats[chatID].Messages, 4)
}

func TestChatsAreScopedToOwner(t *testing.T) {
	srv, _ := newChatServer(t, &scriptedModel{reply: "Sure."})
	owner := srv.users.add("Ada", models.RoleStudent)
	other := srv.users.add("Grace", models.RoleStudent)

	rec := srv.do(t, http.MethodPost, "/api/chats", map[string]string{"message": "Hello"}, srv.tokenFor(t, owner))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["id"].(string)

	token := srv.tokenFor(t, other)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/chats/"+id, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/api/chats/"+id, nil, token).Code)
}

func TestChatTitle(t *testing.T) {
	assert.Equal(t, "Short one", chatTitle("  Short one  \nsecond line"))

	long := strings.Repeat("é", chatTitleLength+10)
	title := chatTitle(long)
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.Equal(t, chatTitleLength+3, len([]rune(title)))
}
