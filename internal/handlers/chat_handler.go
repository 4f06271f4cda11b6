package handlers

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anonto42/studynest/backend/internal/ai"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

const chatTitleLength = 60

// ChatHandler handles HTTP requests for AI tutor conversations
type ChatHandler struct {
	chatRepository repositories.ChatRepository
	ai             *ai.Client
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chatRepo repositories.ChatRepository, aiClient *ai.Client) *ChatHandler {
	return &ChatHandler{
		chatRepository: chatRepo,
		ai:             aiClient,
	}
}

// RegisterChatRoutes registers chat-related routes. aiLimit throttles tutor calls.
func (h *ChatHandler) RegisterChatRoutes(g *echo.Group, aiLimit echo.MiddlewareFunc) {
	g.POST("/chats", h.StartChat, aiLimit)
	g.GET("/chats", h.GetChats)
	g.GET("/chats/:id", h.GetChat)
	g.POST("/chats/:id/messages", h.SendMessage, aiLimit)
	g.DELETE("/chats/:id", h.DeleteChat)
}

// StartChat opens a conversation with the first user message and the tutor's reply
func (h *ChatHandler) StartChat(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.ChatMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	message := strings.TrimSpace(req.Message)

	ctx := c.Request().Context()
	reply, err := h.ai.Tutor(ctx, nil, message)
	if err != nil {
		return err
	}

	chat := &models.Chat{
		UserID:   user.ID,
		Title:    chatTitle(message),
		Messages: exchange(message, reply),
	}
	if err := h.chatRepository.CreateChat(ctx, chat); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, chat)
}

// GetChats lists the user's conversations without their messages
func (h *ChatHandler) GetChats(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	chats, err := h.chatRepository.GetChats(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) GetChat(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "chat")
	if err != nil {
		return err
	}
	chat, err := h.chatRepository.GetChat(c.Request().Context(), id, user.ID)
	if err != nil {
		return notFound(err, "Chat not found")
	}
	return c.JSON(http.StatusOK, chat)
}

// SendMessage sends the next user message. The message and the tutor's reply
// are appended together, so a failed reply leaves the chat untouched.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "chat")
	if err != nil {
		return err
	}

	var req models.ChatMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	message := strings.TrimSpace(req.Message)

	ctx := c.Request().Context()
	chat, err := h.chatRepository.GetChat(ctx, id, user.ID)
	if err != nil {
		return notFound(err, "Chat not found")
	}

	reply, err := h.ai.Tutor(ctx, chat.Messages, message)
	if err != nil {
		return err
	}

	chat, err = h.chatRepository.AppendMessages(ctx, id, user.ID, exchange(message, reply)...)
	if err != nil {
		return notFound(err, "Chat not found")
	}
	return c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) DeleteChat(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "chat")
	if err != nil {
		return err
	}
	if err := h.chatRepository.DeleteChat(c.Request().Context(), id, user.ID); err != nil {
		return notFound(err, "Chat not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Chat deleted successfully"})
}

func exchange(message, reply string) []models.ChatMessage {
	now := time.Now()
	return []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: message, CreatedAt: now},
		{Role: models.ChatRoleTutor, Content: reply, CreatedAt: now},
	}
}

// chatTitle is the first line of the opening message, cut to chatTitleLength runes.
func chatTitle(message string) string {
	title := strings.TrimSpace(strings.SplitN(message, "\n", 2)[0])
	if utf8.RuneCountInString(title) <= chatTitleLength {
		return title
	}
	return string([]rune(title)[:chatTitleLength]) + "..."
}
