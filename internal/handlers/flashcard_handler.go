package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/studynest/backend/internal/ai"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const defaultFlashcardCount = 5

// FlashcardHandler handles HTTP requests related to flashcards
type FlashcardHandler struct {
	flashcardRepository repositories.FlashcardRepository
	ai                  *ai.Client
	logger              *zap.Logger
}

// NewFlashcardHandler creates a new FlashcardHandler
func NewFlashcardHandler(flashcardRepo repositories.FlashcardRepository, aiClient *ai.Client, logger *zap.Logger) *FlashcardHandler {
	return &FlashcardHandler{
		flashcardRepository: flashcardRepo,
		ai:                  aiClient,
		logger:              logger,
	}
}

// RegisterFlashcardRoutes registers flashcard-related routes. aiLimit throttles generation.
func (h *FlashcardHandler) RegisterFlashcardRoutes(g *echo.Group, aiLimit echo.MiddlewareFunc) {
	g.POST("/flashcards", h.CreateFlashcard)
	g.POST("/flashcards/generate", h.GenerateFlashcards, aiLimit)
	g.GET("/flashcards", h.GetFlashcards)
	g.PUT("/flashcards/:id", h.UpdateFlashcard)
	g.DELETE("/flashcards/:id", h.DeleteFlashcard)
}

func (h *FlashcardHandler) CreateFlashcard(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.FlashcardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	card := &models.Flashcard{
		UserID:   user.ID,
		Question: strings.TrimSpace(req.Question),
		Answer:   strings.TrimSpace(req.Answer),
		Topic:    strings.TrimSpace(req.Topic),
	}
	if err := h.flashcardRepository.CreateFlashcard(c.Request().Context(), card); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, card)
}

// GenerateFlashcards asks the AI for cards on a topic and stores them in one batch
func (h *FlashcardHandler) GenerateFlashcards(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.GenerateFlashcardsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Count == 0 {
		req.Count = defaultFlashcardCount
	}
	topic := strings.TrimSpace(req.Topic)

	ctx := c.Request().Context()
	generated, err := h.ai.GenerateFlashcards(ctx, topic, req.Count)
	if err != nil {
		return err
	}

	cards := make([]models.Flashcard, len(generated))
	for i, g := range generated {
		cards[i] = models.Flashcard{
			UserID:      user.ID,
			Question:    g.Question,
			Answer:      g.Answer,
			Topic:       topic,
			AIGenerated: true,
		}
	}
	if err := h.flashcardRepository.CreateFlashcards(ctx, cards); err != nil {
		return err
	}

	h.logger.Info("flashcards generated", zap.String("user_id", user.ID.Hex()), zap.Int("count", len(cards)))
	return c.JSON(http.StatusCreated, echo.Map{"flashcards": cards})
}

func (h *FlashcardHandler) GetFlashcards(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	cards, err := h.flashcardRepository.GetFlashcards(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cards)
}

func (h *FlashcardHandler) UpdateFlashcard(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "flashcard")
	if err != nil {
		return err
	}

	var req models.FlashcardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	card, err := h.flashcardRepository.UpdateFlashcard(c.Request().Context(), id, user.ID, req)
	if err != nil {
		return notFound(err, "Flashcard not found")
	}
	return c.JSON(http.StatusOK, card)
}

func (h *FlashcardHandler) DeleteFlashcard(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "flashcard")
	if err != nil {
		return err
	}
	if err := h.flashcardRepository.DeleteFlashcard(c.Request().Context(), id, user.ID); err != nil {
		return notFound(err, "Flashcard not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Flashcard deleted successfully"})
}
