package handlers

import (
	"net/http"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/services"
	"github.com/labstack/echo/v4"
)

const (
	defaultQuestionPage = 20
	maxQuestionPage     = 100
)

// QuestionHandler handles HTTP requests related to forum questions
type QuestionHandler struct {
	forum *services.ForumService
}

// NewQuestionHandler creates a new QuestionHandler
func NewQuestionHandler(forum *services.ForumService) *QuestionHandler {
	return &QuestionHandler{forum: forum}
}

// RegisterQuestionRoutes registers question-related routes
func (h *QuestionHandler) RegisterQuestionRoutes(g *echo.Group) {
	g.GET("/questions", h.GetQuestions)
	g.POST("/questions", h.CreateQuestion)
	g.POST("/questions/create", h.CreateQuestion)
	g.GET("/questions/:id", h.GetQuestion)
	g.DELETE("/questions/:id", h.DeleteQuestion)
}

// CreateQuestion posts a question, draws an AI answer and notifies everyone else
func (h *QuestionHandler) CreateQuestion(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.CreateQuestionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	question, err := h.forum.CreateQuestion(c.Request().Context(), user, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"question": question})
}

// GetQuestions lists questions newest first
func (h *QuestionHandler) GetQuestions(c echo.Context) error {
	skip := queryInt64(c, "skip", 0, 0)
	limit := queryInt64(c, "limit", defaultQuestionPage, maxQuestionPage)
	if limit == 0 {
		limit = defaultQuestionPage
	}

	questions, err := h.forum.ListQuestions(c.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"questions": questions})
}

// GetQuestion returns a question with its answers
func (h *QuestionHandler) GetQuestion(c echo.Context) error {
	id, err := objectIDParam(c, "id", "question")
	if err != nil {
		return err
	}
	detail, err := h.forum.GetQuestion(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *QuestionHandler) DeleteQuestion(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "question")
	if err != nil {
		return err
	}
	if err := h.forum.DeleteQuestion(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Question deleted successfully"})
}
