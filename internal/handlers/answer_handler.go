package handlers

import (
	"net/http"

	"github.com/anonto42/studynest/backend/internal/middleware"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AnswerHandler handles HTTP requests related to forum answers
type AnswerHandler struct {
	forum *services.ForumService
}

// NewAnswerHandler creates a new AnswerHandler
func NewAnswerHandler(forum *services.ForumService) *AnswerHandler {
	return &AnswerHandler{forum: forum}
}

// RegisterAnswerRoutes registers answer-related routes
func (h *AnswerHandler) RegisterAnswerRoutes(g *echo.Group) {
	g.POST("/answers/:questionId", h.CreateAnswer)
	g.GET("/answers/:questionId", h.GetAnswers)
	g.DELETE("/answers/:id", h.DeleteAnswer)
	g.PUT("/answers/:id/best", h.MarkBestAnswer, middleware.AuthorizeRoles(models.RoleTeacher))
}

// CreateAnswer answers a question as the authenticated user
func (h *AnswerHandler) CreateAnswer(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	questionID, err := objectIDParam(c, "questionId", "question")
	if err != nil {
		return err
	}

	var req models.CreateAnswerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	answer, err := h.forum.AddAnswer(c.Request().Context(), user, questionID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"answer": answer})
}

// GetAnswers lists a question's answers, best answer first
func (h *AnswerHandler) GetAnswers(c echo.Context) error {
	questionID, err := objectIDParam(c, "questionId", "question")
	if err != nil {
		return err
	}
	answers, err := h.forum.ListAnswers(c.Request().Context(), questionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"answers": answers})
}

func (h *AnswerHandler) DeleteAnswer(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "answer")
	if err != nil {
		return err
	}
	if err := h.forum.DeleteAnswer(c.Request().Context(), user, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Answer deleted successfully"})
}

func (h *AnswerHandler) MarkBestAnswer(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "answer")
	if err != nil {
		return err
	}
	answer, err := h.forum.MarkBestAnswer(c.Request().Context(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"answer": answer})
}
