package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// PlannerHandler handles HTTP requests for the study planner
type PlannerHandler struct {
	plannerRepository repositories.PlannerRepository
}

// NewPlannerHandler creates a new PlannerHandler
func NewPlannerHandler(plannerRepo repositories.PlannerRepository) *PlannerHandler {
	return &PlannerHandler{plannerRepository: plannerRepo}
}

// RegisterPlannerRoutes registers planner-related routes
func (h *PlannerHandler) RegisterPlannerRoutes(g *echo.Group) {
	g.POST("/planner", h.CreateTask)
	g.GET("/planner", h.GetTasks)
	g.PUT("/planner/:id", h.UpdateTask)
	g.DELETE("/planner/:id", h.DeleteTask)
}

func (h *PlannerHandler) CreateTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.PlannerTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task := &models.PlannerTask{
		UserID:      user.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Completed:   req.Completed,
	}
	if err := h.plannerRepository.CreateTask(c.Request().Context(), task); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *PlannerHandler) GetTasks(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	tasks, err := h.plannerRepository.GetTasks(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *PlannerHandler) UpdateTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "task")
	if err != nil {
		return err
	}

	var req models.PlannerTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	req.Title = strings.TrimSpace(req.Title)

	task, err := h.plannerRepository.UpdateTask(c.Request().Context(), id, user.ID, req)
	if err != nil {
		return notFound(err, "Task not found")
	}
	return c.JSON(http.StatusOK, task)
}

func (h *PlannerHandler) DeleteTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "task")
	if err != nil {
		return err
	}
	if err := h.plannerRepository.DeleteTask(c.Request().Context(), id, user.ID); err != nil {
		return notFound(err, "Task not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Task deleted successfully"})
}
