package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/anonto42/studynest/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// NoteHandler handles HTTP requests related to notes
type NoteHandler struct {
	noteRepository repositories.NoteRepository
	uploader       *storage.Uploader
}

// NewNoteHandler creates a new NoteHandler
func NewNoteHandler(noteRepo repositories.NoteRepository, uploader *storage.Uploader) *NoteHandler {
	return &NoteHandler{
		noteRepository: noteRepo,
		uploader:       uploader,
	}
}

// RegisterNoteRoutes registers note-related routes
func (h *NoteHandler) RegisterNoteRoutes(g *echo.Group, uploadLimit echo.MiddlewareFunc) {
	g.POST("/notes", h.CreateNote, uploadLimit)
	g.GET("/notes", h.GetNotes)
	g.GET("/notes/:id", h.GetNote)
	g.PUT("/notes/:id", h.UpdateNote, uploadLimit)
	g.DELETE("/notes/:id", h.DeleteNote)
}

// CreateNote creates a note, storing the optional "file" part as its attachment
func (h *NoteHandler) CreateNote(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.NoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	attachment, err := h.attachment(c)
	if err != nil {
		return err
	}

	note := &models.Note{
		UserID:  user.ID,
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
		Tags:    req.Tags,
	}
	if attachment != nil {
		note.Attachment = *attachment
	}
	if err := h.noteRepository.CreateNote(c.Request().Context(), note); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

// GetNotes lists the user's notes, newest first
func (h *NoteHandler) GetNotes(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	notes, err := h.noteRepository.GetNotes(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *NoteHandler) GetNote(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "note")
	if err != nil {
		return err
	}
	note, err := h.noteRepository.GetNote(c.Request().Context(), id, user.ID)
	if err != nil {
		return notFound(err, "Note not found")
	}
	return c.JSON(http.StatusOK, note)
}

// UpdateNote replaces a note's fields. A new file replaces the old attachment.
func (h *NoteHandler) UpdateNote(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "note")
	if err != nil {
		return err
	}

	var req models.NoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	req.Title = strings.TrimSpace(req.Title)

	attachment, err := h.attachment(c)
	if err != nil {
		return err
	}

	note, err := h.noteRepository.UpdateNote(c.Request().Context(), id, user.ID, req, attachment)
	if err != nil {
		return notFound(err, "Note not found")
	}
	return c.JSON(http.StatusOK, note)
}

func (h *NoteHandler) DeleteNote(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id", "note")
	if err != nil {
		return err
	}
	if err := h.noteRepository.DeleteNote(c.Request().Context(), id, user.ID); err != nil {
		return notFound(err, "Note not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Note deleted successfully"})
}

// attachment uploads the multipart "file" part, if any.
func (h *NoteHandler) attachment(c echo.Context) (*models.Attachment, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid file upload")
	}
	return h.uploader.Upload(c.Request().Context(), fh, "notes", storage.DocumentTypes)
}
