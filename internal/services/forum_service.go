// Package services holds the business logic that spans several repositories.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/anonto42/studynest/backend/internal/notify"
	"github.com/anonto42/studynest/backend/internal/repositories"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AnswerDrafter writes the automatic answer for a new question.
type AnswerDrafter interface {
	AnswerQuestion(ctx context.Context, question string) (string, error)
}

// QuestionDetail is a question with its answers, best answer first.
type QuestionDetail struct {
	models.Question
	Answers []models.Answer `json:"answers"`
}

type ForumService struct {
	questions repositories.QuestionRepository
	answers   repositories.AnswerRepository
	drafter   AnswerDrafter
	publisher notify.Publisher
	logger    *zap.Logger
}

func NewForumService(
	questions repositories.QuestionRepository,
	answers repositories.AnswerRepository,
	drafter AnswerDrafter,
	publisher notify.Publisher,
	logger *zap.Logger,
) *ForumService {
	return &ForumService{
		questions: questions,
		answers:   answers,
		drafter:   drafter,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateQuestion stores the question, attaches an AI drafted answer and
// announces the question to every other user. A failed AI draft is logged
// and skipped. When the announcement cannot be handed off the question is
// still returned together with a PartialFanout error.
func (s *ForumService) CreateQuestion(ctx context.Context, actor *models.User, text string) (*models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("Question text is required",
			apperrors.FieldError{Field: "text", Error: "text is required"})
	}

	question := &models.Question{Text: text, UserID: actor.ID}
	if err := s.questions.CreateQuestion(ctx, question); err != nil {
		return nil, errors.Wrap(err, "failed to create question")
	}

	s.draftAnswer(ctx, question)

	event := models.FanoutEvent{
		ID:         primitive.NewObjectID(),
		Type:       models.NotificationTypeQuestion,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		QuestionID: &question.ID,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("question fan-out failed",
			zap.String("question_id", question.ID.Hex()),
			zap.Error(err),
		)
		return question, apperrors.PartialFanout(err)
	}
	return question, nil
}

func (s *ForumService) draftAnswer(ctx context.Context, question *models.Question) {
	content, err := s.drafter.AnswerQuestion(ctx, question.Text)
	if err != nil {
		s.logger.Warn("AI answer skipped",
			zap.String("question_id", question.ID.Hex()),
			zap.Error(err),
		)
		return
	}

	answer := &models.Answer{
		QuestionID: question.ID,
		Role:       models.AnswerRoleAI,
		Content:    content,
	}
	if err := s.answers.CreateAnswer(ctx, answer); err != nil {
		s.logger.Error("failed to store AI answer",
			zap.String("question_id", question.ID.Hex()),
			zap.Error(err),
		)
	}
}

// AddAnswer stores a human answer tagged with the actor's role and announces
// it to every other user.
func (s *ForumService) AddAnswer(ctx context.Context, actor *models.User, questionID primitive.ObjectID, content string) (*models.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("Answer content is required",
			apperrors.FieldError{Field: "content", Error: "content is required"})
	}

	role, err := models.AnswerRoleFor(actor.Role)
	if err != nil {
		return nil, apperrors.Forbidden("Your account cannot answer questions")
	}

	if _, err := s.questions.GetQuestionByID(ctx, questionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Question not found")
		}
		return nil, errors.Wrap(err, "failed to load question")
	}

	userID := actor.ID
	answer := &models.Answer{
		QuestionID: questionID,
		UserID:     &userID,
		Role:       role,
		Content:    content,
	}
	if err := s.answers.CreateAnswer(ctx, answer); err != nil {
		return nil, errors.Wrap(err, "failed to create answer")
	}

	event := models.FanoutEvent{
		ID:         primitive.NewObjectID(),
		Type:       models.NotificationTypeAnswer,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		QuestionID: &answer.QuestionID,
		AnswerID:   &answer.ID,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("answer fan-out failed",
			zap.String("answer_id", answer.ID.Hex()),
			zap.Error(err),
		)
		return answer, apperrors.PartialFanout(err)
	}
	return answer, nil
}

func (s *ForumService) ListQuestions(ctx context.Context, skip, limit int64) ([]models.Question, error) {
	return s.questions.GetQuestions(ctx, skip, limit)
}

func (s *ForumService) GetQuestion(ctx context.Context, id primitive.ObjectID) (*QuestionDetail, error) {
	question, err := s.questions.GetQuestionByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Question not found")
		}
		return nil, err
	}
	answers, err := s.answers.GetAnswersByQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return &QuestionDetail{Question: *question, Answers: answers}, nil
}

// ListAnswers returns the answers of a question. A deleted question has none.
func (s *ForumService) ListAnswers(ctx context.Context, questionID primitive.ObjectID) ([]models.Answer, error) {
	return s.answers.GetAnswersByQuestion(ctx, questionID)
}

// DeleteQuestion deletes the actor's own question after all of its answers.
// Notifications already delivered keep pointing at the deleted question.
func (s *ForumService) DeleteQuestion(ctx context.Context, actor *models.User, questionID primitive.ObjectID) error {
	question, err := s.questions.GetQuestionByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Question not found")
		}
		return err
	}
	if question.UserID != actor.ID {
		return apperrors.Forbidden("You can only delete your own questions")
	}

	deleted, err := s.answers.DeleteAnswersByQuestion(ctx, questionID)
	if err != nil {
		return errors.Wrap(err, "failed to delete answers")
	}
	if err := s.questions.DeleteQuestion(ctx, questionID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return errors.Wrap(err, "failed to delete question")
	}

	s.logger.Info("question deleted",
		zap.String("question_id", questionID.Hex()),
		zap.Int64("answers_deleted", deleted),
	)
	return nil
}

// DeleteAnswer deletes the actor's own answer. AI answers cannot be deleted
// by anyone.
func (s *ForumService) DeleteAnswer(ctx context.Context, actor *models.User, answerID primitive.ObjectID) error {
	answer, err := s.answers.GetAnswerByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Answer not found")
		}
		return err
	}
	if answer.Role == models.AnswerRoleAI {
		return apperrors.Forbidden("AI answers cannot be deleted")
	}
	if !answer.OwnedBy(actor.ID) {
		return apperrors.Forbidden("You can only delete your own answers")
	}

	if err := s.answers.DeleteAnswer(ctx, answerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Answer not found")
		}
		return errors.Wrap(err, "failed to delete answer")
	}
	return nil
}

// MarkBestAnswer flags one answer of a question as the best one, clearing
// any previous choice. Only teachers may do this.
func (s *ForumService) MarkBestAnswer(ctx context.Context, actor *models.User, answerID primitive.ObjectID) (*models.Answer, error) {
	switch actor.Role {
	case models.RoleTeacher:
	case models.RoleStudent, models.RoleAdmin:
		return nil, apperrors.Forbidden("Only teachers can mark the best answer")
	default:
		return nil, apperrors.Forbidden("Unknown role")
	}

	answer, err := s.answers.GetAnswerByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Answer not found")
		}
		return nil, err
	}
	if err := s.answers.SetBestAnswer(ctx, answer.QuestionID, answer.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Answer not found")
		}
		return nil, errors.Wrap(err, "failed to mark best answer")
	}
	answer.IsBest = true
	return answer, nil
}
