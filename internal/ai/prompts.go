package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anonto42/studynest/backend/internal/models"
	"github.com/tmc/langchaingo/llms"
)

// MaxFlashcards caps a single generation request.
const MaxFlashcards = 20

const answerSystemPrompt = `You are a patient teacher answering questions on a student forum.
Give a correct, concise answer a student can follow. Use short paragraphs and
plain language. If the question is ambiguous, state your assumption first.`

const tutorSystemPrompt = `You are StudyNest's AI tutor. Help the student understand the material
instead of only giving final answers: explain step by step, ask a short check
question when useful and keep replies focused on the student's topic.`

const flashcardSystemPrompt = `You write study flashcards. Return ONLY a valid JSON array, no markdown,
no explanation. Each element must be {"question": "...", "answer": "..."}.`

// AnswerQuestion drafts the automatic answer attached to a new forum question.
func (c *Client) AnswerQuestion(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, "answer_question", []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, answerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}, llms.WithTemperature(0.3))
}

// Tutor continues a tutoring conversation with the next user message.
func (c *Client) Tutor(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, tutorSystemPrompt))
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == models.ChatRoleTutor {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, m.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, message))
	return c.complete(ctx, "tutor", messages, llms.WithTemperature(0.7))
}

// Card is one generated flashcard.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GenerateFlashcards asks for count cards about topic.
func (c *Client) GenerateFlashcards(ctx context.Context, topic string, count int) ([]Card, error) {
	if count <= 0 {
		count = 10
	}
	if count > MaxFlashcards {
		count = MaxFlashcards
	}

	prompt := fmt.Sprintf(`Generate exactly %d flashcards about: %q.
Return a JSON array with this exact format:
[{"question": "Question text", "answer": "Answer text"}]`, count, topic)

	content, err := c.complete(ctx, "flashcards", []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, flashcardSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(0.5))
	if err != nil {
		return nil, err
	}

	cards, err := ParseCards(content)
	if err != nil {
		return nil, err
	}
	if len(cards) > count {
		cards = cards[:count]
	}
	return cards, nil
}

// ParseCards extracts flashcards from a model reply. Code fences and text
// around the JSON array are ignored, as are cards missing either side.
func ParseCards(content string) ([]Card, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in AI response")
	}

	var raw []Card
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse generated flashcards: %w", err)
	}

	cards := make([]Card, 0, len(raw))
	for _, card := range raw {
		card.Question = strings.TrimSpace(card.Question)
		card.Answer = strings.TrimSpace(card.Answer)
		if card.Question == "" || card.Answer == "" {
			continue
		}
		cards = append(cards, card)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("no valid flashcards generated")
	}
	return cards, nil
}
