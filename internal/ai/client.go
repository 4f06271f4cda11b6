// Package ai wraps the generative text provider used by the forum, the
// flashcard generator and the tutor chat.
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("AI provider is not configured")

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "studynest_ai_requests_total",
		Help: "AI provider calls by operation and result",
	},
	[]string{"operation", "result"}, // result: ok, busy, error
)

// Model is the part of llms.Model the client needs.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	model   Model
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a client for an OpenAI compatible endpoint. Without an API key
// the client is created but every call fails with ErrNotConfigured.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		logger.Warn("AI_API_KEY not set, AI features are disabled")
		return NewWithModel(nil, cfg.Timeout, logger), nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, cfg.Timeout, logger), nil
}

func NewWithModel(model Model, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{model: model, timeout: timeout, logger: logger}
}

func (c *Client) Enabled() bool {
	return c.model != nil
}

// complete sends messages and returns the first choice. Transient provider
// failures come back as apperrors.UpstreamBusy.
func (c *Client) complete(ctx context.Context, operation string, messages []llms.MessageContent, options ...llms.CallOption) (string, error) {
	if c.model == nil {
		requestsTotal.WithLabelValues(operation, "busy").Inc()
		return "", apperrors.UpstreamBusy(ErrNotConfigured)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, messages, options...)
	if err == nil && (resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "") {
		err = errors.New("empty response from AI provider")
	}
	if err != nil {
		if isBusy(err) {
			requestsTotal.WithLabelValues(operation, "busy").Inc()
			c.logger.Warn("AI provider busy", zap.String("operation", operation), zap.Error(err))
			return "", apperrors.UpstreamBusy(err)
		}
		requestsTotal.WithLabelValues(operation, "error").Inc()
		return "", err
	}

	requestsTotal.WithLabelValues(operation, "ok").Inc()
	c.logger.Debug("AI request completed", zap.String("operation", operation), zap.Duration("took", time.Since(start)))
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

var busySignals = []string{
	"429",
	"503",
	"too many requests",
	"rate limit",
	"overloaded",
	"service unavailable",
	"resource_exhausted",
}

// isBusy reports whether err is the provider asking the caller to come back later.
func isBusy(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, signal := range busySignals {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}
