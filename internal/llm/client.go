// Package llm turns an assembled thread into prompts for a language model and
// returns display-ready text. It is the only package that talks to Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/colthorp/threadsum-go/internal/forum"
	"go.uber.org/zap"
)

// Fixed replies for inputs that never reach the model.
const (
	NoTextReply     = "No text provided to summarize."
	NoThreadReply   = "No thread content available to answer questions."
	NoQuestionReply = "No question provided."
)

// Model is the generation backend.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	CountTokens(ctx context.Context, prompt string) (int, error)
}

// Client summarizes threads and answers questions about them.
type Client struct {
	model  Model
	logger *zap.Logger
	now    func() time.Time
}

// NewClient wraps a model. A nil logger discards output.
func NewClient(model Model, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		model:  model,
		logger: logger.Named("llm"),
		now:    time.Now,
	}
}

// Summarize asks the model for a summary, optionally focused on keywords.
func (c *Client) Summarize(ctx context.Context, msgs []forum.Message, keywords []string) (string, error) {
	if len(msgs) == 0 {
		return NoTextReply, nil
	}
	prompt := SummaryPrompt(msgs, keywords, c.now())
	c.logger.Debug("summarizing", zap.Int("messages", len(msgs)), zap.Int("prompt_chars", len(prompt)), zap.Strings("keywords", keywords))
	text, err := c.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return text, nil
}

// CountTokens estimates the token count of the summarization input.
func (c *Client) CountTokens(ctx context.Context, msgs []forum.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, errors.New("no text data to count tokens for")
	}
	n, err := c.model.CountTokens(ctx, TokenPrompt(msgs, c.now()))
	if err != nil {
		return 0, fmt.Errorf("token count estimation failed: %w", err)
	}
	return n, nil
}

// Answer asks the model a question about the thread.
func (c *Client) Answer(ctx context.Context, msgs []forum.Message, question string) (string, error) {
	if len(msgs) == 0 {
		return NoThreadReply, nil
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return NoQuestionReply, nil
	}
	c.logger.Debug("answering", zap.String("question", question))
	text, err := c.model.Generate(ctx, QuestionPrompt(msgs, question, c.now()))
	if err != nil {
		return "", fmt.Errorf("answering failed: %w", err)
	}
	return text, nil
}

type modelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ListModels returns the models the backend can generate with.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	l, ok := c.model.(modelLister)
	if !ok {
		return nil, errors.New("model listing is not supported by this backend")
	}
	return l.ListModels(ctx)
}
