// Package llm wraps the external language-model boundary: translating
// free-form command text into structured commands, and generating summary
// prose.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sllt-wei/plugin-summary/internal/config"
)

// ErrSummarizer indicates the summarizer produced no usable output or the
// call failed outright. Failed attempts do not consume the cooldown.
var ErrSummarizer = errors.New("summarizer failed")

// Result is the outcome of one summarization call.
type Result struct {
	Content          string
	CompletionTokens int
	TotalTokens      int
}

// Translator converts free-form command text into the raw text expected to
// contain a structured command.
type Translator interface {
	Translate(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Summarizer generates summary prose for a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, userText string) (Result, error)
}

// Client implements Translator and Summarizer against an OpenAI-compatible
// API.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates a client from the provider configuration.
func NewClient(cfg config.OpenAIConfig, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *Client) Translate(ctx context.Context, systemPrompt, userText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty translator response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Summarize(ctx context.Context, systemPrompt, userText string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		c.logger.WithError(err).Error("summarize call failed")
		return Result{}, ErrSummarizer
	}
	if len(resp.Choices) == 0 {
		return Result{}, ErrSummarizer
	}

	result := Result{
		Content:          resp.Choices[0].Message.Content,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	c.logger.WithFields(logrus.Fields{
		"total_tokens":      result.TotalTokens,
		"completion_tokens": result.CompletionTokens,
	}).Debug("summarize call completed")
	return result, nil
}
