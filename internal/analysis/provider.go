package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ErrMissingAPIKey is returned on every call when no credential is configured.
var ErrMissingAPIKey = &ProviderError{Op: "configure", Err: errors.New("OPENAI_API_KEY is not set")}

// ProviderError describes a failed call to the text-generation provider.
// The gateway absorbs it into a fallback result.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completer sends a chat-style request and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIClient talks to an OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	http   *resty.Client
	apiKey string
	model  string
	logger *logrus.Logger
}

var _ Completer = (*OpenAIClient)(nil)

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewOpenAIClient(cfg ClientConfig, logger *logrus.Logger) *OpenAIClient {
	if logger == nil {
		logger = logrus.New()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &OpenAIClient{
		http:   client,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		logger: logger,
	}
}

// Complete checks the credential lazily so the service can start without one.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	var result chatCompletionResponse
	var apiErr apiErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(chatCompletionRequest{
			Model:       c.model,
			Messages:    req.Messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", &ProviderError{Op: "request", Err: err}
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode(),
			"error_type":  apiErr.Error.Type,
		}).Warn("Provider returned an error response")
		return "", &ProviderError{Op: "request", StatusCode: resp.StatusCode(), Err: errors.New(msg)}
	}

	if len(result.Choices) == 0 {
		return "", &ProviderError{Op: "decode", StatusCode: resp.StatusCode(), Err: errors.New("response has no choices")}
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
