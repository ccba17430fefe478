// Package insight wraps an OpenAI-compatible chat completion API to produce
// short analyst-style explanations for why a video is performing well.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/danylo/tubegems/internal/logger"
	"github.com/danylo/tubegems/internal/prompts"
	"github.com/go-resty/resty/v2"
)

// Sampling constants are fixed by design, not caller-supplied: the insight is
// a bounded 1-2 sentence explanation regardless of who asks for it.
const (
	maxTokens   = 100
	temperature = 0.7

	// errPrefix marks a failed generation. The string is returned as data so
	// the pipeline never needs per-item error handling for this stage.
	errPrefix = "Error generating insight: "

	maxRetryElapsed = 30 * time.Second
)

// Generator produces insights via an OpenAI-compatible completion endpoint.
// Construct once at startup and share across requests.
type Generator struct {
	client   *resty.Client
	model    string
	endpoint string
	logger   *logger.Logger
}

// Config holds configuration for the generator.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewGenerator creates a new insight generator.
// Parameters:
//   - cfg: model, credentials, and endpoint configuration.
//   - log: logger instance; nil uses the default logger.
// Returns:
//   - *Generator: initialized generator.
func NewGenerator(cfg *Config, log *logger.Logger) *Generator {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	if log == nil {
		log = logger.GetDefault()
	}

	return &Generator{
		client:   client,
		model:    cfg.Model,
		endpoint: strings.TrimRight(baseURL, "/") + "/chat/completions",
		logger:   log,
	}
}

// Model returns the model name being used.
func (g *Generator) Model() string {
	return g.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate produces an insight for a video from its title and assembled
// context (description plus transcript). Failures are folded into the return
// value as an error-prefixed string; this method never reports an error to
// the caller, by contract.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - title: video title.
//   - contextText: description and transcript joined by the caller.
// Returns:
//   - string: generated insight, or an "Error generating insight: ..." string.
func (g *Generator) Generate(ctx context.Context, title, contextText string) string {
	text, err := g.complete(ctx, title, contextText)
	if err != nil {
		g.logger.WithError(err).Warn("Insight generation failed, returning error placeholder")
		return errPrefix + err.Error()
	}
	return text
}

// IsErrorInsight reports whether an insight string is a failure placeholder
// rather than generated content.
func IsErrorInsight(s string) bool {
	return strings.HasPrefix(s, errPrefix)
}

// complete performs the completion call with exponential backoff. Client
// errors (4xx) are permanent; everything else is retried until the elapsed
// budget runs out.
func (g *Generator) complete(ctx context.Context, title, contextText string) (string, error) {
	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.InsightSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(prompts.InsightUserPrompt, title, contextText)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var content string

	op := func() error {
		var resp chatResponse
		httpResp, err := g.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&resp).
			Post(g.endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
			msg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
			if resp.Error != nil {
				msg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
			}
			err := fmt.Errorf("completion API returned error: %s", msg)
			if httpResp.StatusCode() >= 400 && httpResp.StatusCode() < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		if resp.Error != nil {
			return backoff.Permanent(fmt.Errorf("completion API error: %s", resp.Error.Message))
		}

		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices in completion response")
		}

		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxRetryElapsed

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}
