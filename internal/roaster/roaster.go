// Package roaster sends a screenshot to the model with the roast persona prompt.
package roaster

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/storage"
)

//go:embed prompts/roast.md
var rawPrompt string

// Prompt is the fixed persona instruction sent as the system prompt
var Prompt = strings.TrimSpace(rawPrompt)

const (
	mediaTypePNG = "image/png"
	temperature  = 0.999
	maxTokens    = 1024
)

// Critic produces raw critique text for a screenshot
type Critic interface {
	Critique(ctx context.Context, img image.Image) (string, error)
}

// Config configures the Anthropic backed critic
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// AnthropicCritic implements Critic with one Messages API request per call
type AnthropicCritic struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicCritic creates a critic. SDK retries are disabled so each
// critique is exactly one request.
func NewAnthropicCritic(cfg Config) *AnthropicCritic {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaude_3_Haiku_20240307)
	}
	t := cfg.Timeout
	if t <= 0 {
		t = 90 * time.Second
	}

	return &AnthropicCritic{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: t,
	}
}

// Critique encodes img as base64 PNG, sends it with the persona prompt and
// returns the text of the first text block in the reply.
func (c *AnthropicCritic) Critique(ctx context.Context, img image.Image) (string, error) {
	encoded, err := storage.EncodePNGBase64(img)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: Prompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewImageBlockBase64(mediaTypePNG, encoded)),
		},
	}

	start := time.Now()
	guard := timeout.New[*anthropic.Message](timeout.Config{DefaultTimeout: c.timeout})
	msg, err := guard.Execute(ctx, c.timeout, func(ctx context.Context) (*anthropic.Message, error) {
		return c.client.Messages.New(ctx, params)
	})
	if err != nil {
		return "", classifyError(err)
	}

	text, ok := firstText(msg)
	if !ok {
		return "", apperrors.NewModelRequestError("model reply contained no text", nil)
	}

	logger.WithFields(logrus.Fields{
		"model":         c.model,
		"duration_ms":   time.Since(start).Milliseconds(),
		"output_tokens": msg.Usage.OutputTokens,
	}).Debug("Model critique received")

	return text, nil
}

func firstText(msg *anthropic.Message) (string, bool) {
	if msg == nil {
		return "", false
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, true
		}
	}
	return "", false
}

func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apperrors.NewModelRequestError(
			fmt.Sprintf("model API returned status %d", apiErr.StatusCode), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewModelRequestError("model request timed out", err)
	}
	return apperrors.NewModelRequestError("model request failed", err)
}
