package parse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"taskclaw/pkg/config"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// taskSchema is the JSON schema sent with every completion request. Strict
// mode requires every property listed and no extras; optional fields are
// nullable instead.
var taskSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required": []string{
		"content", "description", "due_string", "priority",
		"project_name", "labels", "duration_minutes",
	},
	"properties": map[string]any{
		"content":      map[string]any{"type": "string", "description": "Task title"},
		"description":  map[string]any{"type": []string{"string", "null"}},
		"due_string":   map[string]any{"type": []string{"string", "null"}},
		"priority":     map[string]any{"type": []string{"integer", "null"}, "minimum": 1, "maximum": 4},
		"project_name": map[string]any{"type": []string{"string", "null"}},
		"labels": map[string]any{
			"type":  []string{"array", "null"},
			"items": map[string]any{"type": "string"},
		},
		"duration_minutes": map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
	},
}

// OpenAIBackend satisfies Backend with schema-constrained chat completions.
type OpenAIBackend struct {
	client osdk.Client
	model  string
	log    *slog.Logger
}

func NewOpenAIBackend(cfg config.ParserConfig, log *slog.Logger) (*OpenAIBackend, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("parser.api_key is required or OPENAI_API_KEY must be set")
	}
	if log == nil {
		log = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second; timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &OpenAIBackend{
		client: osdk.NewClient(opts...),
		model:  cfg.Model,
		log:    log.With("component", "parse.openai"),
	}, nil
}

func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	startedAt := time.Now()

	response, err := b.client.Chat.Completions.New(ctx, osdk.ChatCompletionNewParams{
		Model: osdk.ChatModel(b.model),
		Messages: []osdk.ChatCompletionMessageParamUnion{
			osdk.SystemMessage(systemPrompt),
			osdk.UserMessage(userText),
		},
		ResponseFormat: osdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &osdk.ResponseFormatJSONSchemaParam{
				JSONSchema: osdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "canonical_task",
					Schema: taskSchema,
					Strict: osdk.Bool(true),
				},
			},
		},
		Temperature: osdk.Float(0.3),
	})
	if err != nil {
		b.log.Debug("Completion request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return "", classifyBackendError(err)
	}

	if len(response.Choices) == 0 {
		return "", &Error{Reason: ReasonMalformed, Detail: "completion returned no choices"}
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", &Error{Reason: ReasonMalformed, Detail: "completion returned empty content"}
	}

	b.log.Debug("Completion request completed",
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"response_length", len(content),
	)

	return content, nil
}

func classifyBackendError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Reason: ReasonTimeout, Detail: "completion request timed out"}
	}

	var apiErr *osdk.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return &Error{Reason: ReasonRateLimited, Detail: "backend rate limit"}
		case apiErr.StatusCode >= 500:
			// Provider-side hiccups behave like timeouts for retry purposes.
			return &Error{Reason: ReasonTimeout, Detail: apiErr.Error()}
		}
	}

	return &Error{Reason: ReasonMalformed, Detail: err.Error()}
}
