package whisper

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"taskclaw/pkg/config"
	"taskclaw/pkg/message"
	"taskclaw/pkg/transcribe"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const providerName = "whisper"

// Client is the fallback transcription provider. It speaks the OpenAI audio
// transcription API, so BaseURL can point at a local whisper-compatible
// server instead of the hosted endpoint.
type Client struct {
	client osdk.Client
	model  string
}

func New(cfg config.WhisperConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("transcription.fallback.api_key is required or OPENAI_API_KEY must be set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second; timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}

	return &Client{
		client: osdk.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) Transcribe(ctx context.Context, audio message.AudioPayload) (transcribe.Transcript, error) {
	response, err := c.client.Audio.Transcriptions.New(ctx, osdk.AudioTranscriptionNewParams{
		Model: osdk.AudioModel(c.model),
		File:  osdk.File(bytes.NewReader(audio.Data), fileName(audio.MimeType), audio.MimeType),
	})
	if err != nil {
		return transcribe.Transcript{}, classify(err)
	}

	text := strings.TrimSpace(response.Text)
	if text == "" {
		return transcribe.Transcript{}, &transcribe.Error{
			Reason: transcribe.ReasonEmpty, Provider: providerName, Detail: "empty transcript",
		}
	}

	// The basic transcription response carries no confidence or language.
	return transcribe.Transcript{Text: text}, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &transcribe.Error{Reason: transcribe.ReasonTimeout, Provider: providerName, Detail: "request timed out"}
	}

	var apiErr *osdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return &transcribe.Error{
			Reason: transcribe.ReasonInvalidAudio, Provider: providerName,
			Detail: "rejected audio: " + apiErr.Error(),
		}
	}

	return &transcribe.Error{Reason: transcribe.ReasonProviderError, Provider: providerName, Detail: err.Error()}
}

func fileName(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "audio.mp3"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return "audio.m4a"
	case strings.Contains(mimeType, "wav"):
		return "audio.wav"
	default:
		return "audio.ogg"
	}
}
