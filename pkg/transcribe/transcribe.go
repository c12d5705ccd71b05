package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskclaw/pkg/message"
)

// Role identifies which provider in the ordered pair produced a transcript.
type Role string

const (
	RolePrimary  Role = "primary"
	RoleFallback Role = "fallback"
)

// Reason categorizes a transcription failure.
type Reason string

const (
	ReasonTimeout       Reason = "timeout"
	ReasonInvalidAudio  Reason = "invalid_audio"
	ReasonProviderError Reason = "provider_error"
	ReasonEmpty         Reason = "empty"
)

// Error is a categorized transcription failure.
type Error struct {
	Reason   Reason
	Provider string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Provider == "" {
		return fmt.Sprintf("transcription %s: %s", e.Reason, e.Detail)
	}

	return fmt.Sprintf("transcription %s (%s): %s", e.Reason, e.Provider, e.Detail)
}

// ReasonFromError returns the failure reason when err is a transcription
// error, or ReasonProviderError otherwise.
func ReasonFromError(err error) Reason {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	return ReasonProviderError
}

// Transcript is one provider's raw output before the pipeline stamps the role.
type Transcript struct {
	Text       string
	Language   string
	Confidence float64
}

// Result is the final transcription outcome. Produced once per audio message
// and never mutated.
type Result struct {
	Text       string
	Provider   Role
	Confidence float64
	Language   string
}

// Provider converts an audio payload into text.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio message.AudioPayload) (Transcript, error)
}

// Pipeline tries the primary provider once and falls back to the secondary
// once on any failure, including an empty transcript. There is no retry
// against the same provider; a transient primary error is a signal to fall
// back, not to wait.
type Pipeline struct {
	primary     Provider
	fallback    Provider
	maxDuration time.Duration
	maxFileSize int64
	log         *slog.Logger
}

// NewPipeline wires the provider pair and the audio acceptance policy.
// fallback may be nil when no secondary provider is configured.
func NewPipeline(primary, fallback Provider, maxDuration time.Duration, maxFileSize int64, log *slog.Logger) (*Pipeline, error) {
	if primary == nil {
		return nil, errors.New("primary transcription provider is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		primary:     primary,
		fallback:    fallback,
		maxDuration: maxDuration,
		maxFileSize: maxFileSize,
		log:         log.With("component", "transcribe.pipeline"),
	}, nil
}

// Transcribe runs the fallback chain for one audio payload.
func (p *Pipeline) Transcribe(ctx context.Context, audio message.AudioPayload) (Result, error) {
	if err := p.admit(audio); err != nil {
		return Result{}, err
	}

	transcript, err := p.attempt(ctx, p.primary, audio)
	if err == nil {
		return stamped(transcript, RolePrimary), nil
	}

	p.log.Warn("Primary transcription failed, falling back",
		"provider", p.primary.Name(),
		"reason", string(ReasonFromError(err)),
	)

	if p.fallback == nil {
		return Result{}, err
	}

	transcript, ferr := p.attempt(ctx, p.fallback, audio)
	if ferr != nil {
		// Surface the last provider's reason per the fallback contract.
		return Result{}, ferr
	}

	return stamped(transcript, RoleFallback), nil
}

// admit rejects audio that exceeds policy before any provider is paid.
func (p *Pipeline) admit(audio message.AudioPayload) error {
	if len(audio.Data) == 0 {
		return &Error{Reason: ReasonInvalidAudio, Detail: "audio payload is empty"}
	}
	if p.maxDuration > 0 && audio.Duration > p.maxDuration {
		return &Error{
			Reason: ReasonInvalidAudio,
			Detail: fmt.Sprintf("audio duration %s exceeds maximum %s", audio.Duration, p.maxDuration),
		}
	}
	if p.maxFileSize > 0 && audio.FileSize > p.maxFileSize {
		return &Error{
			Reason: ReasonInvalidAudio,
			Detail: fmt.Sprintf("audio size %d exceeds maximum %d bytes", audio.FileSize, p.maxFileSize),
		}
	}

	return nil
}

func (p *Pipeline) attempt(ctx context.Context, provider Provider, audio message.AudioPayload) (Transcript, error) {
	startedAt := time.Now()
	transcript, err := provider.Transcribe(ctx, audio)
	if err != nil {
		return Transcript{}, normalizeError(err, provider.Name())
	}

	transcript.Text = strings.TrimSpace(transcript.Text)
	if transcript.Text == "" {
		// A successful call with nothing useful in it still triggers fallback.
		return Transcript{}, &Error{Reason: ReasonEmpty, Provider: provider.Name(), Detail: "empty transcript"}
	}

	p.log.Debug("Transcription completed",
		"provider", provider.Name(),
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"text_length", len(transcript.Text),
		"language", transcript.Language,
	)

	return transcript, nil
}

func normalizeError(err error, provider string) error {
	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Reason: ReasonTimeout, Provider: provider, Detail: "request timed out"}
	}

	return &Error{Reason: ReasonProviderError, Provider: provider, Detail: err.Error()}
}

func stamped(transcript Transcript, role Role) Result {
	return Result{
		Text:       transcript.Text,
		Provider:   role,
		Confidence: transcript.Confidence,
		Language:   transcript.Language,
	}
}
