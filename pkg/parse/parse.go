package parse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"taskclaw/pkg/task"
)

// Reason categorizes a parsing failure.
type Reason string

const (
	ReasonMalformed   Reason = "malformed"
	ReasonTimeout     Reason = "timeout"
	ReasonRateLimited Reason = "rate_limited"
)

// Error is a categorized parsing failure.
type Error struct {
	Reason Reason
	Detail string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("parse %s: %s", e.Reason, e.Detail)
}

// ReasonFromError returns the failure reason when err is a parse error, or
// ReasonMalformed otherwise.
func ReasonFromError(err error) Reason {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Reason
	}

	return ReasonMalformed
}

// Backend produces one schema-constrained completion for a sanitized prompt
// pair. Implementations must return *Error for categorized failures.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Options carries per-request context for a parse call.
type Options struct {
	Locale        string
	KnownProjects []string
}

// Parser turns free-form text into a canonical task via an AI backend.
//
// Retry discipline: transient failures (timeout, rate limit) are retried with
// exponential backoff up to MaxAttempts total calls. A structurally invalid
// reply is retried once with a stricter re-prompt, then surfaces Malformed.
type Parser struct {
	backend     Backend
	filter      *ProfanityFilter
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(context.Context, time.Duration) error
	log         *slog.Logger
}

// ParserConfig bounds the retry loop.
type ParserConfig struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	ExtraProfanity []string
}

func NewParser(backend Backend, cfg ParserConfig, log *slog.Logger) (*Parser, error) {
	if backend == nil {
		return nil, errors.New("parser backend is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}

	return &Parser{
		backend:     backend,
		filter:      NewProfanityFilter(cfg.ExtraProfanity...),
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BackoffBase,
		sleep:       sleepContext,
		log:         log.With("component", "parse.parser"),
	}, nil
}

// SetSleep replaces the backoff sleep, used by tests to assert the retry
// count and backoff shape without wall-clock delay.
func (p *Parser) SetSleep(sleep func(context.Context, time.Duration) error) {
	if sleep != nil {
		p.sleep = sleep
	}
}

// Parse transforms text into a validated canonical task. The raw input is
// profanity-masked before anything leaves the process.
func (p *Parser) Parse(ctx context.Context, text string, opts Options) (task.Task, error) {
	masked := p.filter.Mask(text)
	if utf8.RuneCountInString(strings.TrimSpace(masked)) < 2 {
		return task.Task{}, &Error{Reason: ReasonMalformed, Detail: "message is too short"}
	}

	prompt := systemPrompt(opts)
	transientLeft := p.maxAttempts - 1
	strictRetried := false
	delay := p.baseDelay

	for {
		raw, err := p.backend.Complete(ctx, prompt, masked)
		if err != nil {
			reason := ReasonFromError(err)
			if (reason == ReasonTimeout || reason == ReasonRateLimited) && transientLeft > 0 {
				transientLeft--
				p.log.Debug("Transient parse failure, backing off",
					"reason", string(reason),
					"delay", delay.String(),
				)
				if serr := p.sleep(ctx, delay); serr != nil {
					return task.Task{}, &Error{Reason: reason, Detail: "canceled during backoff"}
				}
				delay *= 2
				continue
			}

			var perr *Error
			if errors.As(err, &perr) {
				return task.Task{}, perr
			}
			return task.Task{}, &Error{Reason: ReasonMalformed, Detail: err.Error()}
		}

		parsed, derr := decodeTask(raw)
		if derr != nil {
			if !strictRetried {
				strictRetried = true
				prompt = strictSystemPrompt(opts)
				p.log.Debug("Structurally invalid reply, re-prompting strictly", "error", derr.Error())
				continue
			}
			return task.Task{}, &Error{Reason: ReasonMalformed, Detail: derr.Error()}
		}

		return parsed, nil
	}
}

// decodeTask unmarshals and validates one backend reply.
func decodeTask(raw string) (task.Task, error) {
	var decoded task.Task
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &decoded); err != nil {
		return task.Task{}, fmt.Errorf("decode task payload: %w", err)
	}

	decoded = decoded.Normalize()
	if !decoded.Valid() {
		// An empty title after cleanup is malformed, never silently defaulted.
		return task.Task{}, errors.New("task content is empty after cleanup")
	}

	return decoded, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
