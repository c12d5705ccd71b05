package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"taskclaw/pkg/auth"
	"taskclaw/pkg/config"
	"taskclaw/pkg/parse"
	"taskclaw/pkg/processor"
	"taskclaw/pkg/taskapi"
	"taskclaw/pkg/transcribe"
	"taskclaw/pkg/transcribe/deepgram"
	"taskclaw/pkg/transcribe/whisper"
)

// pipeline bundles the wired processing components shared by subcommands.
type pipeline struct {
	chain *processor.Chain
	tasks *taskapi.Client
	creds auth.Source
}

// buildPipeline wires the processor chain from configuration. The audio
// processor is only included when withAudio is set; the text-only debug
// commands run without transcription credentials.
func buildPipeline(cfg *config.Config, withAudio bool, log *slog.Logger) (*pipeline, error) {
	tasks, err := taskapi.NewClient(cfg.TaskAPI, log)
	if err != nil {
		return nil, fmt.Errorf("configure task api client: %w", err)
	}

	backend, err := parse.NewOpenAIBackend(cfg.Parser, log)
	if err != nil {
		return nil, fmt.Errorf("configure parser backend: %w", err)
	}

	parser, err := parse.NewParser(backend, parse.ParserConfig{
		MaxAttempts:    cfg.Parser.MaxAttempts,
		BackoffBase:    time.Duration(cfg.Parser.BackoffBaseMillis) * time.Millisecond,
		ExtraProfanity: cfg.Parser.ExtraProfanity,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("configure parser: %w", err)
	}

	text := processor.NewTextProcessor(parser, tasks, log)

	processors := []processor.Processor{processor.NewCommandProcessor()}
	if withAudio {
		transcriber, err := buildTranscriber(cfg.Transcription, log)
		if err != nil {
			return nil, err
		}
		processors = append(processors, processor.NewAudioProcessor(transcriber, text, log))
	}
	processors = append(processors, text)

	return &pipeline{
		chain: processor.NewChain(log, processors...),
		tasks: tasks,
		creds: auth.NewStaticSource(cfg.Auth),
	}, nil
}

// buildTranscriber assembles the primary/fallback transcription pair. The
// fallback is optional; without a key the pipeline runs primary-only.
func buildTranscriber(cfg config.TranscriptionConfig, log *slog.Logger) (*transcribe.Pipeline, error) {
	primary, err := deepgram.New(cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("configure primary transcriber: %w", err)
	}

	var fallback transcribe.Provider
	if cfg.Fallback.APIKey != "" {
		whisperClient, err := whisper.New(cfg.Fallback)
		if err != nil {
			return nil, fmt.Errorf("configure fallback transcriber: %w", err)
		}
		fallback = whisperClient
	}

	return transcribe.NewPipeline(
		primary,
		fallback,
		time.Duration(cfg.MaxDurationSeconds)*time.Second,
		cfg.MaxFileSizeBytes,
		log,
	)
}
