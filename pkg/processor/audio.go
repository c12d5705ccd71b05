package processor

import (
	"context"
	"log/slog"

	"taskclaw/pkg/message"
	"taskclaw/pkg/transcribe"
)

// Transcriber converts an audio payload into text, with provider fallback
// behind it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio message.AudioPayload) (transcribe.Result, error)
}

// AudioProcessor transcribes voice/audio/video-note messages and feeds the
// transcript through the text processor's task flow. A transcription failure
// is terminal; it never falls through to the text processor with empty text.
type AudioProcessor struct {
	transcriber Transcriber
	text        *TextProcessor
	log         *slog.Logger
}

func NewAudioProcessor(transcriber Transcriber, text *TextProcessor, log *slog.Logger) *AudioProcessor {
	if log == nil {
		log = slog.Default()
	}

	return &AudioProcessor{
		transcriber: transcriber,
		text:        text,
		log:         log.With("component", "processor.audio"),
	}
}

func (p *AudioProcessor) Name() string {
	return "audio"
}

func (p *AudioProcessor) Process(ctx context.Context, msg message.InboundMessage, pctx Context) Outcome {
	if !msg.Kind.IsAudio() {
		return Skip()
	}
	if msg.Audio == nil {
		return Errorf(ErrorInvalidAudio, "audio message carries no payload")
	}

	result, err := p.transcriber.Transcribe(ctx, *msg.Audio)
	if err != nil {
		if transcribe.ReasonFromError(err) == transcribe.ReasonInvalidAudio {
			return Errorf(ErrorInvalidAudio, "%s", err.Error())
		}
		return Errorf(ErrorTranscriptionFailed, "transcription failed (%s)", transcribe.ReasonFromError(err))
	}

	p.log.Info("Audio transcribed",
		"message_id", msg.ID,
		"provider", string(result.Provider),
		"text_length", len(result.Text),
	)

	outcome := p.text.createFromText(ctx, result.Text, pctx)
	if outcome.Status == StatusHandled && outcome.Result != nil {
		outcome.Result.Transcript = &result
	}

	return outcome
}
