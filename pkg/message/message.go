package message

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an inbound message for processor dispatch.
type Kind string

const (
	KindCommand   Kind = "command"
	KindText      Kind = "text"
	KindVoice     Kind = "voice"
	KindAudio     Kind = "audio"
	KindVideoNote Kind = "video_note"
	KindUnknown   Kind = "unknown"
)

// IsAudio reports whether the kind carries an audio payload.
func (k Kind) IsAudio() bool {
	switch k {
	case KindVoice, KindAudio, KindVideoNote:
		return true
	default:
		return false
	}
}

// AudioPayload is a downloaded audio attachment ready for transcription.
type AudioPayload struct {
	Data     []byte
	MimeType string
	Duration time.Duration
	FileSize int64
}

// InboundMessage is one user message as delivered by a transport adapter.
// It is immutable once constructed; the processing chain owns it for the
// duration of one Process call and does not retain it afterward.
type InboundMessage struct {
	ID         string
	Channel    string
	UserID     string
	ChatID     string
	Kind       Kind
	Text       string
	Audio      *AudioPayload
	ReceivedAt time.Time
	Metadata   map[string]string
}

// New constructs an inbound message, stamping a fresh ID and timestamp when
// the transport did not supply them. The ID is what downstream dedup keys on.
func New(channel, userID, chatID string, kind Kind) InboundMessage {
	return InboundMessage{
		ID:         uuid.NewString(),
		Channel:    channel,
		UserID:     userID,
		ChatID:     chatID,
		Kind:       kind,
		ReceivedAt: time.Now().UTC(),
	}
}

// ClassifyText returns the kind for a plain text payload, distinguishing
// slash commands from free text.
func ClassifyText(text string) Kind {
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		return KindCommand
	}

	return KindText
}
