package whisper

import (
	"context"
	"testing"

	"taskclaw/pkg/config"
	"taskclaw/pkg/transcribe"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := New(config.WhisperConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestFileNameFromMimeType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		mime string
		want string
	}{
		{"audio/mpeg", "audio.mp3"},
		{"audio/mp4", "audio.m4a"},
		{"video/mp4", "audio.m4a"},
		{"audio/wav", "audio.wav"},
		{"audio/ogg;codecs=opus", "audio.ogg"},
		{"", "audio.ogg"},
	}

	for _, tc := range cases {
		if got := fileName(tc.mime); got != tc.want {
			t.Fatalf("fileName(%q) = %q, want %q", tc.mime, got, tc.want)
		}
	}
}

func TestClassifyDeadline(t *testing.T) {
	t.Parallel()

	err := classify(context.DeadlineExceeded)
	if transcribe.ReasonFromError(err) != transcribe.ReasonTimeout {
		t.Fatalf("reason = %v, want timeout", transcribe.ReasonFromError(err))
	}
}
