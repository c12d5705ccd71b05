package message

import "testing"

func TestClassifyText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want Kind
	}{
		{"/start", KindCommand},
		{"  /help@somebot  ", KindCommand},
		{"buy milk tomorrow", KindText},
		{"slash in the / middle", KindText},
	}

	for _, tc := range cases {
		if got := ClassifyText(tc.text); got != tc.want {
			t.Fatalf("ClassifyText(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestKindIsAudio(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindVoice, KindAudio, KindVideoNote} {
		if !kind.IsAudio() {
			t.Fatalf("%q should be audio", kind)
		}
	}
	for _, kind := range []Kind{KindText, KindCommand, KindUnknown} {
		if kind.IsAudio() {
			t.Fatalf("%q should not be audio", kind)
		}
	}
}

func TestNewStampsIdentityAndTime(t *testing.T) {
	t.Parallel()

	first := New("telegram", "user-1", "chat-1", KindText)
	second := New("telegram", "user-1", "chat-1", KindText)

	if first.ID == "" || second.ID == "" {
		t.Fatal("expected generated IDs")
	}
	if first.ID == second.ID {
		t.Fatal("expected unique IDs per message")
	}
	if first.ReceivedAt.IsZero() {
		t.Fatal("expected received timestamp")
	}
	if first.Channel != "telegram" || first.UserID != "user-1" || first.ChatID != "chat-1" {
		t.Fatalf("unexpected identity fields: %+v", first)
	}
}
