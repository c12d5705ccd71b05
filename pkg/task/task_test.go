package task

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeSquashesWhitespace(t *testing.T) {
	t.Parallel()

	got := Task{Content: "  buy\n\tmilk   today "}.Normalize()
	if got.Content != "buy milk today" {
		t.Fatalf("content = %q, want %q", got.Content, "buy milk today")
	}
}

func TestNormalizeTruncatesLongContent(t *testing.T) {
	t.Parallel()

	got := Task{Content: strings.Repeat("я", MaxContentLength+50)}.Normalize()
	if count := utf8.RuneCountInString(got.Content); count != MaxContentLength {
		t.Fatalf("rune count = %d, want %d", count, MaxContentLength)
	}
}

func TestNormalizeClampsPriority(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   int
		want int
	}{
		{"below range", -2, MinPriority},
		{"above range", 9, MaxPriority},
		{"in range", 3, 3},
		{"unset stays unset", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Task{Content: "x", Priority: tc.in}.Normalize()
			if got.Priority != tc.want {
				t.Fatalf("priority = %d, want %d", got.Priority, tc.want)
			}
		})
	}
}

func TestNormalizeCleansLabels(t *testing.T) {
	t.Parallel()

	got := Task{Content: "x", Labels: []string{" Home ", "home", "WORK", "", "work"}}.Normalize()
	if len(got.Labels) != 2 || got.Labels[0] != "home" || got.Labels[1] != "work" {
		t.Fatalf("labels = %v, want [home work]", got.Labels)
	}
}

func TestNormalizeDropsNegativeDuration(t *testing.T) {
	t.Parallel()

	got := Task{Content: "x", DurationMinutes: -15}.Normalize()
	if got.DurationMinutes != 0 {
		t.Fatalf("duration = %d, want 0", got.DurationMinutes)
	}
}

func TestValidRequiresContent(t *testing.T) {
	t.Parallel()

	if (Task{Content: "   "}).Valid() {
		t.Fatal("whitespace-only content should not be valid")
	}
	if !(Task{Content: "buy milk"}).Valid() {
		t.Fatal("expected valid task")
	}
}
