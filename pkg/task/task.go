package task

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLength is the longest task title the downstream API accepts.
	MaxContentLength = 500

	MinPriority = 1
	MaxPriority = 4
)

// Task is the canonical, validated task representation produced by the
// parser and consumed by the task-service client.
type Task struct {
	Content         string   `json:"content"`
	Description     string   `json:"description,omitempty"`
	DueString       string   `json:"due_string,omitempty"`
	Priority        int      `json:"priority,omitempty"`
	ProjectName     string   `json:"project_name,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
}

// Normalize squashes whitespace, clamps priority into [1,4], lowercases and
// deduplicates labels, and drops negative durations. It returns the cleaned
// copy; the receiver is not modified.
func (t Task) Normalize() Task {
	t.Content = squashWhitespace(t.Content)
	if utf8.RuneCountInString(t.Content) > MaxContentLength {
		runes := []rune(t.Content)
		t.Content = strings.TrimSpace(string(runes[:MaxContentLength]))
	}

	t.Description = strings.TrimSpace(t.Description)
	t.DueString = strings.TrimSpace(t.DueString)
	t.ProjectName = strings.TrimSpace(t.ProjectName)

	if t.Priority != 0 {
		if t.Priority < MinPriority {
			t.Priority = MinPriority
		}
		if t.Priority > MaxPriority {
			t.Priority = MaxPriority
		}
	}

	t.Labels = cleanLabels(t.Labels)

	if t.DurationMinutes < 0 {
		t.DurationMinutes = 0
	}

	return t
}

// Valid reports whether the task has usable content after normalization.
func (t Task) Valid() bool {
	return strings.TrimSpace(t.Content) != ""
}

func squashWhitespace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

func cleanLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}

	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || slices.Contains(cleaned, label) {
			continue
		}
		cleaned = append(cleaned, label)
	}

	if len(cleaned) == 0 {
		return nil
	}

	return cleaned
}
