package bot

import (
	"strings"

	"taskclaw/pkg/processor"
)

// priorityNames maps downstream priority values to the labels users see.
var priorityNames = map[int]string{
	1: "normal",
	2: "medium",
	3: "high",
	4: "urgent",
}

// errorReplies maps chain error kinds to user-facing text. Detail strings
// stay in logs; users only ever see these.
var errorReplies = map[processor.ErrorKind]string{
	processor.ErrorInternal:            "Something went wrong on our side. Please try again.",
	processor.ErrorInvalidAudio:        "I couldn't use that audio. Make sure it is a voice message under five minutes.",
	processor.ErrorTranscriptionFailed: "I couldn't transcribe that audio. Please try again or send the task as text.",
	processor.ErrorParseFailed:         "I couldn't turn that into a task. Try rephrasing, for example: \"Buy milk tomorrow at 6pm\".",
	processor.ErrorInvalidToken:        "Your task-manager token was rejected. Please update it and try again.",
	processor.ErrorQuotaExceeded:       "The task manager is rate limiting us right now. Please try again in a little while.",
	processor.ErrorRemote:              "The task manager is unavailable right now. Please try again later.",
}

// FormatOutcome renders a chain outcome as the reply text sent back on the
// originating channel. A skip produces guidance rather than silence so users
// are never left without feedback.
func FormatOutcome(outcome processor.Outcome) string {
	switch outcome.Status {
	case processor.StatusHandled:
		return formatHandled(outcome.Result)
	case processor.StatusError:
		return formatError(outcome)
	default:
		return "I can only handle text and voice messages for now."
	}
}

func formatHandled(result *processor.Result) string {
	if result == nil {
		return "Done."
	}
	if result.Reply != "" {
		return result.Reply
	}
	if result.Task == nil {
		return "Done."
	}

	var b strings.Builder

	if result.Transcript != nil {
		b.WriteString("Recognized: ")
		b.WriteString(result.Transcript.Text)
		b.WriteString("\n\n")
	}

	echoed := result.Task.Echoed
	b.WriteString("Task created: ")
	b.WriteString(echoed.Content)

	if echoed.DueString != "" {
		b.WriteString("\nDue: ")
		b.WriteString(echoed.DueString)
	}
	if name, ok := priorityNames[echoed.Priority]; ok && echoed.Priority > 1 {
		b.WriteString("\nPriority: ")
		b.WriteString(name)
	}
	if echoed.ProjectName != "" {
		b.WriteString("\nProject: ")
		b.WriteString(echoed.ProjectName)
	}
	if len(echoed.Labels) > 0 {
		b.WriteString("\nLabels: ")
		b.WriteString(strings.Join(echoed.Labels, ", "))
	}
	if result.Task.URL != "" {
		b.WriteString("\n")
		b.WriteString(result.Task.URL)
	}

	return b.String()
}

func formatError(outcome processor.Outcome) string {
	if outcome.ErrorKind == processor.ErrorProjectNotFound {
		return "I couldn't find that project. The task was not created; check the project name and try again."
	}

	if reply, ok := errorReplies[outcome.ErrorKind]; ok {
		return reply
	}

	return errorReplies[processor.ErrorInternal]
}
