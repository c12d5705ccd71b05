package processor

import (
	"fmt"

	"taskclaw/pkg/taskapi"
	"taskclaw/pkg/transcribe"
)

// Status tags a processor outcome. Skip means "not my concern, try the next
// processor"; Handled and Error are terminal for the chain.
type Status int

const (
	StatusSkip Status = iota
	StatusHandled
	StatusError
)

// ErrorKind is the stable category the presentation layer maps to a
// human-readable message. Raw backend error text never rides along to users.
type ErrorKind string

const (
	ErrorInternal            ErrorKind = "internal"
	ErrorInvalidAudio        ErrorKind = "invalid_audio"
	ErrorTranscriptionFailed ErrorKind = "transcription_failed"
	ErrorParseFailed         ErrorKind = "parse_failed"
	ErrorInvalidToken        ErrorKind = "invalid_token"
	ErrorQuotaExceeded       ErrorKind = "quota_exceeded"
	ErrorProjectNotFound     ErrorKind = "project_not_found"
	ErrorRemote              ErrorKind = "remote_error"
)

// Result is the payload of a Handled outcome.
type Result struct {
	// Reply carries direct response text (command processor).
	Reply string
	// Task is set when a downstream task was created.
	Task *taskapi.CreationResult
	// Transcript is set when the audio path produced the text.
	Transcript *transcribe.Result
}

// Outcome is the terminal (or pass-through) result of one processor.
type Outcome struct {
	Status    Status
	Result    *Result
	ErrorKind ErrorKind
	Detail    string
}

func Skip() Outcome {
	return Outcome{Status: StatusSkip}
}

func Handled(result *Result) Outcome {
	return Outcome{Status: StatusHandled, Result: result}
}

func Errorf(kind ErrorKind, format string, args ...any) Outcome {
	return Outcome{Status: StatusError, ErrorKind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Context supplies the authenticated user's downstream credential and locale,
// injected by the auth collaborator upstream of the chain.
type Context struct {
	Credential string
	Locale     string
}
