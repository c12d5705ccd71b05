package processor

import (
	"context"
	"log/slog"

	"taskclaw/pkg/message"
	"taskclaw/pkg/parse"
	"taskclaw/pkg/task"
	"taskclaw/pkg/taskapi"
)

// Parser turns free text into a canonical task.
type Parser interface {
	Parse(ctx context.Context, text string, opts parse.Options) (task.Task, error)
}

// TaskService is the downstream task API surface the chain needs.
type TaskService interface {
	ListProjects(ctx context.Context, credential string) ([]taskapi.Project, error)
	ResolveProject(ctx context.Context, credential, name string) (taskapi.Project, error)
	CreateTask(ctx context.Context, credential string, t task.Task, projectID string) (taskapi.CreationResult, error)
}

// TextProcessor parses free text into a canonical task and creates it
// downstream. The audio processor reuses its task flow for transcripts.
type TextProcessor struct {
	parser Parser
	tasks  TaskService
	log    *slog.Logger
}

func NewTextProcessor(parser Parser, tasks TaskService, log *slog.Logger) *TextProcessor {
	if log == nil {
		log = slog.Default()
	}

	return &TextProcessor{
		parser: parser,
		tasks:  tasks,
		log:    log.With("component", "processor.text"),
	}
}

func (p *TextProcessor) Name() string {
	return "text"
}

func (p *TextProcessor) Process(ctx context.Context, msg message.InboundMessage, pctx Context) Outcome {
	if msg.Kind != message.KindText {
		return Skip()
	}

	return p.createFromText(ctx, msg.Text, pctx)
}

// createFromText runs the parse-and-create flow for one piece of text.
func (p *TextProcessor) createFromText(ctx context.Context, text string, pctx Context) Outcome {
	knownProjects, outcome := p.projectNames(ctx, pctx)
	if outcome != nil {
		return *outcome
	}

	parsed, err := p.parser.Parse(ctx, text, parse.Options{
		Locale:        pctx.Locale,
		KnownProjects: knownProjects,
	})
	if err != nil {
		return Errorf(ErrorParseFailed, "parse failed (%s)", parse.ReasonFromError(err))
	}

	projectID := ""
	if parsed.ProjectName != "" {
		project, err := p.tasks.ResolveProject(ctx, pctx.Credential, parsed.ProjectName)
		if err != nil {
			return mapTaskServiceError(err)
		}
		projectID = project.ID
	}

	created, err := p.tasks.CreateTask(ctx, pctx.Credential, parsed, projectID)
	if err != nil {
		return mapTaskServiceError(err)
	}

	p.log.Info("Task created from text", "task_id", created.TaskID, "project", parsed.ProjectName)

	return Handled(&Result{Task: &created})
}

// projectNames fetches the credential's project names for parser context.
// Credential and quota failures are terminal before any AI call is paid for;
// other listing failures degrade to parsing without known projects.
func (p *TextProcessor) projectNames(ctx context.Context, pctx Context) ([]string, *Outcome) {
	projects, err := p.tasks.ListProjects(ctx, pctx.Credential)
	if err != nil {
		switch taskapi.ReasonFromError(err) {
		case taskapi.ReasonInvalidToken, taskapi.ReasonQuotaExceeded:
			outcome := mapTaskServiceError(err)
			return nil, &outcome
		default:
			p.log.Debug("Project listing unavailable, parsing without project context", "error", err.Error())
			return nil, nil
		}
	}

	names := make([]string, 0, len(projects))
	for _, project := range projects {
		names = append(names, project.Name)
	}

	return names, nil
}

// mapTaskServiceError converts a task-service failure into a terminal
// outcome. InvalidToken and QuotaExceeded are structural conditions and are
// never retried here.
func mapTaskServiceError(err error) Outcome {
	switch taskapi.ReasonFromError(err) {
	case taskapi.ReasonInvalidToken:
		return Errorf(ErrorInvalidToken, "downstream credential rejected")
	case taskapi.ReasonQuotaExceeded:
		return Errorf(ErrorQuotaExceeded, "request budget exhausted")
	case taskapi.ReasonNotFound:
		return Errorf(ErrorProjectNotFound, "%s", err.Error())
	default:
		return Errorf(ErrorRemote, "task service unavailable")
	}
}
