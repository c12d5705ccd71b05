package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskclaw/pkg/config"
	"taskclaw/pkg/task"
)

// Project is one downstream project listing entry.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Label is one downstream label listing entry.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreationResult echoes a successfully created task with its external
// reference.
type CreationResult struct {
	TaskID string
	URL    string
	Echoed task.Task
}

// credentialState is the per-credential arena entry: an independent rate
// limiter and listing caches, never shared across credentials.
type credentialState struct {
	limiter  *SlidingWindow
	projects *Cache[[]Project]
	labels   *Cache[[]Label]
}

// Client talks to the downstream task API on behalf of per-user credentials,
// respecting a per-credential request budget and caching listings.
type Client struct {
	baseURL     string
	http        *http.Client
	maxRequests int
	window      time.Duration
	ttl         time.Duration
	log         *slog.Logger

	mu    sync.Mutex
	creds map[string]*credentialState
}

func NewClient(cfg config.TaskAPIConfig, log *slog.Logger) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("task_api.base_url is required")
	}
	if log == nil {
		log = slog.Default()
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		maxRequests: cfg.RateLimitRequests,
		window:      time.Duration(cfg.RateLimitWindowSecs) * time.Second,
		ttl:         time.Duration(cfg.CacheTTLSeconds) * time.Second,
		log:         log.With("component", "taskapi.client"),
		creds:       make(map[string]*credentialState),
	}, nil
}

// ListProjects returns the credential's projects, served from cache when
// fresh; a miss triggers exactly one fetch even under concurrent callers.
func (c *Client) ListProjects(ctx context.Context, credential string) ([]Project, error) {
	state := c.state(credential)

	return state.projects.Fetch(ctx, func(ctx context.Context) ([]Project, error) {
		var projects []Project
		if err := c.get(ctx, credential, "/projects", &projects); err != nil {
			return nil, err
		}
		return projects, nil
	})
}

// ListLabels returns the credential's labels with the same caching contract
// as ListProjects.
func (c *Client) ListLabels(ctx context.Context, credential string) ([]Label, error) {
	state := c.state(credential)

	return state.labels.Fetch(ctx, func(ctx context.Context) ([]Label, error) {
		var labels []Label
		if err := c.get(ctx, credential, "/labels", &labels); err != nil {
			return nil, err
		}
		return labels, nil
	})
}

// ResolveProject finds a project by case-insensitive name. An unresolvable
// name surfaces NotFound rather than silently defaulting, since redirecting
// a task to the wrong project is the worse failure mode.
func (c *Client) ResolveProject(ctx context.Context, credential, name string) (Project, error) {
	projects, err := c.ListProjects(ctx, credential)
	if err != nil {
		return Project{}, err
	}

	for _, project := range projects {
		if strings.EqualFold(project.Name, name) {
			return project, nil
		}
	}

	return Project{}, &Error{Reason: ReasonNotFound, Detail: fmt.Sprintf("project %q not found", name)}
}

// ResolveLabel finds a label by case-insensitive name.
func (c *Client) ResolveLabel(ctx context.Context, credential, name string) (Label, error) {
	labels, err := c.ListLabels(ctx, credential)
	if err != nil {
		return Label{}, err
	}

	for _, label := range labels {
		if strings.EqualFold(label.Name, name) {
			return label, nil
		}
	}

	return Label{}, &Error{Reason: ReasonNotFound, Detail: fmt.Sprintf("label %q not found", name)}
}

// ValidateToken verifies the credential against the downstream API by
// listing projects (the cheapest authenticated read), warming the cache as a
// side effect.
func (c *Client) ValidateToken(ctx context.Context, credential string) error {
	_, err := c.ListProjects(ctx, credential)
	return err
}

type createTaskPayload struct {
	Content      string   `json:"content"`
	Description  string   `json:"description,omitempty"`
	ProjectID    string   `json:"project_id,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Priority     int      `json:"priority"`
	DueString    string   `json:"due_string,omitempty"`
	Duration     int      `json:"duration,omitempty"`
	DurationUnit string   `json:"duration_unit,omitempty"`
}

type createTaskResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ProjectID string `json:"project_id"`
}

// CreateTask creates one task for the credential. projectID may be empty for
// the default project. The call is admitted through the credential's request
// budget first; an exhausted budget fails fast with QuotaExceeded and no
// network call is made.
func (c *Client) CreateTask(ctx context.Context, credential string, t task.Task, projectID string) (CreationResult, error) {
	state := c.state(credential)
	if err := admit(state.limiter); err != nil {
		return CreationResult{}, err
	}

	priority := t.Priority
	if priority == 0 {
		priority = 1
	}

	payload := createTaskPayload{
		Content:     t.Content,
		Description: t.Description,
		ProjectID:   projectID,
		Labels:      t.Labels,
		Priority:    priority,
		DueString:   t.DueString,
	}
	if t.DurationMinutes > 0 {
		payload.Duration = t.DurationMinutes
		payload.DurationUnit = "minute"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CreationResult{}, fmt.Errorf("encode task payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks", bytes.NewReader(body))
	if err != nil {
		return CreationResult{}, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")

	var created createTaskResponse
	if err := c.do(req, &created); err != nil {
		return CreationResult{}, err
	}

	c.maybeInvalidateProjects(ctx, state, credential, created.ProjectID)

	c.log.Info("Task created", "task_id", created.ID, "priority", priority)

	return CreationResult{TaskID: created.ID, URL: created.URL, Echoed: t}, nil
}

// InvalidateCaches drops the credential's cached listings.
func (c *Client) InvalidateCaches(credential string) {
	state := c.state(credential)
	state.projects.Invalidate()
	state.labels.Invalidate()
}

// maybeInvalidateProjects drops the projects cache when a creation response
// references a project the cache has never seen, so the next resolution
// refetches instead of waiting out the TTL.
func (c *Client) maybeInvalidateProjects(_ context.Context, state *credentialState, _ string, projectID string) {
	if projectID == "" {
		return
	}

	cached, ok := state.projects.Get()
	if !ok {
		return
	}

	for _, project := range cached {
		if project.ID == projectID {
			return
		}
	}

	state.projects.Invalidate()
}

// state returns the credential's arena entry, creating it on first use.
// Entries are isolated per credential; only the map lookup is globally
// synchronized.
func (c *Client) state(credential string) *credentialState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.creds[credential]; ok {
		return state
	}

	state := &credentialState{
		limiter:  NewSlidingWindow(c.maxRequests, c.window),
		projects: NewCache[[]Project](c.ttl),
		labels:   NewCache[[]Label](c.ttl),
	}
	c.creds[credential] = state

	return state
}

func admit(limiter *SlidingWindow) error {
	retryAfter, ok := limiter.Allow()
	if !ok {
		return &Error{
			Reason:     ReasonQuotaExceeded,
			Detail:     "request budget exhausted",
			RetryAfter: retryAfter,
		}
	}

	return nil
}

// get issues a budget-admitted GET and decodes the response into out.
func (c *Client) get(ctx context.Context, credential, path string, out any) error {
	state := c.state(credential)
	if err := admit(state.limiter); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	return c.do(req, out)
}

// do executes one request and maps the response status onto the error
// taxonomy. Raw backend error text stays in Detail and never reaches users.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Reason: ReasonRemoteError, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Reason: ReasonRemoteError, Detail: "read response: " + err.Error()}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized:
		return &Error{Reason: ReasonInvalidToken, Detail: "credential rejected"}
	case resp.StatusCode == http.StatusForbidden:
		return &Error{Reason: ReasonQuotaExceeded, Detail: "access forbidden"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Reason:     ReasonQuotaExceeded,
			Detail:     "remote rate limit",
			RetryAfter: retryAfterHeader(resp),
		}
	default:
		return &Error{Reason: ReasonRemoteError, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Reason: ReasonRemoteError, Detail: "decode response: " + err.Error()}
	}

	return nil
}

func retryAfterHeader(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
	if err != nil || seconds < 0 {
		return 60 * time.Second
	}

	return time.Duration(seconds) * time.Second
}
