package taskapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taskclaw/pkg/config"
	"taskclaw/pkg/task"
)

func testClientConfig(baseURL string) config.TaskAPIConfig {
	return config.TaskAPIConfig{
		BaseURL:             baseURL,
		RateLimitRequests:   450,
		RateLimitWindowSecs: 900,
		CacheTTLSeconds:     300,
	}
}

func newTestClient(t *testing.T, cfg config.TaskAPIConfig) *Client {
	t.Helper()

	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestListProjectsCachesAcrossCalls(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer token-a" {
			t.Errorf("authorization = %q", got)
		}
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Inbox"},{"id":"p2","name":"Work"}]`))
	}))
	defer server.Close()

	client := newTestClient(t, testClientConfig(server.URL))

	for i := 0; i < 3; i++ {
		projects, err := client.ListProjects(context.Background(), "token-a")
		if err != nil {
			t.Fatalf("ListProjects error: %v", err)
		}
		if len(projects) != 2 {
			t.Fatalf("projects = %v", projects)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want 1", got)
	}
}

func TestCachesAreIsolatedPerCredential(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, testClientConfig(server.URL))

	if _, err := client.ListProjects(context.Background(), "token-a"); err != nil {
		t.Fatalf("ListProjects error: %v", err)
	}
	if _, err := client.ListProjects(context.Background(), "token-b"); err != nil {
		t.Fatalf("ListProjects error: %v", err)
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("server hits = %d, want one per credential", got)
	}
}

func TestResolveProjectIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"p1","name":"Shopping"}]`))
	}))
	defer server.Close()

	client := newTestClient(t, testClientConfig(server.URL))

	project, err := client.ResolveProject(context.Background(), "token-a", "sHoPpInG")
	if err != nil {
		t.Fatalf("ResolveProject error: %v", err)
	}
	if project.ID != "p1" {
		t.Fatalf("project = %+v", project)
	}

	_, err = client.ResolveProject(context.Background(), "token-a", "missing")
	if ReasonFromError(err) != ReasonNotFound {
		t.Fatalf("reason = %v, want not_found", ReasonFromError(err))
	}
}

func TestCreateTaskPostsPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Errorf("request = %s %s, want POST /tasks", r.Method, r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["content"] != "Buy milk" {
			t.Errorf("content = %v", payload["content"])
		}
		if payload["priority"] != float64(1) {
			t.Errorf("priority = %v, want defaulted to 1", payload["priority"])
		}
		if payload["duration"] != float64(30) || payload["duration_unit"] != "minute" {
			t.Errorf("duration = %v %v, want 30 minute", payload["duration"], payload["duration_unit"])
		}

		_, _ = w.Write([]byte(`{"id":"t1","url":"https://example.test/t1","project_id":"p1"}`))
	}))
	defer server.Close()

	client := newTestClient(t, testClientConfig(server.URL))

	created, err := client.CreateTask(context.Background(), "token-a", task.Task{
		Content:         "Buy milk",
		DurationMinutes: 30,
	}, "p1")
	if err != nil {
		t.Fatalf("CreateTask error: %v", err)
	}

	if created.TaskID != "t1" || created.URL != "https://example.test/t1" {
		t.Fatalf("created = %+v", created)
	}
	if created.Echoed.Content != "Buy milk" {
		t.Fatalf("echoed = %+v", created.Echoed)
	}
}

func TestStatusCodeMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   Reason
	}{
		{"unauthorized", http.StatusUnauthorized, ReasonInvalidToken},
		{"forbidden", http.StatusForbidden, ReasonQuotaExceeded},
		{"too many requests", http.StatusTooManyRequests, ReasonQuotaExceeded},
		{"server error", http.StatusInternalServerError, ReasonRemoteError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := newTestClient(t, testClientConfig(server.URL))
			_, err := client.CreateTask(context.Background(), "token-a", task.Task{Content: "x"}, "")
			if ReasonFromError(err) != tc.want {
				t.Fatalf("reason = %v, want %v", ReasonFromError(err), tc.want)
			}
		})
	}
}

func TestRemoteRateLimitCarriesRetryAfter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, testClientConfig(server.URL))
	_, err := client.CreateTask(context.Background(), "token-a", task.Task{Content: "x"}, "")

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.RetryAfter != 120*time.Second {
		t.Fatalf("retryAfter = %s, want 120s", apiErr.RetryAfter)
	}
}

func TestExhaustedBudgetFailsFastWithoutNetwork(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.RateLimitRequests = 1
	client := newTestClient(t, cfg)

	if _, err := client.ListProjects(context.Background(), "token-a"); err != nil {
		t.Fatalf("ListProjects error: %v", err)
	}

	_, err := client.CreateTask(context.Background(), "token-a", task.Task{Content: "x"}, "")
	if ReasonFromError(err) != ReasonQuotaExceeded {
		t.Fatalf("reason = %v, want quota_exceeded", ReasonFromError(err))
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hits = %d, want no call for the denied request", got)
	}
}

func TestUnknownProjectInResponseInvalidatesCache(t *testing.T) {
	t.Parallel()

	var listHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/projects":
			listHits.Add(1)
			_, _ = w.Write([]byte(`[{"id":"p1","name":"Inbox"}]`))
		case "/tasks":
			_, _ = w.Write([]byte(`{"id":"t1","project_id":"p-new"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, testClientConfig(server.URL))

	if _, err := client.ListProjects(context.Background(), "token-a"); err != nil {
		t.Fatalf("ListProjects error: %v", err)
	}
	if _, err := client.CreateTask(context.Background(), "token-a", task.Task{Content: "x"}, ""); err != nil {
		t.Fatalf("CreateTask error: %v", err)
	}
	if _, err := client.ListProjects(context.Background(), "token-a"); err != nil {
		t.Fatalf("ListProjects error: %v", err)
	}

	if got := listHits.Load(); got != 2 {
		t.Fatalf("list hits = %d, want refetch after unknown project id", got)
	}
}

func TestValidateTokenSurfacesInvalidToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, testClientConfig(server.URL))
	err := client.ValidateToken(context.Background(), "bad-token")
	if ReasonFromError(err) != ReasonInvalidToken {
		t.Fatalf("reason = %v, want invalid_token", ReasonFromError(err))
	}
}
