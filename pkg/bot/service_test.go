package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskclaw/pkg/auth"
	"taskclaw/pkg/channel"
	"taskclaw/pkg/config"
	"taskclaw/pkg/message"
	"taskclaw/pkg/processor"
)

type testAdapter struct{ name string }

func (a testAdapter) Name() string { return a.name }

func (a testAdapter) Run(ctx context.Context, _ channel.Handler) error {
	<-ctx.Done()
	return nil
}

type replyProcessor struct {
	pctx processor.Context
}

func (p *replyProcessor) Name() string { return "reply" }

func (p *replyProcessor) Process(_ context.Context, _ message.InboundMessage, pctx processor.Context) processor.Outcome {
	p.pctx = pctx
	return processor.Handled(&processor.Result{Reply: "handled"})
}

func newTestService(t *testing.T, authCfg config.AuthConfig, proc processor.Processor) (*Service, *processor.Chain) {
	t.Helper()

	cfg := &config.Config{Auth: authCfg}
	config.ApplyDefaults(cfg)

	chain := processor.NewChain(nil, proc)
	svc, err := NewService(cfg, chain, auth.NewStaticSource(cfg.Auth), nil, []channel.Adapter{testAdapter{name: "telegram"}}, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc, chain
}

func TestHandleInboundPassesCredentialToChain(t *testing.T) {
	t.Parallel()

	proc := &replyProcessor{}
	svc, _ := newTestService(t, config.AuthConfig{DefaultToken: "tok", DefaultLocale: "de"}, proc)

	reply, err := svc.HandleInbound(context.Background(), message.New("telegram", "42", "42", message.KindText))
	if err != nil {
		t.Fatalf("HandleInbound error: %v", err)
	}

	if reply.Text != "handled" {
		t.Fatalf("reply = %q", reply.Text)
	}
	if proc.pctx.Credential != "tok" || proc.pctx.Locale != "de" {
		t.Fatalf("processor context = %+v", proc.pctx)
	}
}

func TestHandleInboundWithoutCredential(t *testing.T) {
	t.Parallel()

	proc := &replyProcessor{}
	svc, _ := newTestService(t, config.AuthConfig{}, proc)

	reply, err := svc.HandleInbound(context.Background(), message.New("telegram", "42", "42", message.KindText))
	if err != nil {
		t.Fatalf("HandleInbound error: %v", err)
	}

	if !strings.Contains(reply.Text, "token") {
		t.Fatalf("reply = %q, want token guidance", reply.Text)
	}
	if proc.pctx.Credential != "" {
		t.Fatal("chain was invoked without a credential")
	}
}

func TestStatusEndpoints(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, config.AuthConfig{DefaultToken: "tok"}, &replyProcessor{})

	health := httptest.NewRecorder()
	svc.handleHealth(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("healthz = %d", health.Code)
	}

	// No channel has started yet, so readiness reports unavailable.
	ready := httptest.NewRecorder()
	svc.handleReady(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if ready.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before start = %d", ready.Code)
	}

	svc.setChannelState("telegram", channelState{Running: true})

	ready = httptest.NewRecorder()
	svc.handleReady(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if ready.Code != http.StatusOK {
		t.Fatalf("readyz after start = %d", ready.Code)
	}
	if !strings.Contains(ready.Body.String(), `"telegram"`) {
		t.Fatalf("readyz body = %q", ready.Body.String())
	}
}
