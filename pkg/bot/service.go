package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskclaw/pkg/auth"
	"taskclaw/pkg/channel"
	"taskclaw/pkg/config"
	"taskclaw/pkg/message"
	"taskclaw/pkg/processor"
)

const (
	defaultStatusHost = "0.0.0.0"
	defaultStatusPort = 18890
)

// TokenValidator verifies a downstream credential, used for the startup
// readiness probe.
type TokenValidator interface {
	ValidateToken(ctx context.Context, credential string) error
}

// Service wires channel adapters to the processor chain and serves
// health/readiness endpoints.
type Service struct {
	cfg       *config.Config
	log       *slog.Logger
	chain     *processor.Chain
	creds     auth.Source
	validator TokenValidator
	channels  []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	channelStates map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Channels      map[string]channelState `json:"channels"`
}

func NewService(cfg *config.Config, chain *processor.Chain, creds auth.Source, validator TokenValidator, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if chain == nil {
		return nil, errors.New("processor chain is required")
	}
	if creds == nil {
		return nil, errors.New("credential source is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "bot.service"),
		chain:         chain,
		creds:         creds,
		validator:     validator,
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

// Run starts the status server and all channel adapters, blocking until the
// context is canceled or a channel fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	s.validateDefaultCredential(ctx)

	serverErrors := make(chan error, 1)
	go s.runStatusServer(ctx, serverErrors)

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.HandleInbound)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

// HandleInbound resolves the sender's credential, runs the chain, and
// formats the outcome into reply text. It is safe for concurrent calls;
// per-user ordering is not guaranteed and is not required by the chain.
func (s *Service) HandleInbound(ctx context.Context, inbound message.InboundMessage) (channel.Reply, error) {
	credential, err := s.creds.Lookup(ctx, inbound.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrNoCredential) {
			return channel.Reply{Text: "No task-manager token is configured for you yet. Ask the operator to add one."}, nil
		}
		return channel.Reply{}, fmt.Errorf("lookup credential: %w", err)
	}

	outcome := s.chain.Process(ctx, inbound, processor.Context{
		Credential: credential.Token,
		Locale:     credential.Locale,
	})

	return channel.Reply{Text: FormatOutcome(outcome)}, nil
}

// validateDefaultCredential probes the downstream API with the configured
// default token so a misconfigured deployment fails loudly at startup.
func (s *Service) validateDefaultCredential(ctx context.Context) {
	if s.validator == nil {
		return
	}

	token := strings.TrimSpace(s.cfg.Auth.DefaultToken)
	if token == "" {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.validator.ValidateToken(probeCtx, token); err != nil {
		s.log.Warn("Default credential validation failed", "error", err)
		return
	}

	s.log.Info("Default credential validated")
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Bot.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Bot.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	s.mu.RLock()
	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}
	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Channels:      channels,
	}); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
