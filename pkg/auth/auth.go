package auth

import (
	"context"
	"errors"
	"strings"

	"taskclaw/pkg/config"
)

// ErrNoCredential signals that a user has no downstream token configured.
var ErrNoCredential = errors.New("no credential configured for user")

// Credential is a user's decrypted downstream token plus locale preference.
type Credential struct {
	Token  string
	Locale string
}

// Source resolves the credential for a transport user ID. Persistence and
// encryption live behind this interface and outside this process.
type Source interface {
	Lookup(ctx context.Context, userID string) (Credential, error)
}

// StaticSource serves credentials from configuration: per-user tokens first,
// then the default token for single-user deployments.
type StaticSource struct {
	defaultToken string
	locale       string
	tokens       map[string]string
}

func NewStaticSource(cfg config.AuthConfig) *StaticSource {
	tokens := make(map[string]string, len(cfg.Tokens))
	for userID, token := range cfg.Tokens {
		userID = strings.TrimSpace(userID)
		token = strings.TrimSpace(token)
		if userID != "" && token != "" {
			tokens[userID] = token
		}
	}

	return &StaticSource{
		defaultToken: strings.TrimSpace(cfg.DefaultToken),
		locale:       cfg.DefaultLocale,
		tokens:       tokens,
	}
}

func (s *StaticSource) Lookup(_ context.Context, userID string) (Credential, error) {
	if token, ok := s.tokens[strings.TrimSpace(userID)]; ok {
		return Credential{Token: token, Locale: s.locale}, nil
	}
	if s.defaultToken != "" {
		return Credential{Token: s.defaultToken, Locale: s.locale}, nil
	}

	return Credential{}, ErrNoCredential
}
