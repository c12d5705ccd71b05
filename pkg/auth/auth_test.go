package auth

import (
	"context"
	"errors"
	"testing"

	"taskclaw/pkg/config"
)

func TestLookupPrefersPerUserToken(t *testing.T) {
	t.Parallel()

	source := NewStaticSource(config.AuthConfig{
		DefaultToken:  "default-token",
		DefaultLocale: "en",
		Tokens:        map[string]string{"42": "user-token"},
	})

	got, err := source.Lookup(context.Background(), "42")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if got.Token != "user-token" || got.Locale != "en" {
		t.Fatalf("credential = %+v", got)
	}
}

func TestLookupFallsBackToDefaultToken(t *testing.T) {
	t.Parallel()

	source := NewStaticSource(config.AuthConfig{DefaultToken: "default-token"})

	got, err := source.Lookup(context.Background(), "unknown-user")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if got.Token != "default-token" {
		t.Fatalf("token = %q", got.Token)
	}
}

func TestLookupWithoutAnyTokenFails(t *testing.T) {
	t.Parallel()

	source := NewStaticSource(config.AuthConfig{})

	_, err := source.Lookup(context.Background(), "42")
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential", err)
	}
}

func TestNewStaticSourceDropsBlankEntries(t *testing.T) {
	t.Parallel()

	source := NewStaticSource(config.AuthConfig{
		Tokens: map[string]string{" ": "x", "7": "  "},
	})

	if _, err := source.Lookup(context.Background(), "7"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err = %v, want ErrNoCredential for blank token", err)
	}
}
