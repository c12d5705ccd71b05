package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskclaw/pkg/config"
	"taskclaw/pkg/message"
	"taskclaw/pkg/transcribe"
)

const (
	providerName   = "deepgram"
	defaultBaseURL = "https://api.deepgram.com/v1"
)

// Client calls the Deepgram listen endpoint with language auto-detection
// requested; a detected language is carried through informationally.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func New(cfg config.DeepgramConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("transcription.primary.api_key is required or DEEPGRAM_API_KEY must be set")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) Transcribe(ctx context.Context, audio message.AudioPayload) (transcribe.Transcript, error) {
	params := url.Values{}
	params.Set("model", c.model)
	params.Set("punctuate", "true")
	params.Set("smart_format", "true")
	params.Set("detect_language", "true")

	endpoint := c.baseURL + "/listen?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio.Data))
	if err != nil {
		return transcribe.Transcript{}, fmt.Errorf("build listen request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", contentType(audio.MimeType))

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return transcribe.Transcript{}, &transcribe.Error{
				Reason: transcribe.ReasonTimeout, Provider: providerName, Detail: "listen request timed out",
			}
		}
		return transcribe.Transcript{}, &transcribe.Error{
			Reason: transcribe.ReasonProviderError, Provider: providerName, Detail: err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transcribe.Transcript{}, &transcribe.Error{
			Reason: transcribe.ReasonProviderError, Provider: providerName, Detail: "read response: " + err.Error(),
		}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		return transcribe.Transcript{}, &transcribe.Error{
			Reason: transcribe.ReasonInvalidAudio, Provider: providerName,
			Detail: fmt.Sprintf("rejected audio: status %d", resp.StatusCode),
		}
	default:
		return transcribe.Transcript{}, &transcribe.Error{
			Reason: transcribe.ReasonProviderError, Provider: providerName,
			Detail: fmt.Sprintf("status %d", resp.StatusCode),
		}
	}

	transcript, ok := extractTranscript(body)
	if !ok || strings.TrimSpace(transcript.Text) == "" {
		return transcribe.Transcript{}, &transcribe.Error{
			Reason: transcribe.ReasonEmpty, Provider: providerName, Detail: "empty transcript",
		}
	}

	return transcript, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func extractTranscript(body []byte) (transcribe.Transcript, bool) {
	var decoded listenResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return transcribe.Transcript{}, false
	}

	channels := decoded.Results.Channels
	if len(channels) == 0 || len(channels[0].Alternatives) == 0 {
		return transcribe.Transcript{}, false
	}

	best := channels[0].Alternatives[0]
	return transcribe.Transcript{
		Text:       strings.TrimSpace(best.Transcript),
		Language:   channels[0].DetectedLanguage,
		Confidence: best.Confidence,
	}, true
}

func contentType(mimeType string) string {
	if strings.TrimSpace(mimeType) == "" {
		return "audio/ogg;codecs=opus"
	}

	return mimeType
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }

	var te timeouter
	if errors.As(err, &te) {
		return te.Timeout()
	}

	return false
}
