// Package deepgram streams microphone audio to Deepgram's live
// transcription API and turns its results into utterance events.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"darling/internal/domain"
	"darling/internal/ports"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("deepgram api key is not configured")

// DialError reports that the websocket could not be opened.
type DialError struct {
	Status int
	Err    error
}

func (e *DialError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("connect to deepgram (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("connect to deepgram: %v", e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

// Config controls the Deepgram connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	// Endpointing is the silence in milliseconds that ends an utterance.
	Endpointing int
}

// Provider implements ports.TranscriptionProvider.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewProvider returns a provider with defaults filled in.
func NewProvider(cfg Config) *Provider {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Endpointing <= 0 {
		cfg.Endpointing = 300
	}
	return &Provider{cfg: cfg, dialer: websocket.DefaultDialer}
}

// Configured reports whether an API key is present.
func (p *Provider) Configured() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

// StartStreaming opens a live transcription session. The session ends when
// ctx is cancelled.
func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if !p.Configured() {
		return nil, ErrMissingAPIKey
	}

	listenURL, err := listenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.dialer.DialContext(ctx, listenURL, headers)
	if err != nil {
		dialErr := &DialError{Err: err}
		if resp != nil {
			dialErr.Status = resp.StatusCode
		}
		return nil, dialErr
	}

	session := newStreamingSession(conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.done:
		}
	}()
	return session, nil
}

func listenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	q := u.Query()
	q.Set("model", providerCfg.Model)
	q.Set("encoding", streamCfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	q.Set("channels", strconv.Itoa(streamCfg.Channels))
	q.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	q.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if providerCfg.Endpointing > 0 {
		q.Set("endpointing", strconv.Itoa(providerCfg.Endpointing))
	}
	if providerCfg.Language != "" {
		q.Set("language", providerCfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// segmenter assembles Deepgram result segments into utterances. Finalized
// segments accumulate until speech_final or an UtteranceEnd message.
type segmenter struct {
	finalized []string
}

func (s *segmenter) Result(text string, isFinal, speechFinal bool) (domain.TranscriptEvent, bool) {
	text = strings.TrimSpace(text)
	if isFinal && text != "" {
		s.finalized = append(s.finalized, text)
	}
	if speechFinal {
		return s.flush()
	}

	current := strings.Join(s.finalized, " ")
	if !isFinal && text != "" {
		current = strings.TrimSpace(current + " " + text)
	}
	if current == "" {
		return domain.TranscriptEvent{}, false
	}
	return domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: current}, true
}

func (s *segmenter) UtteranceEnd() (domain.TranscriptEvent, bool) {
	return s.flush()
}

func (s *segmenter) flush() (domain.TranscriptEvent, bool) {
	text := strings.Join(s.finalized, " ")
	s.finalized = nil
	if text == "" {
		return domain.TranscriptEvent{}, false
	}
	return domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: text}, true
}
