package usecase

import (
	"strings"

	"darling/internal/domain"
)

// transcriptAggregator collects recognizer output for the utterance in
// progress. It is owned by the loop goroutine.
type transcriptAggregator struct {
	finals     []string
	lastSpoken string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) Add(event domain.TranscriptEvent) {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	a.lastSpoken = text
	if event.IsFinal() {
		a.finals = append(a.finals, text)
	}
}

// Raw returns the finals joined in arrival order, or the last partial when
// no final text arrived.
func (a *transcriptAggregator) Raw() string {
	joined := strings.TrimSpace(strings.Join(a.finals, " "))
	if joined == "" {
		return a.lastSpoken
	}
	if a.lastSpoken == "" || strings.HasSuffix(joined, a.lastSpoken) {
		return joined
	}
	if len(a.lastSpoken) > len(joined) {
		return strings.TrimSpace(joined + " " + a.lastSpoken)
	}
	return joined
}

// Flush returns Raw and starts a new utterance.
func (a *transcriptAggregator) Flush() string {
	raw := a.Raw()
	a.finals = nil
	a.lastSpoken = ""
	return raw
}
