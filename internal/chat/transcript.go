// Package chat keeps the conversation transcript for the current process.
package chat

import (
	"strings"
	"sync"
	"time"

	"darling/internal/domain"
	"darling/internal/ports"
)

// Transcript is an append-only list of chat messages. Every appended
// message is forwarded to the subscribed sinks in subscription order.
type Transcript struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
	sinks    []ports.ChatSink
	now      func() time.Time
}

// NewTranscript returns an empty transcript.
func NewTranscript(sinks ...ports.ChatSink) *Transcript {
	return &Transcript{sinks: sinks, now: time.Now}
}

// Subscribe adds a sink for messages appended from now on.
func (t *Transcript) Subscribe(sink ports.ChatSink) {
	if sink == nil {
		return
	}
	t.mu.Lock()
	t.sinks = append(t.sinks, sink)
	t.mu.Unlock()
}

// Post appends a message, stamping it when At is zero. Blank text is dropped.
func (t *Transcript) Post(message domain.ChatMessage) {
	if strings.TrimSpace(message.Text) == "" {
		return
	}

	t.mu.Lock()
	if message.At.IsZero() {
		message.At = t.now()
	}
	t.messages = append(t.messages, message)
	sinks := make([]ports.ChatSink, len(t.sinks))
	copy(sinks, t.sinks)
	t.mu.Unlock()

	for _, sink := range sinks {
		sink.Post(message)
	}
}

// User appends a user message.
func (t *Transcript) User(text string) { t.Post(domain.ChatMessage{Role: domain.RoleUser, Text: text}) }

// Assistant appends an assistant message.
func (t *Transcript) Assistant(text string) {
	t.Post(domain.ChatMessage{Role: domain.RoleAssistant, Text: text})
}

// System appends a system notice.
func (t *Transcript) System(text string) {
	t.Post(domain.ChatMessage{Role: domain.RoleSystem, Text: text})
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []domain.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Count returns how many messages of role were posted.
func (t *Transcript) Count(role domain.ChatRole) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, message := range t.messages {
		if message.Role == role {
			count++
		}
	}
	return count
}
