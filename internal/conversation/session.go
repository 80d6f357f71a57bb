// Package conversation tracks whether spoken utterances are acted on and
// which operation, if any, is waiting for a follow-up.
package conversation

import (
	"errors"
	"fmt"

	"darling/internal/domain"
)

const (
	// Greeting is spoken when the wake phrase is detected.
	Greeting = "Yes, I'm listening. How can I help you today?"
	// ActivatedNotice is posted as a system message alongside the greeting.
	ActivatedNotice = "Darling Assistant activated"
)

// ErrInvalidTransition is returned for transitions the state machine forbids.
var ErrInvalidTransition = errors.New("invalid conversation transition")

// TransitionError describes a rejected transition.
type TransitionError struct {
	From domain.ConversationState
	To   domain.ConversationState
}

func (e *TransitionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition.Error(), e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Session holds the conversation state and the pending action. It is owned
// by a single goroutine and is not safe for concurrent use.
type Session struct {
	state   domain.ConversationState
	pending domain.PendingAction
}

// NewSession returns an idle session with nothing pending.
func NewSession() *Session {
	return &Session{state: domain.ConversationIdle}
}

// State returns the current conversation state.
func (s *Session) State() domain.ConversationState {
	return s.state
}

// Active reports whether utterances are being acted on.
func (s *Session) Active() bool {
	return s.state == domain.ConversationActive
}

// Pending returns the action waiting for a follow-up utterance.
func (s *Session) Pending() domain.PendingAction {
	return s.pending
}

// SetPending replaces the pending action; PendingNone clears it.
func (s *Session) SetPending(action domain.PendingAction) {
	s.pending = action
}

// Wake moves idle to active. Waking an active session is rejected so the
// greeting is never repeated.
func (s *Session) Wake() error {
	return s.transition(domain.ConversationIdle, domain.ConversationActive)
}

// End moves active to idle after a farewell or stop request.
func (s *Session) End() error {
	return s.transition(domain.ConversationActive, domain.ConversationIdle)
}

// Reset returns the session to idle with nothing pending.
func (s *Session) Reset() {
	s.state = domain.ConversationIdle
	s.pending = domain.PendingAction{}
}

func (s *Session) transition(from, to domain.ConversationState) error {
	if s.state != from || !isAllowedTransition(from, to) {
		return &TransitionError{From: s.state, To: to}
	}
	s.state = to
	return nil
}

func isAllowedTransition(from, to domain.ConversationState) bool {
	switch from {
	case domain.ConversationIdle:
		return to == domain.ConversationActive
	case domain.ConversationActive:
		return to == domain.ConversationIdle
	default:
		return false
	}
}
