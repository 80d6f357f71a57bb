package domain

import (
	"strings"
	"time"
)

// Task is one to-do item. IDs are generated by the task store and never reused.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Filter selects which tasks are visible.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter maps user input onto a filter; unknown values fall back to all.
func ParseFilter(value string) (Filter, bool) {
	switch Filter(strings.ToLower(strings.TrimSpace(value))) {
	case FilterAll:
		return FilterAll, true
	case FilterActive:
		return FilterActive, true
	case FilterCompleted:
		return FilterCompleted, true
	default:
		return FilterAll, false
	}
}

// Matches reports whether the task is visible under the filter.
func (f Filter) Matches(task Task) bool {
	switch f {
	case FilterActive:
		return !task.Completed
	case FilterCompleted:
		return task.Completed
	default:
		return true
	}
}

// ConversationState tracks whether the assistant acts on spoken utterances.
type ConversationState string

const (
	ConversationIdle   ConversationState = "idle"
	ConversationActive ConversationState = "active"
)

// PendingKind names an operation that is waiting for its missing slot.
type PendingKind string

const (
	PendingNone     PendingKind = ""
	PendingAdd      PendingKind = "add"
	PendingComplete PendingKind = "complete"
	PendingDelete   PendingKind = "delete"
)

// PendingAction remembers an operation that asked the user for a follow-up.
type PendingAction struct {
	Kind PendingKind `json:"kind"`
}

// IsSet reports whether an action is waiting.
func (p PendingAction) IsSet() bool {
	return p.Kind != PendingNone
}

// Mode identifies the entry point an utterance came from.
type Mode string

const (
	ModeVoice Mode = "voice"
	ModeText  Mode = "text"
)

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatMessage is one entry of the conversation transcript.
type ChatMessage struct {
	Role ChatRole  `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// RecognitionError is the reason reported by a speech recognizer.
// Values follow the Web Speech API error codes.
type RecognitionError string

const (
	RecognitionNoSpeech           RecognitionError = "no-speech"
	RecognitionAborted            RecognitionError = "aborted"
	RecognitionAudioCapture       RecognitionError = "audio-capture"
	RecognitionNetwork            RecognitionError = "network"
	RecognitionNotAllowed         RecognitionError = "not-allowed"
	RecognitionServiceNotAllowed  RecognitionError = "service-not-allowed"
	RecognitionBadGrammar         RecognitionError = "bad-grammar"
	RecognitionLanguageNotSupport RecognitionError = "language-not-supported"
)

// TranscriptKind identifies whether a recognizer event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental recognizer output.
type TranscriptEvent struct {
	Kind TranscriptKind `json:"kind"`
	Text string         `json:"text"`
}

// IsFinal reports whether the event closes the current utterance.
func (e TranscriptEvent) IsFinal() bool {
	return e.Kind == TranscriptKindFinal
}

// VoiceStatus summarizes the voice session for the UI.
type VoiceStatus struct {
	Open           bool              `json:"open"`
	Conversation   ConversationState `json:"conversation"`
	Listening      bool              `json:"listening"`
	Speaking       bool              `json:"speaking"`
	VoiceAvailable bool              `json:"voiceAvailable"`
}

// TaskView is the rendered task list sent to frontends.
type TaskView struct {
	Filter  Filter `json:"filter"`
	Tasks   []Task `json:"tasks"`
	Summary string `json:"summary"`
}
