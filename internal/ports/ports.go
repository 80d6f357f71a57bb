package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"darling/internal/domain"
)

// ErrSpeechUnavailable reports that the platform has no speech capability.
var ErrSpeechUnavailable = errors.New("speech recognition is not available")

// TaskStore is the task collection consumed by the command interpreter.
// Unknown ids are no-ops. Every successful mutation is durable when the call returns.
type TaskStore interface {
	Add(text string) (domain.Task, error)
	Toggle(id string) error
	SetCompleted(id string, completed bool) error
	SetText(id string, text string) error
	Remove(id string) error
	RemoveCompleted() (int, error)
	SetFilter(filter domain.Filter)
	Filter() domain.Filter
	Visible() []domain.Task
	All() []domain.Task
	// At resolves a 0-based position in the visible list.
	At(index int) (domain.Task, bool)
	CountIncomplete() int
	HasCompleted() bool
	View() domain.TaskView
}

// BlobStore persists opaque values under fixed keys.
type BlobStore interface {
	// Get returns ok=false when the key has never been written.
	Get(key string) (value []byte, ok bool, err error)
	Put(key string, value []byte) error
	Close() error
}

// SpeechListener receives recognizer and synthesizer events.
type SpeechListener interface {
	OnTranscript(event domain.TranscriptEvent)
	OnRecognitionEnded()
	OnRecognitionError(reason domain.RecognitionError)
}

// SpeechIO is a live recognizer/synthesizer pair.
type SpeechIO interface {
	StartListening() error
	StopListening() error
	// Speak queues text for synthesis and cancels any utterance still playing.
	// done is invoked exactly once when playback ends or fails.
	Speak(text string, done func(error)) error
}

// SpeechProvider constructs speech sessions. Open returns ErrSpeechUnavailable
// when the capability is missing.
type SpeechProvider interface {
	Open(listener SpeechListener) (SpeechIO, error)
}

// ChatSink receives every chat transcript entry.
type ChatSink interface {
	Post(message domain.ChatMessage)
}

// StatusSink receives voice session and task list updates for the UI.
type StatusSink interface {
	VoiceStatusChanged(status domain.VoiceStatus)
	PartialTranscript(text string)
	TasksChanged(view domain.TaskView)
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay on the caller's event loop.
type Scheduler interface {
	AfterFunc(delay time.Duration, fn func()) Timer
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}
