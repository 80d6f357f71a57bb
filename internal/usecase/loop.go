package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"darling/internal/domain"
	"darling/internal/ports"
)

// ErrLoopClosed is returned when work is posted to a stopped loop.
var ErrLoopClosed = errors.New("event loop closed")

// Loop runs posted functions one at a time on the goroutine that calls Run.
// All conversation and voice state is owned by that goroutine.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoop returns a loop with room for buffer queued functions.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Call runs fn on the loop and waits for it to return. It must not be
// called from the loop goroutine.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Dispatch posts fn, dropping it when the loop is closed.
func (l *Loop) Dispatch(fn func()) {
	_ = l.Post(fn)
}

// Close stops the loop. Queued functions that have not started are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Scheduler returns a scheduler whose callbacks run on the loop.
func (l *Loop) Scheduler() ports.Scheduler {
	return loopScheduler{loop: l}
}

type loopScheduler struct {
	loop *Loop
}

func (s loopScheduler) AfterFunc(delay time.Duration, fn func()) ports.Timer {
	return time.AfterFunc(delay, func() { s.loop.Dispatch(fn) })
}

// SerialListener forwards recognizer events to next on the loop goroutine.
func SerialListener(loop *Loop, next ports.SpeechListener) ports.SpeechListener {
	return serialListener{loop: loop, next: next}
}

type serialListener struct {
	loop *Loop
	next ports.SpeechListener
}

func (s serialListener) OnTranscript(event domain.TranscriptEvent) {
	s.loop.Dispatch(func() { s.next.OnTranscript(event) })
}

func (s serialListener) OnRecognitionEnded() {
	s.loop.Dispatch(s.next.OnRecognitionEnded)
}

func (s serialListener) OnRecognitionError(reason domain.RecognitionError) {
	s.loop.Dispatch(func() { s.next.OnRecognitionError(reason) })
}
