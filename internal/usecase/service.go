package usecase

import (
	"context"
	"fmt"

	"darling/internal/domain"
	"darling/internal/ports"
)

// History lists the chat transcript.
type History interface {
	Messages() []domain.ChatMessage
}

// Service is the entry point used by frontends. Each call runs on the loop,
// so UI actions and speech events never interleave.
type Service struct {
	loop         *Loop
	voice        *VoiceController
	conversation *Conversation
	tasks        ports.TaskStore
	history      History
}

func NewService(loop *Loop, voice *VoiceController, conversation *Conversation, tasks ports.TaskStore, history History) *Service {
	return &Service{
		loop:         loop,
		voice:        voice,
		conversation: conversation,
		tasks:        tasks,
		history:      history,
	}
}

// ProcessText answers a typed message.
func (s *Service) ProcessText(ctx context.Context, text string) (string, error) {
	var reply string
	err := s.loop.Call(ctx, func() {
		reply = s.conversation.ProcessText(text)
	})
	return reply, err
}

// OpenAssistant shows the assistant panel and starts listening.
func (s *Service) OpenAssistant(ctx context.Context) error {
	return s.loop.Call(ctx, s.voice.Open)
}

// CloseAssistant hides the panel, stops listening and cancels all timers.
func (s *Service) CloseAssistant(ctx context.Context) error {
	return s.loop.Call(ctx, s.voice.Close)
}

func (s *Service) Status(ctx context.Context) (domain.VoiceStatus, error) {
	var status domain.VoiceStatus
	err := s.loop.Call(ctx, func() {
		status = s.voice.Status()
	})
	return status, err
}

func (s *Service) History(ctx context.Context) ([]domain.ChatMessage, error) {
	if s.history == nil {
		return nil, nil
	}
	var messages []domain.ChatMessage
	err := s.loop.Call(ctx, func() {
		messages = s.history.Messages()
	})
	return messages, err
}

func (s *Service) Tasks(ctx context.Context) (domain.TaskView, error) {
	var view domain.TaskView
	err := s.loop.Call(ctx, func() {
		view = s.tasks.View()
	})
	return view, err
}

func (s *Service) AddTask(ctx context.Context, text string) (domain.Task, error) {
	var task domain.Task
	err := s.onLoop(ctx, func() error {
		var err error
		task, err = s.tasks.Add(text)
		return err
	})
	return task, err
}

func (s *Service) ToggleTask(ctx context.Context, id string) error {
	return s.onLoop(ctx, func() error { return s.tasks.Toggle(id) })
}

func (s *Service) EditTask(ctx context.Context, id string, text string) error {
	return s.onLoop(ctx, func() error { return s.tasks.SetText(id, text) })
}

func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.onLoop(ctx, func() error { return s.tasks.Remove(id) })
}

func (s *Service) ClearCompleted(ctx context.Context) (int, error) {
	var removed int
	err := s.onLoop(ctx, func() error {
		var err error
		removed, err = s.tasks.RemoveCompleted()
		return err
	})
	return removed, err
}

// SetFilter changes the visible tasks. Unknown names select all tasks.
func (s *Service) SetFilter(ctx context.Context, name string) error {
	filter, _ := domain.ParseFilter(name)
	return s.loop.Call(ctx, func() { s.tasks.SetFilter(filter) })
}

func (s *Service) onLoop(ctx context.Context, fn func() error) error {
	var opErr error
	if err := s.loop.Call(ctx, func() { opErr = fn() }); err != nil {
		return err
	}
	if opErr != nil {
		return fmt.Errorf("task update: %w", opErr)
	}
	return nil
}

// StatusSinks fans status updates out to several sinks.
type StatusSinks []ports.StatusSink

func (s StatusSinks) VoiceStatusChanged(status domain.VoiceStatus) {
	for _, sink := range s {
		sink.VoiceStatusChanged(status)
	}
}

func (s StatusSinks) PartialTranscript(text string) {
	for _, sink := range s {
		sink.PartialTranscript(text)
	}
}

func (s StatusSinks) TasksChanged(view domain.TaskView) {
	for _, sink := range s {
		sink.TasksChanged(view)
	}
}
