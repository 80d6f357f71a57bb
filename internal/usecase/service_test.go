package usecase

import (
	"context"
	"errors"
	"testing"

	"darling/internal/domain"
)

func TestServiceProcessTextRunsOnLoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, DefaultVoiceTimings())
	svc, ctx := newTestService(t, h)

	reply, err := svc.ProcessText(ctx, "add task buy milk")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	if reply != `I've added "buy milk" to your task list.` {
		t.Fatalf("unexpected reply %q", reply)
	}

	view, err := svc.Tasks(ctx)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(view.Tasks) != 1 || view.Summary != "1 task left" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestServiceTaskActions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, DefaultVoiceTimings())
	svc, ctx := newTestService(t, h)

	task, err := svc.AddTask(ctx, "water plants")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := svc.EditTask(ctx, task.ID, "water the plants"); err != nil {
		t.Fatalf("EditTask: %v", err)
	}
	if err := svc.ToggleTask(ctx, task.ID); err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}
	if err := svc.SetFilter(ctx, "completed"); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}

	view, _ := svc.Tasks(ctx)
	if view.Filter != domain.FilterCompleted || len(view.Tasks) != 1 || view.Tasks[0].Text != "water the plants" || !view.Tasks[0].Completed {
		t.Fatalf("unexpected view %+v", view)
	}

	removed, err := svc.ClearCompleted(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearCompleted = %d, %v", removed, err)
	}
	if err := svc.DeleteTask(ctx, "missing"); err != nil {
		t.Fatalf("deleting an unknown id should be a no-op, got %v", err)
	}

	if _, err := svc.AddTask(ctx, "   "); err == nil {
		t.Fatalf("expected blank task to be rejected")
	}
}

func TestServiceOpenAndCloseAssistant(t *testing.T) {
	t.Parallel()

	h := newHarness(t, DefaultVoiceTimings())
	svc, ctx := newTestService(t, h)

	if err := svc.OpenAssistant(ctx); err != nil {
		t.Fatalf("OpenAssistant: %v", err)
	}
	status, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Open || !status.Listening || !status.VoiceAvailable {
		t.Fatalf("unexpected status after open: %+v", status)
	}

	if err := svc.CloseAssistant(ctx); err != nil {
		t.Fatalf("CloseAssistant: %v", err)
	}
	status, _ = svc.Status(ctx)
	if status.Open || status.Listening {
		t.Fatalf("unexpected status after close: %+v", status)
	}
}

func TestServiceHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t, DefaultVoiceTimings())
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Run(ctx) }()

	history := staticHistory{{Role: domain.RoleSystem, Text: "Darling Assistant activated"}}
	svc := NewService(loop, h.controller, h.conversation, h.store, history)

	messages, err := svc.History(ctx)
	if err != nil || len(messages) != 1 {
		t.Fatalf("History = %+v, %v", messages, err)
	}
}

func TestServiceFailsAfterLoopCloses(t *testing.T) {
	t.Parallel()

	h := newHarness(t, DefaultVoiceTimings())
	loop := NewLoop(8)
	loop.Close()
	svc := NewService(loop, h.controller, h.conversation, h.store, nil)

	if _, err := svc.ProcessText(context.Background(), "help"); !errors.Is(err, ErrLoopClosed) {
		t.Fatalf("expected ErrLoopClosed, got %v", err)
	}
}

func TestStatusSinksFanOut(t *testing.T) {
	t.Parallel()

	first, second := &recordingStatus{}, &recordingStatus{}
	sinks := StatusSinks{first, second}

	sinks.VoiceStatusChanged(domain.VoiceStatus{Open: true})
	sinks.PartialTranscript("add task")
	sinks.TasksChanged(domain.TaskView{Summary: "0 tasks left"})

	for _, sink := range []*recordingStatus{first, second} {
		if len(sink.statuses) != 1 || len(sink.partials) != 1 || len(sink.views) != 1 {
			t.Fatalf("expected every sink to receive each update: %+v", sink)
		}
	}
}

func newTestService(t *testing.T, h *harness) (*Service, context.Context) {
	t.Helper()
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = loop.Run(ctx) }()
	return NewService(loop, h.controller, h.conversation, h.store, nil), ctx
}

type staticHistory []domain.ChatMessage

func (h staticHistory) Messages() []domain.ChatMessage { return h }
