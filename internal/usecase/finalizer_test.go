package usecase

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestUtteranceFinalizerAppliesRules(t *testing.T) {
	t.Parallel()

	f := newUtteranceFinalizer(&fakeRules{transform: "add task buy milk"}, zerolog.Nop())
	if got := f.Finalize(" at task buy milk "); got != "add task buy milk" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestUtteranceFinalizerFallsBackToRawOnError(t *testing.T) {
	t.Parallel()

	f := newUtteranceFinalizer(&fakeRules{err: errors.New("rules")}, zerolog.Nop())
	if got := f.Finalize("show tasks"); got != "show tasks" {
		t.Fatalf("expected raw transcript, got %q", got)
	}
}

func TestUtteranceFinalizerWithoutRules(t *testing.T) {
	t.Parallel()

	f := newUtteranceFinalizer(nil, zerolog.Nop())
	if got := f.Finalize("  hello  "); got != "hello" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestUtteranceFinalizerKeepsRawWhenRulesEraseText(t *testing.T) {
	t.Parallel()

	f := newUtteranceFinalizer(&fakeRules{erase: true}, zerolog.Nop())
	if got := f.Finalize("um"); got != "um" {
		t.Fatalf("expected raw transcript, got %q", got)
	}
}

type fakeRules struct {
	transform string
	erase     bool
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.erase {
		return " ", nil
	}
	if f.transform != "" {
		return f.transform, nil
	}
	return text, nil
}
