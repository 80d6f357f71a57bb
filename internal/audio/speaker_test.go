package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSpeakerPassesTextToCommand(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "spoken.txt")
	script := writeScript(t, "say", "#!/usr/bin/env bash\nprintf '%s' \"$*\" > "+out+"\n")

	if err := NewSpeaker(script, "").Say(context.Background(), "  Task added.  "); err != nil {
		t.Fatalf("Say: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "Task added." {
		t.Fatalf("spoken = %q", string(data))
	}
}

func TestSpeakerSkipsBlankText(t *testing.T) {
	t.Parallel()

	speaker := NewSpeaker(filepath.Join(t.TempDir(), "missing"), "")
	if err := speaker.Say(context.Background(), "   "); err != nil {
		t.Fatalf("expected blank text to be skipped, got %v", err)
	}
}

func TestSpeakerReportsCommandFailure(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "say", "#!/usr/bin/env bash\necho 'no audio device' 1>&2\nexit 3\n")
	err := NewSpeaker(script, "").Say(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "no audio device") {
		t.Fatalf("expected failure with detail, got %v", err)
	}
}

func TestSpeakerCancel(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "say", "#!/usr/bin/env bash\nexec sleep 5\n")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := NewSpeaker(script, "").Say(ctx, "hello")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestSpeakerEspeakArgs(t *testing.T) {
	t.Parallel()

	got := strings.Join(NewSpeaker("/usr/bin/espeak", "en-us+f3").args("hi"), " ")
	want := "-p 57 -s 171 -a 100 -v en-us+f3 hi"
	if got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
	if got := NewSpeaker("say", "").args("hi"); len(got) != 1 || got[0] != "hi" {
		t.Fatalf("expected plain text args, got %v", got)
	}
}
