package audio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"darling/internal/speech"
)

// Speaker synthesizes speech by running a text-to-speech command with the
// text as its final argument.
type Speaker struct {
	command string
	voice   string
	params  speech.Params
}

func NewSpeaker(command, voice string) *Speaker {
	if strings.TrimSpace(command) == "" {
		command = "espeak"
	}
	return &Speaker{
		command: command,
		voice:   voice,
		params:  speech.SpeakParams(speech.Voice{Name: voice}),
	}
}

func (s *Speaker) Available() error {
	return lookPath(s.command)
}

// Say blocks until playback ends. Cancelling ctx interrupts playback.
func (s *Speaker) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, s.command, s.args(text)...)
	cmd.WaitDelay = 500 * time.Millisecond
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("run %s: %w: %s", s.command, err, detail)
		}
		return fmt.Errorf("run %s: %w", s.command, err)
	}
	return nil
}

// args maps speak params onto espeak flags. Other commands get only the text.
func (s *Speaker) args(text string) []string {
	base := filepath.Base(s.command)
	if base != "espeak" && base != "espeak-ng" {
		return []string{text}
	}
	args := []string{
		"-p", strconv.Itoa(int(s.params.Pitch * 50)),
		"-s", strconv.Itoa(int(s.params.Rate * 175)),
		"-a", strconv.Itoa(int(s.params.Volume * 100)),
	}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	return append(args, text)
}
