// Package native runs voice input and output on the local machine: the
// microphone is recorded with ffmpeg, transcribed by a streaming provider and
// replies are spoken through a text-to-speech command.
package native

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"darling/internal/domain"
	"darling/internal/ports"
)

// Recorder captures microphone audio.
type Recorder interface {
	ports.AudioCapture
	Available() error
}

// Synthesizer speaks text aloud.
type Synthesizer interface {
	Say(ctx context.Context, text string) error
	Available() error
}

// Config controls capture and streaming.
type Config struct {
	Audio     ports.AudioConfig
	Streaming ports.StreamingConfig
	// ChunkSize is the number of PCM bytes sent per websocket frame.
	ChunkSize int
	// StopTimeout bounds how long a stopped session may keep flushing results.
	StopTimeout time.Duration
}

var errNoVoice = errors.New("no speech output configured")

// Provider implements ports.SpeechProvider.
type Provider struct {
	recorder Recorder
	stt      ports.TranscriptionProvider
	voice    Synthesizer
	cfg      Config
	log      zerolog.Logger
}

func NewProvider(recorder Recorder, stt ports.TranscriptionProvider, voice Synthesizer, cfg Config, log zerolog.Logger) *Provider {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	cfg.Streaming.InterimResults = true
	return &Provider{recorder: recorder, stt: stt, voice: voice, cfg: cfg, log: log}
}

// Open checks that recording and transcription can work. A missing speech
// output command only disables spoken replies.
func (p *Provider) Open(listener ports.SpeechListener) (ports.SpeechIO, error) {
	if p.stt == nil || p.recorder == nil {
		return nil, ports.ErrSpeechUnavailable
	}
	if configured, ok := p.stt.(interface{ Configured() bool }); ok && !configured.Configured() {
		return nil, fmt.Errorf("%w: transcription api key is not configured", ports.ErrSpeechUnavailable)
	}
	if err := p.recorder.Available(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrSpeechUnavailable, err)
	}

	sio := &speechIO{provider: p, listener: listener}
	if p.voice == nil {
		sio.voiceErr = errNoVoice
	} else if err := p.voice.Available(); err != nil {
		sio.voiceErr = err
		p.log.Warn().Err(err).Msg("speech output unavailable; replies will only be shown")
	}
	return sio, nil
}

type speechIO struct {
	provider *Provider
	listener ports.SpeechListener
	voiceErr error

	mu          sync.Mutex
	listenGen   uint64
	stopListen  context.CancelFunc
	speakGen    uint64
	cancelSpeak context.CancelFunc
}

// StartListening starts a recognition session in the background. Results,
// errors and the end of the session are reported to the listener.
func (s *speechIO) StartListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopListen != nil {
		return nil
	}
	s.listenGen++
	ctx, cancel := context.WithCancel(context.Background())
	s.stopListen = cancel
	go s.listen(ctx, cancel, s.listenGen)
	return nil
}

func (s *speechIO) StopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopListen != nil {
		s.stopListen()
		s.stopListen = nil
	}
	return nil
}

func (s *speechIO) listen(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()
	reason, err := s.recognize(ctx, gen)

	s.mu.Lock()
	current := gen == s.listenGen
	if current && ctx.Err() == nil {
		s.stopListen = nil
	}
	s.mu.Unlock()
	if !current {
		return
	}

	if reason != "" {
		s.provider.log.Warn().Err(err).Str("reason", string(reason)).Msg("recognition session failed")
		s.listener.OnRecognitionError(reason)
	}
	s.listener.OnRecognitionEnded()
}

// recognize runs one session until the stream closes or ctx is cancelled.
func (s *speechIO) recognize(ctx context.Context, gen uint64) (domain.RecognitionError, error) {
	p := s.provider

	capture, err := p.recorder.Start(ctx, p.cfg.Audio)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil
		}
		return domain.RecognitionAudioCapture, err
	}
	defer capture.Stop()

	streamCtx, cancelStream := context.WithCancel(context.Background())
	defer cancelStream()
	stream, err := p.stt.StartStreaming(streamCtx, p.cfg.Streaming)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil
		}
		return domain.RecognitionNetwork, err
	}

	pumped := make(chan error, 1)
	go func() {
		err := pumpAudio(capture, stream, p.cfg.ChunkSize)
		_ = stream.CloseSend()
		pumped <- err
	}()

	drained := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-drained:
			return
		}
		select {
		case <-time.After(p.cfg.StopTimeout):
			cancelStream()
		case <-drained:
		}
	}()

	heard := false
	for event := range stream.Events() {
		if strings.TrimSpace(event.Text) == "" || !s.isCurrent(gen) {
			continue
		}
		heard = true
		s.listener.OnTranscript(event)
	}
	close(drained)

	streamErr := stream.Wait()
	_ = capture.Stop()
	pumpErr := <-pumped

	switch {
	case ctx.Err() != nil:
		return "", nil
	case streamErr != nil:
		return domain.RecognitionNetwork, streamErr
	case pumpErr != nil && !errors.Is(pumpErr, errStreamGone):
		return domain.RecognitionAudioCapture, pumpErr
	case !heard:
		return domain.RecognitionNoSpeech, nil
	}
	return "", nil
}

func (s *speechIO) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.listenGen
}

// Speak plays text in the background and cancels any utterance still
// playing.
func (s *speechIO) Speak(text string, done func(error)) error {
	if s.voiceErr != nil {
		return s.voiceErr
	}

	s.mu.Lock()
	if s.cancelSpeak != nil {
		s.cancelSpeak()
	}
	s.speakGen++
	gen := s.speakGen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelSpeak = cancel
	s.mu.Unlock()

	go func() {
		err := s.provider.voice.Say(ctx, text)

		s.mu.Lock()
		if gen == s.speakGen {
			s.cancelSpeak = nil
		}
		s.mu.Unlock()
		cancel()

		if done != nil {
			done(err)
		}
	}()
	return nil
}
