// Package bootstrap assembles the runtime graph shared by every entry point.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"darling/internal/assistant"
	"darling/internal/audio"
	"darling/internal/chat"
	"darling/internal/config"
	"darling/internal/conversation"
	"darling/internal/domain"
	"darling/internal/ports"
	"darling/internal/providers/deepgram"
	"darling/internal/providers/native"
	"darling/internal/rules"
	"darling/internal/storage"
	"darling/internal/tasks"
	"darling/internal/usecase"
)

// Options selects the speech provider and the sinks of one entry point.
type Options struct {
	Config config.Config
	Log    zerolog.Logger
	// Speech is nil for text-only frontends.
	Speech ports.SpeechProvider
	Chat   []ports.ChatSink
	Status []ports.StatusSink
}

// Services is the assembled runtime graph.
type Services struct {
	Config       config.Config
	Log          zerolog.Logger
	Loop         *usecase.Loop
	Service      *usecase.Service
	Voice        *usecase.VoiceController
	Conversation *usecase.Conversation
	Tasks        *tasks.Store
	Transcript   *chat.Transcript

	blobs ports.BlobStore
}

// Build wires all backend dependencies. The caller must start the loop with
// Run and release resources with Close.
func Build(opts Options) (*Services, error) {
	cfg, log := opts.Config, opts.Log

	blobs, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open task storage: %w", err)
	}
	store, err := tasks.Load(blobs, tasks.WithLogger(log.With().Str("component", "tasks").Logger()))
	if err != nil {
		_ = blobs.Close()
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	rulesEngine, err := rules.Load(cfg.Rules.Path, cfg.Rules.IterationLimit, cfg.Rules.Defaults)
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}
	log.Debug().Int("rules", rulesEngine.Len()).Str("path", cfg.Rules.Path).Msg("transcript rules loaded")

	seed := cfg.Assistant.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	helper := assistant.New(store, assistant.NewInterpreter(assistant.RandomChooser(seed)), log.With().Str("component", "assistant").Logger())

	transcript := chat.NewTranscript(opts.Chat...)
	conv := usecase.NewConversation(
		helper,
		transcript,
		conversation.NewWakeDetector(cfg.Assistant.WakePhrase),
		log.With().Str("component", "conversation").Logger(),
	)

	status := usecase.StatusSinks(opts.Status)
	loop := usecase.NewLoop(128)
	voice := usecase.NewVoiceController(
		opts.Speech,
		conv,
		status,
		loop.Scheduler(),
		voiceTimings(cfg.Voice),
		log.With().Str("component", "voice").Logger(),
		usecase.WithLoop(loop),
		usecase.WithRules(rulesEngine),
	)

	store.OnChange(func(view domain.TaskView) {
		loop.Dispatch(func() { status.TasksChanged(view) })
	})

	return &Services{
		Config:       cfg,
		Log:          log,
		Loop:         loop,
		Service:      usecase.NewService(loop, voice, conv, store, transcript),
		Voice:        voice,
		Conversation: conv,
		Tasks:        store,
		Transcript:   transcript,
		blobs:        blobs,
	}, nil
}

// Run drives the event loop until ctx is cancelled or Close is called. The
// voice controller is initialized on the loop first.
func (s *Services) Run(ctx context.Context) error {
	if err := s.Loop.Post(s.Voice.Init); err != nil {
		return err
	}
	err := s.Loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops the loop and the storage backend.
func (s *Services) Close() error {
	s.Loop.Close()
	return s.blobs.Close()
}

// NativeSpeech builds the local microphone and speaker provider.
func NativeSpeech(cfg config.Config, log zerolog.Logger) *native.Provider {
	stt := deepgram.NewProvider(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
		Endpointing: cfg.Deepgram.Endpointing,
	})
	return native.NewProvider(
		audio.NewRecorder(cfg.Audio.RecorderCommand),
		stt,
		audio.NewSpeaker(cfg.Speech.Command, cfg.Speech.Voice),
		native.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				Encoding:   "linear16",
			},
			ChunkSize: cfg.Audio.ChunkSize,
		},
		log.With().Str("component", "native-speech").Logger(),
	)
}

func voiceTimings(cfg config.VoiceConfig) usecase.VoiceTimings {
	return usecase.VoiceTimings{
		Watchdog:          cfg.Watchdog,
		WatchdogRestart:   cfg.WatchdogRestart,
		EndedRestart:      cfg.EndedRestart,
		ResumeAfterSpeech: cfg.ResumeAfterSpeech,
		NoSpeechRestart:   cfg.NoSpeechRestart,
		AbortedRestart:    cfg.AbortedRestart,
		ErrorRestart:      cfg.ErrorRestart,
		ReinitRetry:       cfg.ReinitRetry,
		StreakThreshold:   cfg.StreakThreshold,
		IdleWakeListening: cfg.IdleWakeListening,
	}
}
