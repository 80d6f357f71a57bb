package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"darling/internal/bootstrap"
	"darling/internal/config"
	"darling/internal/domain"
	"darling/internal/ports"
	"darling/internal/providers/wsbridge"
	"darling/internal/speech"
)

const (
	eventPrefix = "darling:"
	eventListen = eventPrefix + "listen"
	eventError  = eventPrefix + "error"
)

// App is the Wails application root. The webview runs the Web Speech API and
// reports through the On* methods; Go drives it with runtime events.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg      config.Config
	log      zerolog.Logger
	bridge   *wsbridge.Bridge
	page     *emitter
	services *bootstrap.Services
	bootErr  error

	emit func(ctx context.Context, event string, data ...interface{})
}

func NewApp(cfg config.Config, log zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		log:    log,
		bridge: wsbridge.New(log.With().Str("component", "webview").Logger()),
		emit:   runtime.EventsEmit,
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.page = &emitter{ctx: ctx, emit: a.emit}

	services, err := bootstrap.Build(bootstrap.Options{
		Config: a.cfg,
		Log:    a.log,
		Speech: a.bridge,
		Chat:   []ports.ChatSink{a.bridge},
		Status: []ports.StatusSink{a.bridge},
	})
	if err != nil {
		a.bootErr = err
		a.log.Error().Err(err).Msg("startup failed")
		a.emit(ctx, eventError, wsbridge.Frame{Type: "error", Text: "Startup failed: " + err.Error()})
		return
	}

	a.services = services
	a.bridge.SetCommands(services.Service)

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go func() {
		if err := services.Run(runCtx); err != nil {
			a.log.Error().Err(err).Msg("event loop stopped")
		}
	}()
}

func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil {
		if err := a.services.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close services")
		}
	}
}

// Ready is called by the page once its event listeners are registered.
func (a *App) Ready(speechSupported bool) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.bridge.Connect(a.ctx, a.page)
	a.bridge.SetSupported(speechSupported)
	return nil
}

// OpenAssistant shows the chat panel and starts listening.
func (a *App) OpenAssistant() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Service.OpenAssistant(a.ctx)
}

// CloseAssistant hides the chat panel and stops listening.
func (a *App) CloseAssistant() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Service.CloseAssistant(a.ctx)
}

// ProcessText answers a typed chat message.
func (a *App) ProcessText(text string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.services.Service.ProcessText(a.ctx, text)
}

func (a *App) GetTasks() (domain.TaskView, error) {
	if err := a.requireReady(); err != nil {
		return domain.TaskView{}, err
	}
	return a.services.Service.Tasks(a.ctx)
}

func (a *App) AddTask(text string) (domain.Task, error) {
	if err := a.requireReady(); err != nil {
		return domain.Task{}, err
	}
	return a.services.Service.AddTask(a.ctx, text)
}

func (a *App) ToggleTask(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Service.ToggleTask(a.ctx, id)
}

func (a *App) EditTask(id string, text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Service.EditTask(a.ctx, id, text)
}

func (a *App) DeleteTask(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Service.DeleteTask(a.ctx, id)
}

func (a *App) SetFilter(filter string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Service.SetFilter(a.ctx, filter)
}

func (a *App) ClearCompleted() (int, error) {
	if err := a.requireReady(); err != nil {
		return 0, err
	}
	return a.services.Service.ClearCompleted(a.ctx)
}

// GetStatus returns the voice status.
func (a *App) GetStatus() (domain.VoiceStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.VoiceStatus{}, err
	}
	return a.services.Service.Status(a.ctx)
}

// OnTranscript receives recognizer output from the page.
func (a *App) OnTranscript(text string, isFinal bool) {
	a.bridge.Transcript(text, isFinal)
}

func (a *App) OnRecognitionEnded() {
	a.bridge.RecognitionEnded()
}

// OnRecognitionError receives a Web Speech API error code.
func (a *App) OnRecognitionError(reason string) {
	a.bridge.RecognitionError(reason)
}

// OnSpeakDone reports that utterance id finished; errMessage is empty on
// success.
func (a *App) OnSpeakDone(id int, errMessage string) {
	a.bridge.SpeakDone(id, errMessage)
}

// SetVoices reports the synthesis voices the webview offers.
func (a *App) SetVoices(voices []speech.Voice) {
	a.bridge.SetVoices(voices)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	return map[string]string{
		"wakePhrase":   a.cfg.Assistant.WakePhrase,
		"storage":      a.cfg.Storage.Driver,
		"storagePath":  a.cfg.Storage.Path,
		"rulesFile":    a.cfg.Rules.Path,
		"idleWakeMode": fmt.Sprintf("%t", a.cfg.Voice.IdleWakeListening),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// emitter turns bridge frames into runtime events.
type emitter struct {
	ctx  context.Context
	emit func(ctx context.Context, event string, data ...interface{})
}

func (e *emitter) Send(frame wsbridge.Frame) {
	e.emit(e.ctx, eventName(frame.Type), frame)
}

func eventName(frameType string) string {
	switch frameType {
	case "start", "stop":
		return eventListen
	default:
		return eventPrefix + frameType
	}
}
