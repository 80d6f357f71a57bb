package usecase

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"darling/internal/domain"
	"darling/internal/ports"
)

// User-facing voice notices.
const (
	MsgUnsupported    = "Speech recognition is not supported on your device. Please use text input instead."
	MsgAudioCapture   = "I can't access your microphone. Please check your device settings."
	MsgNetwork        = "Network error occurred. Please check your connection."
	MsgNotAllowed     = "Microphone access denied. Please enable microphone permissions."
	MsgTroubleHearing = "Sorry, I had trouble hearing you. Please try again."
	MsgTroubleshoot   = "I'm having trouble with speech recognition. You might want to try refreshing the page or using text input instead."
	MsgVoiceDisabled  = "I couldn't start speech recognition. Voice input is off; you can keep typing your requests."
)

// VoiceTimings holds the restart delays and limits of a voice session.
type VoiceTimings struct {
	Watchdog          time.Duration
	WatchdogRestart   time.Duration
	EndedRestart      time.Duration
	ResumeAfterSpeech time.Duration
	NoSpeechRestart   time.Duration
	AbortedRestart    time.Duration
	ErrorRestart      time.Duration
	ReinitRetry       time.Duration
	StreakThreshold   int
	// IdleWakeListening keeps the recognizer running while idle so the wake
	// phrase can be heard without reopening the panel.
	IdleWakeListening bool
}

// DefaultVoiceTimings returns the stock delays.
func DefaultVoiceTimings() VoiceTimings {
	return VoiceTimings{
		Watchdog:          30 * time.Second,
		WatchdogRestart:   500 * time.Millisecond,
		EndedRestart:      500 * time.Millisecond,
		ResumeAfterSpeech: 500 * time.Millisecond,
		NoSpeechRestart:   300 * time.Millisecond,
		AbortedRestart:    500 * time.Millisecond,
		ErrorRestart:      time.Second,
		ReinitRetry:       time.Second,
		StreakThreshold:   5,
		IdleWakeListening: true,
	}
}

func (t VoiceTimings) withDefaults() VoiceTimings {
	d := DefaultVoiceTimings()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.Watchdog, d.Watchdog)
	fill(&t.WatchdogRestart, d.WatchdogRestart)
	fill(&t.EndedRestart, d.EndedRestart)
	fill(&t.ResumeAfterSpeech, d.ResumeAfterSpeech)
	fill(&t.NoSpeechRestart, d.NoSpeechRestart)
	fill(&t.AbortedRestart, d.AbortedRestart)
	fill(&t.ErrorRestart, d.ErrorRestart)
	fill(&t.ReinitRetry, d.ReinitRetry)
	if t.StreakThreshold <= 0 {
		t.StreakThreshold = d.StreakThreshold
	}
	return t
}

// VoiceController owns the listening lifecycle: it starts and restarts the
// recognizer, pauses it while speaking, and turns final transcripts into
// replies. Every method must run on the loop goroutine.
type VoiceController struct {
	provider     ports.SpeechProvider
	listener     ports.SpeechListener
	conversation *Conversation
	status       ports.StatusSink
	sched        ports.Scheduler
	dispatch     func(func())
	timings      VoiceTimings
	aggregator   *transcriptAggregator
	finalizer    utteranceFinalizer
	log          zerolog.Logger

	speech      ports.SpeechIO
	initialized bool
	available   bool
	open        bool
	listening   bool
	speaking    bool
	errorStreak int
	speakSeq    uint64
	retried     bool

	watchdog    ports.Timer
	watchdogGen uint64
	restart     ports.Timer
	restartGen  uint64

	lastStatus *domain.VoiceStatus
}

// VoiceOption customizes a VoiceController.
type VoiceOption func(*VoiceController)

// WithLoop delivers recognizer events and speech completions through loop.
func WithLoop(loop *Loop) VoiceOption {
	return func(c *VoiceController) {
		c.listener = SerialListener(loop, c)
		c.dispatch = loop.Dispatch
	}
}

// WithRules sets the transcript corrections applied to final utterances.
func WithRules(rules ports.RulesEngine) VoiceOption {
	return func(c *VoiceController) { c.finalizer.rules = rules }
}

// NewVoiceController wires a controller. provider may be nil for text-only use.
func NewVoiceController(
	provider ports.SpeechProvider,
	conversation *Conversation,
	status ports.StatusSink,
	sched ports.Scheduler,
	timings VoiceTimings,
	log zerolog.Logger,
	opts ...VoiceOption,
) *VoiceController {
	c := &VoiceController{
		provider:     provider,
		conversation: conversation,
		status:       status,
		sched:        sched,
		dispatch:     func(fn func()) { fn() },
		timings:      timings.withDefaults(),
		aggregator:   newTranscriptAggregator(),
		finalizer:    newUtteranceFinalizer(nil, log),
		log:          log,
	}
	c.listener = c
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init opens the speech provider once. A missing capability posts a single
// notice and leaves text entry working.
func (c *VoiceController) Init() {
	if c.initialized {
		return
	}
	c.initialized = true
	c.openProvider()
	c.emitStatus()
}

func (c *VoiceController) openProvider() bool {
	if c.provider == nil {
		c.disable(MsgUnsupported, ports.ErrSpeechUnavailable)
		return false
	}
	speech, err := c.provider.Open(c.listener)
	if err != nil {
		c.disable(MsgUnsupported, err)
		return false
	}
	c.speech = speech
	c.available = true
	c.log.Info().Msg("speech recognition initialized")
	return true
}

func (c *VoiceController) disable(notice string, cause error) {
	c.available = false
	c.speech = nil
	c.listening = false
	c.stopWatchdog()
	c.cancelRestart()
	if errors.Is(cause, ports.ErrSpeechUnavailable) {
		c.log.Warn().Err(cause).Msg("speech recognition unavailable")
	} else {
		c.log.Error().Err(cause).Msg("speech recognition disabled")
	}
	c.conversation.Notice(notice)
	c.emitStatus()
}

// Available reports whether voice input can be used.
func (c *VoiceController) Available() bool {
	return c.available
}

// ErrorStreak returns the number of consecutive recognition errors.
func (c *VoiceController) ErrorStreak() int {
	return c.errorStreak
}

// Status returns the current voice status.
func (c *VoiceController) Status() domain.VoiceStatus {
	return domain.VoiceStatus{
		Open:           c.open,
		Conversation:   c.conversation.Session().State(),
		Listening:      c.listening,
		Speaking:       c.speaking,
		VoiceAvailable: c.available,
	}
}

// Open shows the assistant and starts listening.
func (c *VoiceController) Open() {
	c.Init()
	if c.open {
		return
	}
	c.open = true
	c.StartListening()
	c.emitStatus()
}

// Close hides the assistant, stops listening and cancels every timer.
func (c *VoiceController) Close() {
	c.open = false
	c.StopListening()
	c.emitStatus()
}

// StartListening starts the recognizer unless it is already running. Any
// restart waiting on a timer is cancelled.
func (c *VoiceController) StartListening() {
	c.cancelRestart()
	if !c.available || c.speech == nil || c.listening {
		return
	}

	if err := c.speech.StartListening(); err != nil {
		c.startFailed(err)
		return
	}
	c.listening = true
	c.retried = false
	c.armWatchdog()
	c.log.Debug().Msg("listening")
	c.emitStatus()
}

func (c *VoiceController) startFailed(err error) {
	c.listening = false
	if errors.Is(err, ports.ErrSpeechUnavailable) {
		c.disable(MsgUnsupported, err)
		return
	}
	if c.retried {
		c.disable(MsgVoiceDisabled, err)
		return
	}
	c.retried = true
	c.log.Warn().Err(err).Dur("retry_in", c.timings.ReinitRetry).Msg("start listening failed; reinitializing")
	c.schedule(c.timings.ReinitRetry, func() {
		if !c.open || !c.openProvider() {
			return
		}
		c.StartListening()
	})
}

// StopListening stops the recognizer and cancels the watchdog and any
// pending restart.
func (c *VoiceController) StopListening() {
	c.cancelRestart()
	c.stopWatchdog()
	if !c.listening || c.speech == nil {
		return
	}
	c.listening = false
	if err := c.speech.StopListening(); err != nil {
		c.log.Warn().Err(err).Msg("stop listening failed")
	}
	c.emitStatus()
}

// Speak stops listening, speaks text and resumes listening shortly after
// playback ends or fails. Without voice output it does nothing.
func (c *VoiceController) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" || !c.available || c.speech == nil {
		return
	}

	c.StopListening()
	c.speakSeq++
	seq := c.speakSeq
	c.speaking = true
	c.emitStatus()

	err := c.speech.Speak(text, func(err error) {
		c.dispatch(func() { c.speakDone(seq, err) })
	})
	if err != nil {
		c.speakDone(seq, err)
	}
}

func (c *VoiceController) speakDone(seq uint64, err error) {
	if seq != c.speakSeq {
		return
	}
	c.speaking = false
	if err != nil {
		c.log.Warn().Err(err).Msg("speech synthesis failed")
	}
	c.emitStatus()
	if c.engaged() {
		c.schedule(c.timings.ResumeAfterSpeech, c.resumeIfEngaged)
	}
}

// OnTranscript handles recognizer output. Partial text is only displayed;
// a final event completes the utterance.
func (c *VoiceController) OnTranscript(event domain.TranscriptEvent) {
	c.errorStreak = 0
	if c.listening {
		c.armWatchdog()
	}

	text := strings.TrimSpace(event.Text)
	c.aggregator.Add(event)
	if !event.IsFinal() {
		if text != "" && c.status != nil {
			c.status.PartialTranscript(text)
		}
		return
	}

	utterance := c.finalizer.Finalize(c.aggregator.Flush())
	if utterance == "" {
		return
	}
	reply, ok := c.conversation.HandleUtterance(utterance)
	c.emitStatus()
	if ok {
		c.Speak(reply)
	}
}

// OnRecognitionEnded restarts the recognizer after a short pause while the
// conversation is engaged.
func (c *VoiceController) OnRecognitionEnded() {
	c.listening = false
	c.stopWatchdog()
	c.emitStatus()
	if c.engaged() {
		c.schedule(c.timings.EndedRestart, c.resumeIfEngaged)
	}
}

// OnRecognitionError classifies a recognizer failure, tells the user when it
// is actionable and schedules a delayed restart.
func (c *VoiceController) OnRecognitionError(reason domain.RecognitionError) {
	c.listening = false
	c.stopWatchdog()
	c.errorStreak++
	c.log.Warn().Str("reason", string(reason)).Int("streak", c.errorStreak).Msg("recognition error")

	switch reason {
	case domain.RecognitionNoSpeech:
		c.errorStreak = 0
		c.schedule(c.timings.NoSpeechRestart, c.resumeIfOpen)
		c.emitStatus()
		return
	case domain.RecognitionAborted:
		c.schedule(c.timings.AbortedRestart, c.resumeIfOpen)
		c.emitStatus()
		return
	case domain.RecognitionAudioCapture:
		c.conversation.Notice(MsgAudioCapture)
	case domain.RecognitionNetwork:
		c.conversation.Notice(MsgNetwork)
	case domain.RecognitionNotAllowed, domain.RecognitionServiceNotAllowed:
		c.conversation.Notice(MsgNotAllowed)
	default:
		if c.conversation.Session().Active() {
			c.conversation.Notice(MsgTroubleHearing)
		}
	}

	if c.errorStreak >= c.timings.StreakThreshold {
		c.conversation.Notice(MsgTroubleshoot)
		c.errorStreak = 0
	}
	c.schedule(c.timings.ErrorRestart, c.resumeIfOpen)
	c.emitStatus()
}

// engaged reports whether the recognizer should be running.
func (c *VoiceController) engaged() bool {
	if !c.open || !c.available || c.speaking {
		return false
	}
	return c.conversation.Session().Active() || c.timings.IdleWakeListening
}

func (c *VoiceController) resumeIfEngaged() {
	if c.engaged() {
		c.StartListening()
	}
}

func (c *VoiceController) resumeIfOpen() {
	if c.open && c.available && !c.speaking {
		c.StartListening()
	}
}

// schedule arms the single restart slot. A restart already waiting keeps
// its deadline.
func (c *VoiceController) schedule(delay time.Duration, fn func()) {
	if c.restart != nil {
		return
	}
	c.restartGen++
	gen := c.restartGen
	c.restart = c.sched.AfterFunc(delay, func() {
		if gen != c.restartGen {
			return
		}
		c.restart = nil
		fn()
	})
}

func (c *VoiceController) cancelRestart() {
	c.restartGen++
	if c.restart != nil {
		c.restart.Stop()
		c.restart = nil
	}
}

func (c *VoiceController) armWatchdog() {
	c.stopWatchdog()
	gen := c.watchdogGen
	c.watchdog = c.sched.AfterFunc(c.timings.Watchdog, func() {
		if gen != c.watchdogGen {
			return
		}
		c.watchdog = nil
		c.log.Info().Dur("after", c.timings.Watchdog).Msg("listening watchdog expired; restarting recognizer")
		c.StopListening()
		c.schedule(c.timings.WatchdogRestart, c.resumeIfOpen)
	})
}

func (c *VoiceController) stopWatchdog() {
	c.watchdogGen++
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}

func (c *VoiceController) emitStatus() {
	if c.status == nil {
		return
	}
	status := c.Status()
	if c.lastStatus != nil && *c.lastStatus == status {
		return
	}
	c.lastStatus = &status
	c.status.VoiceStatusChanged(status)
}
