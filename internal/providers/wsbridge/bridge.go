// Package wsbridge drives a browser's Web Speech API over a websocket. The
// page recognizes and speaks; the server keeps every decision.
package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"darling/internal/domain"
	"darling/internal/ports"
	"darling/internal/speech"
)

const (
	writeTimeout = 5 * time.Second
	callTimeout  = 10 * time.Second
	sendBuffer   = 64
)

// ErrNoClient is returned when no browser is connected.
var ErrNoClient = errors.New("no browser connected")

// Commands are the actions a connected page can request.
type Commands interface {
	ProcessText(ctx context.Context, text string) (string, error)
	OpenAssistant(ctx context.Context) error
	CloseAssistant(ctx context.Context) error
	Status(ctx context.Context) (domain.VoiceStatus, error)
	History(ctx context.Context) ([]domain.ChatMessage, error)
	Tasks(ctx context.Context) (domain.TaskView, error)
	AddTask(ctx context.Context, text string) (domain.Task, error)
	ToggleTask(ctx context.Context, id string) error
	EditTask(ctx context.Context, id string, text string) error
	DeleteTask(ctx context.Context, id string) error
	SetFilter(ctx context.Context, filter string) error
	ClearCompleted(ctx context.Context) (int, error)
}

// Sender delivers frames to a page. Send must not block.
type Sender interface {
	Send(frame Frame)
}

// Bridge serves one page at a time over any Sender. A new connection
// replaces the previous one.
type Bridge struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader
	voice    string
	params   speech.Params

	mu          sync.Mutex
	commands    Commands
	client      Sender
	unsupported bool
	listener    ports.SpeechListener
	listening   bool
	speakSeq    int
	pending     map[int]func(error)
}

func New(log zerolog.Logger) *Bridge {
	return &Bridge{
		log:     log,
		params:  speech.SpeakParams(speech.Voice{}),
		pending: make(map[int]func(error)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// SetCommands installs the handler for page requests. It must be called
// before the bridge serves connections.
func (b *Bridge) SetCommands(commands Commands) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = commands
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(conn, b.log)
	go c.writeLoop()
	b.Connect(r.Context(), c)

	b.readLoop(r.Context(), c)
	b.Disconnect(c)
	c.close()
}

// Connect makes s the current page and sends it the tasks, chat history
// and voice status. A page that was already connected, including s itself
// after a reload, is disconnected first.
func (b *Bridge) Connect(ctx context.Context, s Sender) {
	b.mu.Lock()
	previous := b.client
	b.mu.Unlock()
	if previous != nil {
		b.log.Info().Msg("page reconnected; replacing previous connection")
		b.Disconnect(previous)
		if closer, ok := previous.(interface{ close() }); ok && previous != s {
			closer.close()
		}
	}

	b.mu.Lock()
	b.client = s
	b.unsupported = false
	b.mu.Unlock()
	b.sendSnapshot(ctx, s)
}

// Disconnect fails in-flight speech and closes the assistant when s is the
// current page.
func (b *Bridge) Disconnect(c Sender) {
	b.mu.Lock()
	if b.client != c {
		b.mu.Unlock()
		return
	}
	b.client = nil
	pending := b.pending
	b.pending = make(map[int]func(error))
	listener, listening := b.listener, b.listening
	b.listening = false
	commands := b.commands
	b.mu.Unlock()

	for _, done := range pending {
		done(ErrNoClient)
	}
	if listening && listener != nil {
		listener.OnRecognitionEnded()
	}
	if commands != nil {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := commands.CloseAssistant(ctx); err != nil {
			b.log.Warn().Err(err).Msg("close assistant after disconnect failed")
		}
	}
}

func (b *Bridge) sendSnapshot(ctx context.Context, c Sender) {
	commands := b.currentCommands()
	if commands == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if view, err := commands.Tasks(ctx); err == nil {
		c.Send(Frame{Type: frameTasks, Tasks: &view})
	}
	if messages, err := commands.History(ctx); err == nil && len(messages) > 0 {
		c.Send(Frame{Type: frameHistory, Messages: messages})
	}
	if status, err := commands.Status(ctx); err == nil {
		c.Send(Frame{Type: frameStatus, Status: &status})
	}
}

func (b *Bridge) readLoop(ctx context.Context, c *client) {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}

		var frame inbound
		if err := json.Unmarshal(payload, &frame); err != nil {
			b.log.Warn().Err(err).Msg("ignoring malformed frame")
			continue
		}
		b.handle(ctx, c, frame)
	}
}

func (b *Bridge) handle(ctx context.Context, c Sender, frame inbound) {
	switch frame.Type {
	case frameTranscript:
		b.Transcript(frame.Text, frame.IsFinal)
	case frameEnded:
		b.RecognitionEnded()
	case frameError:
		b.RecognitionError(frame.Reason)
	case frameSpeakDone:
		b.SpeakDone(frame.ID, frame.Error)
	case frameUnsupported:
		b.SetSupported(false)
	case frameVoices:
		b.SetVoices(frame.Voices)
	default:
		b.handleCommand(ctx, c, frame)
	}
}

// Transcript forwards recognizer text from the page.
func (b *Bridge) Transcript(text string, isFinal bool) {
	kind := domain.TranscriptKindPartial
	if isFinal {
		kind = domain.TranscriptKindFinal
	}
	if listener := b.currentListener(); listener != nil {
		listener.OnTranscript(domain.TranscriptEvent{Kind: kind, Text: text})
	}
}

// RecognitionEnded reports that the page's recognizer stopped.
func (b *Bridge) RecognitionEnded() {
	b.mu.Lock()
	b.listening = false
	listener := b.listener
	b.mu.Unlock()
	if listener != nil {
		listener.OnRecognitionEnded()
	}
}

// RecognitionError forwards a Web Speech API error code.
func (b *Bridge) RecognitionError(reason string) {
	if listener := b.currentListener(); listener != nil {
		listener.OnRecognitionError(domain.RecognitionError(reason))
	}
}

// SetSupported records whether the page has a speech recognizer.
func (b *Bridge) SetSupported(supported bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsupported = !supported
}

// SetVoices picks the synthesis voice from those the page offers.
func (b *Bridge) SetVoices(voices []speech.Voice) {
	voice, ok := speech.SelectVoice(voices)
	if !ok {
		return
	}
	b.mu.Lock()
	b.voice = voice.Name
	b.params = speech.SpeakParams(voice)
	b.mu.Unlock()
	b.log.Debug().Str("voice", voice.Name).Int("offered", len(voices)).Msg("synthesis voice selected")
}

func (b *Bridge) handleCommand(ctx context.Context, c Sender, frame inbound) {
	commands := b.currentCommands()
	if commands == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var err error
	switch frame.Type {
	case frameText:
		_, err = commands.ProcessText(ctx, frame.Text)
	case frameOpen:
		err = commands.OpenAssistant(ctx)
	case frameClose:
		err = commands.CloseAssistant(ctx)
	case frameTask:
		err = b.taskAction(ctx, commands, frame)
	default:
		b.log.Debug().Str("type", frame.Type).Msg("ignoring unknown frame")
		return
	}
	if err != nil {
		b.log.Warn().Err(err).Str("type", frame.Type).Msg("page request failed")
		c.Send(Frame{Type: frameError, Text: err.Error()})
	}
}

func (b *Bridge) taskAction(ctx context.Context, commands Commands, frame inbound) error {
	switch frame.Action {
	case "add":
		_, err := commands.AddTask(ctx, frame.Text)
		return err
	case "toggle":
		return commands.ToggleTask(ctx, frame.TaskID)
	case "edit":
		return commands.EditTask(ctx, frame.TaskID, frame.Text)
	case "delete":
		return commands.DeleteTask(ctx, frame.TaskID)
	case "filter":
		return commands.SetFilter(ctx, frame.Filter)
	case "clear":
		_, err := commands.ClearCompleted(ctx)
		return err
	default:
		return fmt.Errorf("unknown task action %q", frame.Action)
	}
}

func (b *Bridge) currentCommands() Commands {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commands
}

func (b *Bridge) currentListener() ports.SpeechListener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listener
}

func (b *Bridge) broadcast(frame Frame) {
	b.mu.Lock()
	c := b.client
	b.mu.Unlock()
	if c != nil {
		c.Send(frame)
	}
}

// Open implements ports.SpeechProvider. The page may connect later; a page
// that reported missing speech support makes speech unavailable.
func (b *Bridge) Open(listener ports.SpeechListener) (ports.SpeechIO, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsupported {
		return nil, ports.ErrSpeechUnavailable
	}
	b.listener = listener
	return b, nil
}

func (b *Bridge) StartListening() error {
	b.mu.Lock()
	c, unsupported := b.client, b.unsupported
	if c != nil && !unsupported {
		b.listening = true
	}
	b.mu.Unlock()
	if unsupported {
		return ports.ErrSpeechUnavailable
	}
	if c == nil {
		return ErrNoClient
	}
	c.Send(Frame{Type: frameStart})
	return nil
}

func (b *Bridge) StopListening() error {
	b.mu.Lock()
	c := b.client
	b.mu.Unlock()
	if c == nil {
		return nil
	}
	c.Send(Frame{Type: frameStop})
	return nil
}

// Speak asks the page to speak text; done runs when the page reports the
// utterance finished.
func (b *Bridge) Speak(text string, done func(error)) error {
	b.mu.Lock()
	c := b.client
	if c == nil {
		b.mu.Unlock()
		return ErrNoClient
	}
	b.speakSeq++
	id := b.speakSeq
	if done != nil {
		b.pending[id] = done
	}
	voice, params := b.voice, b.params
	b.mu.Unlock()

	c.Send(Frame{Type: frameSpeak, ID: id, Text: text, Voice: voice, Params: &params})
	return nil
}

// SpeakDone completes utterance id. A non-empty message reports a
// synthesis failure.
func (b *Bridge) SpeakDone(id int, message string) {
	b.mu.Lock()
	done, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if !ok {
		return
	}
	var err error
	if strings.TrimSpace(message) != "" {
		err = errors.New(message)
	}
	done(err)
}

// Post implements ports.ChatSink.
func (b *Bridge) Post(message domain.ChatMessage) {
	b.broadcast(Frame{Type: frameChat, Message: &message})
}

func (b *Bridge) VoiceStatusChanged(status domain.VoiceStatus) {
	b.broadcast(Frame{Type: frameStatus, Status: &status})
}

func (b *Bridge) PartialTranscript(text string) {
	b.broadcast(Frame{Type: framePartial, Text: text})
}

func (b *Bridge) TasksChanged(view domain.TaskView) {
	b.broadcast(Frame{Type: frameTasks, Tasks: &view})
}

type client struct {
	conn *websocket.Conn
	log  zerolog.Logger
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, log zerolog.Logger) *client {
	return &client{
		conn: conn,
		log:  log,
		out:  make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send drops frames when the client lags.
func (c *client) Send(frame Frame) {
	payload, err := encode(frame)
	if err != nil {
		c.log.Error().Err(err).Str("type", frame.Type).Msg("encode frame failed")
		return
	}
	select {
	case <-c.done:
	case c.out <- payload:
	default:
		c.log.Warn().Str("type", frame.Type).Msg("client is lagging; dropping frame")
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug().Err(err).Msg("websocket write failed")
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
