package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"darling/internal/domain"
	"darling/internal/ports"
)

func TestConnectSendsSnapshot(t *testing.T) {
	t.Parallel()

	commands := newFakeCommands()
	commands.history = []domain.ChatMessage{{Role: domain.RoleSystem, Text: "Darling Assistant activated"}}
	_, conn := newBridgeClient(t, commands)

	tasks := readFrame(t, conn)
	if tasks.Type != frameTasks || tasks.Tasks == nil || tasks.Tasks.Summary != "0 tasks left" {
		t.Fatalf("unexpected first frame %+v", tasks)
	}
	history := readFrame(t, conn)
	if history.Type != frameHistory || len(history.Messages) != 1 {
		t.Fatalf("unexpected history frame %+v", history)
	}
	status := readFrame(t, conn)
	if status.Type != frameStatus || status.Status == nil {
		t.Fatalf("unexpected status frame %+v", status)
	}
}

func TestListeningRequiresConnectedClient(t *testing.T) {
	t.Parallel()

	bridge := New(zerolog.Nop())
	sio, err := bridge.Open(&recordingListener{})
	if err != nil {
		t.Fatalf("open before connect: %v", err)
	}
	if err := sio.StartListening(); !errors.Is(err, ErrNoClient) {
		t.Fatalf("expected ErrNoClient, got %v", err)
	}
}

func TestUnsupportedClientDisablesSpeech(t *testing.T) {
	t.Parallel()

	bridge, conn := newBridgeClient(t, newFakeCommands())
	drainSnapshot(t, conn)

	sio, err := bridge.Open(&recordingListener{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	writeFrame(t, conn, `{"type":"unsupported"}`)
	waitFor(t, func() bool {
		return errors.Is(sio.StartListening(), ports.ErrSpeechUnavailable)
	})
	if _, err := bridge.Open(&recordingListener{}); !errors.Is(err, ports.ErrSpeechUnavailable) {
		t.Fatalf("expected ErrSpeechUnavailable, got %v", err)
	}
}

func TestRecognizerFramesReachListener(t *testing.T) {
	t.Parallel()

	bridge, conn := newBridgeClient(t, newFakeCommands())
	drainSnapshot(t, conn)

	listener := &recordingListener{}
	sio, err := bridge.Open(listener)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := sio.StartListening(); err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != frameStart {
		t.Fatalf("expected start frame, got %+v", frame)
	}

	writeFrame(t, conn, `{"type":"transcript","text":"hey","isFinal":false}`)
	writeFrame(t, conn, `{"type":"transcript","text":"hey darling","isFinal":true}`)
	writeFrame(t, conn, `{"type":"error","reason":"network"}`)
	writeFrame(t, conn, `{"type":"ended"}`)

	want := "partial:hey|final:hey darling|error:network|ended"
	waitFor(t, func() bool { return listener.joined() == want })

	if err := sio.StopListening(); err != nil {
		t.Fatalf("StopListening: %v", err)
	}
	if frame := readFrame(t, conn); frame.Type != frameStop {
		t.Fatalf("expected stop frame, got %+v", frame)
	}
}

func TestSpeakWaitsForCompletionFrame(t *testing.T) {
	t.Parallel()

	bridge, conn := newBridgeClient(t, newFakeCommands())
	drainSnapshot(t, conn)

	sio, err := bridge.Open(&recordingListener{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan error, 1)
	if err := sio.Speak("Task added.", func(err error) { done <- err }); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Type != frameSpeak || frame.Text != "Task added." || frame.ID == 0 || frame.Params == nil {
		t.Fatalf("unexpected speak frame %+v", frame)
	}

	writeFrame(t, conn, `{"type":"speakDone","id":`+itoa(frame.ID)+`,"error":"synthesis-failed"}`)
	select {
	case err := <-done:
		if err == nil || err.Error() != "synthesis-failed" {
			t.Fatalf("expected synthesis error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("speak completion not delivered")
	}
}

func TestVoicesFrameSelectsSynthesisVoice(t *testing.T) {
	t.Parallel()

	bridge, conn := newBridgeClient(t, newFakeCommands())
	drainSnapshot(t, conn)

	writeFrame(t, conn, `{"type":"voices","voices":[`+
		`{"name":"Daniel","lang":"en-GB"},`+
		`{"name":"Google UK English Female","lang":"en-GB"}]}`)
	waitFor(t, func() bool {
		bridge.mu.Lock()
		defer bridge.mu.Unlock()
		return bridge.voice != ""
	})

	sio, err := bridge.Open(&recordingListener{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := sio.Speak("hello", nil); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Voice != "Google UK English Female" {
		t.Fatalf("unexpected voice %q", frame.Voice)
	}
	if frame.Params == nil || frame.Params.Pitch != 1.08 || frame.Params.Rate != 1.0 {
		t.Fatalf("unexpected params %+v", frame.Params)
	}
}

func TestPageRequestsReachCommands(t *testing.T) {
	t.Parallel()

	commands := newFakeCommands()
	_, conn := newBridgeClient(t, commands)
	drainSnapshot(t, conn)

	writeFrame(t, conn, `{"type":"open"}`)
	writeFrame(t, conn, `{"type":"text","text":"add task buy milk"}`)
	writeFrame(t, conn, `{"type":"task","action":"toggle","taskId":"t1"}`)
	writeFrame(t, conn, `{"type":"task","action":"edit","taskId":"t1","text":"buy oat milk"}`)
	writeFrame(t, conn, `{"type":"task","action":"filter","filter":"active"}`)
	writeFrame(t, conn, `{"type":"task","action":"clear"}`)
	writeFrame(t, conn, `{"type":"task","action":"delete","taskId":"t1"}`)
	writeFrame(t, conn, `{"type":"task","action":"add","text":"water plants"}`)

	want := "open|text:add task buy milk|toggle:t1|edit:t1:buy oat milk|filter:active|clear|delete:t1|add:water plants"
	waitFor(t, func() bool { return commands.joined() == want })
}

func TestFailedRequestSendsErrorFrame(t *testing.T) {
	t.Parallel()

	_, conn := newBridgeClient(t, newFakeCommands())
	drainSnapshot(t, conn)

	writeFrame(t, conn, `{"type":"task","action":"rename"}`)
	frame := readFrame(t, conn)
	if frame.Type != frameError || !strings.Contains(frame.Text, "rename") {
		t.Fatalf("unexpected frame %+v", frame)
	}
}

func TestSinksBroadcastToClient(t *testing.T) {
	t.Parallel()

	bridge, conn := newBridgeClient(t, newFakeCommands())
	drainSnapshot(t, conn)

	bridge.Post(domain.ChatMessage{Role: domain.RoleAssistant, Text: "Hello!"})
	bridge.PartialTranscript("add ta")
	bridge.VoiceStatusChanged(domain.VoiceStatus{Open: true, Listening: true})
	bridge.TasksChanged(domain.TaskView{Summary: "1 task left"})

	chat := readFrame(t, conn)
	if chat.Type != frameChat || chat.Message == nil || chat.Message.Text != "Hello!" {
		t.Fatalf("unexpected chat frame %+v", chat)
	}
	if partial := readFrame(t, conn); partial.Type != framePartial || partial.Text != "add ta" {
		t.Fatalf("unexpected partial frame %+v", partial)
	}
	if status := readFrame(t, conn); status.Type != frameStatus || !status.Status.Listening {
		t.Fatalf("unexpected status frame %+v", status)
	}
	if tasks := readFrame(t, conn); tasks.Type != frameTasks || tasks.Tasks.Summary != "1 task left" {
		t.Fatalf("unexpected tasks frame %+v", tasks)
	}
}

func TestDisconnectFailsPendingSpeechAndClosesAssistant(t *testing.T) {
	t.Parallel()

	commands := newFakeCommands()
	bridge, conn := newBridgeClient(t, commands)
	drainSnapshot(t, conn)

	listener := &recordingListener{}
	sio, err := bridge.Open(listener)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = sio.StartListening()
	done := make(chan error, 1)
	_ = sio.Speak("Goodbye!", func(err error) { done <- err })

	_ = conn.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrNoClient) {
			t.Fatalf("expected ErrNoClient, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pending speech was not failed")
	}
	waitFor(t, func() bool { return strings.HasSuffix(commands.joined(), "close") })
	waitFor(t, func() bool { return listener.joined() == "ended" })

	if err := sio.Speak("hello", nil); !errors.Is(err, ErrNoClient) {
		t.Fatalf("expected ErrNoClient after disconnect, got %v", err)
	}
}

func newBridgeClient(t *testing.T, commands Commands) (*Bridge, *websocket.Conn) {
	t.Helper()

	bridge := New(zerolog.Nop())
	bridge.SetCommands(commands)
	server := httptest.NewServer(bridge)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return bridge, conn
}

func drainSnapshot(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	for {
		if frame := readFrame(t, conn); frame.Type == frameStatus {
			return
		}
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode frame %s: %v", payload, err)
	}
	return frame
}

func writeFrame(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func itoa(n int) string {
	data, _ := json.Marshal(n)
	return string(data)
}

type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) record(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingListener) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.events, "|")
}

func (l *recordingListener) OnTranscript(event domain.TranscriptEvent) {
	l.record(string(event.Kind) + ":" + event.Text)
}

func (l *recordingListener) OnRecognitionEnded() { l.record("ended") }

func (l *recordingListener) OnRecognitionError(reason domain.RecognitionError) {
	l.record("error:" + string(reason))
}

type fakeCommands struct {
	mu      sync.Mutex
	calls   []string
	history []domain.ChatMessage
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{}
}

func (f *fakeCommands) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCommands) joined() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.calls, "|")
}

func (f *fakeCommands) ProcessText(_ context.Context, text string) (string, error) {
	f.record("text:" + text)
	return "ok", nil
}

func (f *fakeCommands) OpenAssistant(context.Context) error {
	f.record("open")
	return nil
}

func (f *fakeCommands) CloseAssistant(context.Context) error {
	f.record("close")
	return nil
}

func (f *fakeCommands) Status(context.Context) (domain.VoiceStatus, error) {
	return domain.VoiceStatus{Conversation: domain.ConversationIdle, VoiceAvailable: true}, nil
}

func (f *fakeCommands) History(context.Context) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeCommands) Tasks(context.Context) (domain.TaskView, error) {
	return domain.TaskView{Filter: domain.FilterAll, Summary: "0 tasks left"}, nil
}

func (f *fakeCommands) AddTask(_ context.Context, text string) (domain.Task, error) {
	f.record("add:" + text)
	return domain.Task{ID: "t2", Text: text}, nil
}

func (f *fakeCommands) ToggleTask(_ context.Context, id string) error {
	f.record("toggle:" + id)
	return nil
}

func (f *fakeCommands) EditTask(_ context.Context, id string, text string) error {
	f.record("edit:" + id + ":" + text)
	return nil
}

func (f *fakeCommands) DeleteTask(_ context.Context, id string) error {
	f.record("delete:" + id)
	return nil
}

func (f *fakeCommands) SetFilter(_ context.Context, filter string) error {
	f.record("filter:" + filter)
	return nil
}

func (f *fakeCommands) ClearCompleted(context.Context) (int, error) {
	f.record("clear")
	return 0, nil
}

func TestReconnectReleasesPreviousPage(t *testing.T) {
	t.Parallel()

	commands := newFakeCommands()
	bridge := New(zerolog.Nop())
	bridge.SetCommands(commands)

	first := &collectingSender{}
	bridge.Connect(context.Background(), first)
	sio, err := bridge.Open(&recordingListener{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	done := make(chan error, 1)
	_ = sio.Speak("Hello!", func(err error) { done <- err })

	second := &collectingSender{}
	bridge.Connect(context.Background(), second)

	if err := <-done; !errors.Is(err, ErrNoClient) {
		t.Fatalf("expected pending speech to fail, got %v", err)
	}
	if commands.joined() != "close" {
		t.Fatalf("expected assistant to close on reconnect, got %q", commands.joined())
	}

	bridge.Post(domain.ChatMessage{Role: domain.RoleAssistant, Text: "only second"})
	if got := second.types(); got[len(got)-1] != frameChat {
		t.Fatalf("expected chat frame on second sender, got %v", got)
	}
	for _, typ := range first.types() {
		if typ == frameChat {
			t.Fatalf("previous sender should not receive new frames")
		}
	}
}

type collectingSender struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *collectingSender) Send(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *collectingSender) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, frame := range s.frames {
		out = append(out, frame.Type)
	}
	return out
}
