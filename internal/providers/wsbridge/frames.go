package wsbridge

import (
	"encoding/json"

	"darling/internal/domain"
	"darling/internal/speech"
)

// Frame types sent to the browser.
const (
	frameStart   = "start"
	frameStop    = "stop"
	frameSpeak   = "speak"
	frameChat    = "chat"
	frameStatus  = "status"
	framePartial = "partial"
	frameTasks   = "tasks"
	frameHistory = "history"
	frameError   = "error"
)

// Frame types received from the browser.
const (
	frameTranscript  = "transcript"
	frameEnded       = "ended"
	frameSpeakDone   = "speakDone"
	frameText        = "text"
	frameUnsupported = "unsupported"
	frameOpen        = "open"
	frameClose       = "close"
	frameTask        = "task"
	frameVoices      = "voices"
)

// Frame is a message sent to the page.
type Frame struct {
	Type     string               `json:"type"`
	ID       int                  `json:"id,omitempty"`
	Text     string               `json:"text,omitempty"`
	Voice    string               `json:"voice,omitempty"`
	Params   *speech.Params       `json:"params,omitempty"`
	Message  *domain.ChatMessage  `json:"message,omitempty"`
	Messages []domain.ChatMessage `json:"messages,omitempty"`
	Status   *domain.VoiceStatus  `json:"status,omitempty"`
	Tasks    *domain.TaskView     `json:"tasks,omitempty"`
}

type inbound struct {
	Type    string `json:"type"`
	ID      int    `json:"id"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
	Reason  string `json:"reason"`
	Error   string `json:"error"`
	// Task actions.
	Action string `json:"action"`
	TaskID string `json:"taskId"`
	Filter string `json:"filter"`
	// Synthesis voices offered by the page.
	Voices []speech.Voice `json:"voices"`
}

func encode(frame Frame) ([]byte, error) {
	return json.Marshal(frame)
}
