package usecase

import (
	"strings"

	"github.com/rs/zerolog"

	"darling/internal/assistant"
	"darling/internal/conversation"
	"darling/internal/domain"
	"darling/internal/ports"
)

// Conversation routes utterances from both entry points through the
// assistant and records them in the chat transcript.
type Conversation struct {
	session   *conversation.Session
	assistant *assistant.Assistant
	chat      ports.ChatSink
	wake      *conversation.WakeDetector
	log       zerolog.Logger
}

// NewConversation returns a conversation over a fresh idle session.
func NewConversation(
	helper *assistant.Assistant,
	chat ports.ChatSink,
	wake *conversation.WakeDetector,
	log zerolog.Logger,
) *Conversation {
	if wake == nil {
		wake = conversation.NewWakeDetector(conversation.DefaultWakePhrase)
	}
	return &Conversation{
		session:   conversation.NewSession(),
		assistant: helper,
		chat:      chat,
		wake:      wake,
		log:       log,
	}
}

// Session exposes the conversation state.
func (c *Conversation) Session() *conversation.Session {
	return c.session
}

// ProcessText answers a typed message. Typed messages are never gated on
// the wake phrase. Blank input yields an empty reply and no messages.
func (c *Conversation) ProcessText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	c.post(domain.RoleUser, text)
	result := c.assistant.Handle(c.session, text, domain.ModeText)
	c.post(domain.RoleAssistant, result.Reply)
	return result.Reply
}

// HandleUtterance handles a finished spoken utterance and returns the reply
// to speak. While idle only the wake phrase is acted on; anything else is
// dropped and ok is false.
func (c *Conversation) HandleUtterance(utterance string) (reply string, ok bool) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return "", false
	}

	if !c.session.Active() {
		variant, detected := c.wake.Detect(utterance)
		if !detected {
			c.log.Debug().Str("utterance", utterance).Msg("ignoring speech while idle")
			return "", false
		}
		if err := c.session.Wake(); err != nil {
			c.log.Warn().Err(err).Msg("wake rejected")
			return "", false
		}
		c.log.Info().Str("variant", variant).Msg("wake phrase detected")
		c.post(domain.RoleSystem, conversation.ActivatedNotice)
		c.post(domain.RoleAssistant, conversation.Greeting)
		return conversation.Greeting, true
	}

	c.post(domain.RoleUser, utterance)
	result := c.assistant.Handle(c.session, utterance, domain.ModeVoice)
	c.post(domain.RoleAssistant, result.Reply)
	return result.Reply, true
}

// Notice posts a system message.
func (c *Conversation) Notice(text string) {
	c.post(domain.RoleSystem, text)
}

func (c *Conversation) post(role domain.ChatRole, text string) {
	if c.chat == nil {
		return
	}
	c.chat.Post(domain.ChatMessage{Role: role, Text: text})
}
