// Package assistant maps utterances onto task operations and replies.
package assistant

import (
	"strings"

	"darling/internal/conversation"
	"darling/internal/domain"
)

// OpKind names a task store call.
type OpKind string

const (
	OpNone           OpKind = ""
	OpAdd            OpKind = "add"
	OpComplete       OpKind = "complete"
	OpDelete         OpKind = "delete"
	OpFilter         OpKind = "filter"
	OpClearCompleted OpKind = "clear_completed"
)

// Operation is a task store call with its extracted slots.
type Operation struct {
	Kind   OpKind
	Text   string
	Index  int
	Filter domain.Filter
}

// Decision is the outcome of interpreting one utterance.
type Decision struct {
	Intent          Intent
	Op              Operation
	Reply           string
	NextPending     domain.PendingAction
	EndConversation bool
}

// Interpreter classifies utterances. It holds no conversation state.
type Interpreter struct {
	choose Chooser
}

// NewInterpreter returns an interpreter drawing paraphrases with choose.
// A nil chooser always picks the first phrasing.
func NewInterpreter(choose Chooser) *Interpreter {
	if choose == nil {
		choose = FirstChoice
	}
	return &Interpreter{choose: choose}
}

// Interpret decides what the utterance asks for. The returned NextPending
// replaces whatever was pending before.
func (in *Interpreter) Interpret(utterance string, pending domain.PendingAction, mode domain.Mode) Decision {
	utterance = strings.TrimSpace(utterance)
	normalized := conversation.Normalize(utterance)

	choose := in.choose
	if mode == domain.ModeText {
		choose = FirstChoice
	}

	if intent, ok := match(normalized, commandTriggers); ok {
		return in.command(intent, utterance, mode, choose)
	}

	if pending.IsSet() && utterance != "" {
		return resolvePending(pending.Kind, utterance)
	}

	intent, ok := match(normalized, smallTalkTriggers)
	if !ok {
		intent = IntentFallback
	}
	return smallTalk(intent, mode)
}

func (in *Interpreter) command(intent Intent, utterance string, mode domain.Mode, choose Chooser) Decision {
	decision := Decision{Intent: intent}
	switch intent {
	case IntentAdd:
		text := extractTaskText(utterance)
		if text == "" {
			decision.Reply = askAddText
			decision.NextPending = domain.PendingAction{Kind: domain.PendingAdd}
			return decision
		}
		decision.Op = Operation{Kind: OpAdd, Text: text}
		decision.Reply = pick(choose, addedPool, text)

	case IntentComplete, IntentDelete:
		kind, op, pool := domain.PendingComplete, OpComplete, completedPool
		if intent == IntentDelete {
			kind, op, pool = domain.PendingDelete, OpDelete, deletedPool
		}
		index, ok := ExtractIndex(utterance)
		if !ok {
			decision.Reply = askIndex(kind, mode)
			decision.NextPending = domain.PendingAction{Kind: kind}
			return decision
		}
		decision.Op = Operation{Kind: op, Index: index}
		decision.Reply = pick(choose, pool, index+1)

	case IntentShowCompleted, IntentShowActive, IntentShowAll:
		filter := filterFor(intent)
		decision.Op = Operation{Kind: OpFilter, Filter: filter}
		decision.Reply = filterReplies[filter]

	case IntentClearCompleted:
		decision.Op = Operation{Kind: OpClearCompleted}
		decision.Reply = clearedReply
	}
	return decision
}

func resolvePending(kind domain.PendingKind, utterance string) Decision {
	decision := Decision{Intent: IntentPending}
	switch kind {
	case domain.PendingAdd:
		decision.Op = Operation{Kind: OpAdd, Text: utterance}
		decision.Reply = pick(FirstChoice, addedPool, utterance)
	case domain.PendingComplete, domain.PendingDelete:
		index, ok := ExtractIndex(utterance)
		if !ok {
			decision.Reply = unresolved(kind)
			return decision
		}
		if kind == domain.PendingComplete {
			decision.Op = Operation{Kind: OpComplete, Index: index}
			decision.Reply = pick(FirstChoice, completedPool, index+1)
		} else {
			decision.Op = Operation{Kind: OpDelete, Index: index}
			decision.Reply = pick(FirstChoice, deletedPool, index+1)
		}
	}
	return decision
}

func smallTalk(intent Intent, mode domain.Mode) Decision {
	decision := Decision{Intent: intent}
	switch intent {
	case IntentGreeting:
		decision.Reply = greetingReply
	case IntentThanks:
		decision.Reply = thanksReply
	case IntentFarewell:
		decision.Reply = farewellReply
		decision.EndConversation = true
	case IntentStop:
		decision.Reply = stopReply
		decision.EndConversation = true
	case IntentHelp:
		decision.Reply = HelpText(mode)
	default:
		decision.Reply = fallbackVoice
		if mode == domain.ModeText {
			decision.Reply = fallbackText
		}
	}
	return decision
}
