package assistant

import (
	"github.com/rs/zerolog"

	"darling/internal/conversation"
	"darling/internal/domain"
	"darling/internal/ports"
)

// Result is what Handle did with one utterance.
type Result struct {
	Decision Decision
	Reply    string
	// Changed is set when the task store was mutated or refiltered.
	Changed bool
}

// Assistant interprets utterances and applies them to the task store.
type Assistant struct {
	interpreter *Interpreter
	store       ports.TaskStore
	log         zerolog.Logger
}

// New returns an assistant over store.
func New(store ports.TaskStore, interpreter *Interpreter, log zerolog.Logger) *Assistant {
	if interpreter == nil {
		interpreter = NewInterpreter(nil)
	}
	return &Assistant{interpreter: interpreter, store: store, log: log}
}

// Handle interprets utterance against the session's pending action, applies
// the resulting operation and updates the session. The pending action is
// always replaced by the decision's, and a farewell or stop ends an active
// conversation.
func (a *Assistant) Handle(session *conversation.Session, utterance string, mode domain.Mode) Result {
	decision := a.interpreter.Interpret(utterance, session.Pending(), mode)
	session.SetPending(decision.NextPending)

	reply, changed := a.apply(decision)
	if decision.EndConversation && session.Active() {
		if err := session.End(); err != nil {
			a.log.Warn().Err(err).Msg("end conversation")
		}
	}

	a.log.Debug().
		Str("intent", string(decision.Intent)).
		Str("mode", string(mode)).
		Str("op", string(decision.Op.Kind)).
		Str("pending", string(decision.NextPending.Kind)).
		Msg("utterance handled")

	return Result{Decision: decision, Reply: reply, Changed: changed}
}

func (a *Assistant) apply(decision Decision) (string, bool) {
	op := decision.Op
	switch op.Kind {
	case OpAdd:
		if _, err := a.store.Add(op.Text); err != nil {
			return a.failed(err, op)
		}
		return decision.Reply, true

	case OpComplete, OpDelete:
		task, ok := a.store.At(op.Index)
		if !ok {
			return MissingTaskReply(op.Index), false
		}
		var err error
		if op.Kind == OpComplete {
			err = a.store.SetCompleted(task.ID, true)
		} else {
			err = a.store.Remove(task.ID)
		}
		if err != nil {
			return a.failed(err, op)
		}
		return decision.Reply, true

	case OpFilter:
		a.store.SetFilter(op.Filter)
		return decision.Reply, true

	case OpClearCompleted:
		if !a.store.HasCompleted() {
			return nothingToClear, false
		}
		if _, err := a.store.RemoveCompleted(); err != nil {
			return a.failed(err, op)
		}
		return decision.Reply, true
	}
	return decision.Reply, false
}

func (a *Assistant) failed(err error, op Operation) (string, bool) {
	a.log.Error().Err(err).Str("op", string(op.Kind)).Msg("task store update failed")
	return saveFailedReply, false
}
