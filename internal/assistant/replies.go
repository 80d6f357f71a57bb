package assistant

import (
	"fmt"
	"math/rand"
	"sync"

	"darling/internal/domain"
)

// Chooser picks an index in [0, n).
type Chooser func(n int) int

// FirstChoice always picks the canonical phrasing.
func FirstChoice(int) int { return 0 }

// RandomChooser returns a chooser backed by a seeded source. It is safe for
// concurrent use.
func RandomChooser(seed int64) Chooser {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func(n int) int {
		if n <= 1 {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		return rng.Intn(n)
	}
}

const (
	askAddText        = "What task would you like to add?"
	askCompleteVoice  = "Which task would you like to mark as completed?"
	askDeleteVoice    = "Which task would you like to delete?"
	taskNumberSuffix  = " Please specify a task number."
	unresolvedFormat  = "I couldn't identify which task to %s. Please try again with a task number."
	clearedReply      = "I've cleared all completed tasks."
	nothingToClear    = "There are no completed tasks to clear."
	missingTaskFormat = "I couldn't find task %d."
	saveFailedReply   = "Sorry, I couldn't save that change."
	greetingReply     = "Hello! How can I help with your tasks today?"
	thanksReply       = "You're welcome! Anything else you need help with?"
	farewellReply     = "Goodbye! Have a great day!"
	stopReply         = `I'll stop listening now. Say "Hey Darling" when you need me again.`
	fallbackVoice     = "I'm not sure how to help with that. You can ask me to add, complete, or delete tasks."
	fallbackText      = `I'm not sure how to help with that. Type "help" to see what I can do.`
)

const helpText = "I can help you manage your tasks. Try saying:\n" +
	"- \"Add task [task description]\"\n" +
	"- \"Complete task [number]\"\n" +
	"- \"Delete task [number]\"\n" +
	"- \"Show all/active/completed tasks\"\n" +
	"- \"Clear completed tasks\""

const helpVoice = "I can help you manage your tasks. Say add task followed by what to do, " +
	"complete task or delete task with its number, show all, active or completed tasks, " +
	"or clear completed tasks."

var addedPool = []string{
	`I've added "%s" to your task list.`,
	`Task added: "%s".`,
	`"%s" has been added to your tasks.`,
	`Got it! "%s" is now on your list.`,
}

var completedPool = []string{
	"I've marked task %d as completed.",
	"Task %d is now complete.",
	"Great job finishing task %d!",
	"Task %d completed. Well done!",
}

var deletedPool = []string{
	"I've deleted task %d.",
	"Task %d has been removed.",
	"I've removed task %d from your list.",
	"Task %d is now deleted.",
}

var filterReplies = map[domain.Filter]string{
	domain.FilterAll:       "Showing all tasks.",
	domain.FilterActive:    "Showing active tasks.",
	domain.FilterCompleted: "Showing completed tasks.",
}

func pick(choose Chooser, pool []string, arg any) string {
	i := choose(len(pool))
	if i < 0 || i >= len(pool) {
		i = 0
	}
	return fmt.Sprintf(pool[i], arg)
}

func askIndex(kind domain.PendingKind, mode domain.Mode) string {
	reply := askDeleteVoice
	if kind == domain.PendingComplete {
		reply = askCompleteVoice
	}
	if mode == domain.ModeText {
		reply += taskNumberSuffix
	}
	return reply
}

func unresolved(kind domain.PendingKind) string {
	return fmt.Sprintf(unresolvedFormat, kind)
}

// MissingTaskReply is the reply for an index with no visible task.
func MissingTaskReply(index int) string {
	return fmt.Sprintf(missingTaskFormat, index+1)
}

// HelpText lists the supported commands for the given mode.
func HelpText(mode domain.Mode) string {
	if mode == domain.ModeText {
		return helpText
	}
	return helpVoice
}
