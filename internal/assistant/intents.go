package assistant

import (
	"regexp"
	"strconv"
	"strings"

	"darling/internal/domain"
)

// Intent names what an utterance asked for.
type Intent string

const (
	IntentAdd            Intent = "add"
	IntentComplete       Intent = "complete"
	IntentDelete         Intent = "delete"
	IntentShowCompleted  Intent = "show_completed"
	IntentShowActive     Intent = "show_active"
	IntentShowAll        Intent = "show_all"
	IntentClearCompleted Intent = "clear_completed"
	IntentPending        Intent = "pending"
	IntentGreeting       Intent = "greeting"
	IntentThanks         Intent = "thanks"
	IntentFarewell       Intent = "farewell"
	IntentStop           Intent = "stop"
	IntentHelp           Intent = "help"
	IntentFallback       Intent = "fallback"
)

type trigger struct {
	intent  Intent
	phrases []string
}

// Task commands, tested in order before any pending action is resolved.
var commandTriggers = []trigger{
	{IntentAdd, []string{"add task", "add a task", "create task", "create a task"}},
	{IntentComplete, []string{"complete task", "mark task as done", "mark as completed", "finish task"}},
	{IntentDelete, []string{"delete task", "remove task"}},
	{IntentShowCompleted, []string{"show completed tasks", "show finished tasks"}},
	{IntentShowActive, []string{"show active tasks", "show incomplete tasks"}},
	{IntentShowAll, []string{"show all tasks", "list all tasks", "show tasks", "what are my tasks"}},
	{IntentClearCompleted, []string{"clear completed", "remove completed tasks"}},
}

// Conversational phrases, tested after pending resolution.
var smallTalkTriggers = []trigger{
	{IntentGreeting, []string{"hello", "hi there"}},
	{IntentThanks, []string{"thank you", "thanks"}},
	{IntentFarewell, []string{"goodbye", "bye", "see you later"}},
	{IntentStop, []string{"stop listening", "stop assistant"}},
	{IntentHelp, []string{"help", "what can you do"}},
}

var (
	addTriggerPattern = regexp.MustCompile(`(?i)(?:add|create)\s+(?:a\s+)?task`)
	digitsPattern     = regexp.MustCompile(`\d+`)
)

func match(normalized string, triggers []trigger) (Intent, bool) {
	for _, t := range triggers {
		for _, phrase := range t.phrases {
			if strings.Contains(normalized, phrase) {
				return t.intent, true
			}
		}
	}
	return "", false
}

// extractTaskText strips every add trigger and keeps the remaining words in
// their original casing.
func extractTaskText(utterance string) string {
	stripped := addTriggerPattern.ReplaceAllString(utterance, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

// ExtractIndex returns the 0-based index named by the first run of digits
// in text. Zero and missing numbers yield ok=false.
func ExtractIndex(text string) (int, bool) {
	digits := digitsPattern.FindString(text)
	if digits == "" {
		return 0, false
	}
	number, err := strconv.Atoi(digits)
	if err != nil || number <= 0 {
		return 0, false
	}
	return number - 1, true
}

func filterFor(intent Intent) domain.Filter {
	switch intent {
	case IntentShowCompleted:
		return domain.FilterCompleted
	case IntentShowActive:
		return domain.FilterActive
	default:
		return domain.FilterAll
	}
}
