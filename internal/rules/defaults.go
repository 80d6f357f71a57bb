package rules

import "fmt"

// Common mis-hearings of the command vocabulary.
var defaultLiterals = [][2]string{
	{"at task", "add task"},
	{"ad task", "add task"},
	{"at a task", "add a task"},
	{"compete task", "complete task"},
	{"completes task", "complete task"},
	{"mark task is done", "mark task as done"},
	{"mark as complete", "mark as completed"},
	{"the lead task", "delete task"},
	{"show complete tasks", "show completed tasks"},
	{"clear complete tasks", "clear completed tasks"},
	{"hey darlene", "hey darling"},
	{"hey dolling", "hey darling"},
}

// Spoken task numbers after an index command, including common homophones.
var spokenNumbers = []struct {
	words string
	digit int
}{
	{"one|won", 1},
	{"two|to|too", 2},
	{"three", 3},
	{"four|for", 4},
	{"five", 5},
	{"six", 6},
	{"seven", 7},
	{"eight|ate", 8},
	{"nine", 9},
	{"ten", 10},
}

// Defaults returns the built-in corrections applied before user rules.
func Defaults() []Rule {
	out := make([]Rule, 0, len(defaultLiterals)+len(spokenNumbers))
	for _, pair := range defaultLiterals {
		rule, err := Literal(pair[0], pair[1])
		if err != nil {
			panic(err)
		}
		out = append(out, rule)
	}
	for _, number := range spokenNumbers {
		line := fmt.Sprintf(`s/\b(complete|finish|delete|remove) task (?:number )?(?:%s)\b/${1} task %d/g`, number.words, number.digit)
		rule, err := ParseLine(line)
		if err != nil {
			panic(err)
		}
		out = append(out, rule)
	}
	return out
}
