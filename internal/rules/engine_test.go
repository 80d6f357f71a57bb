package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEngineLiteralAndRegexRules(t *testing.T) {
	t.Parallel()

	rulesPath := writeRules(t, `
# literal
groceries list => grocery list
# regex, case-insensitive by default
s/\bbuy\s+some\b/buy/g
`)

	engine, err := Load(rulesPath, 30, false)
	if err != nil {
		t.Fatalf("failed to load engine: %v", err)
	}
	if engine.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", engine.Len())
	}

	output, err := engine.Apply("add task BUY SOME bread for the Groceries List")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "add task buy bread for the grocery list" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEngineIteratesUntilStable(t *testing.T) {
	t.Parallel()

	rulesPath := writeRules(t, "a => b\nb => c\n")
	engine, err := Load(rulesPath, 5, false)
	if err != nil {
		t.Fatalf("failed to load engine: %v", err)
	}

	output, err := engine.Apply("a")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "c" {
		t.Fatalf("expected c, got %q", output)
	}
}

func TestEngineReportsUnstableRules(t *testing.T) {
	t.Parallel()

	rulesPath := writeRules(t, "ping => pong\npong => ping\n")
	engine, err := Load(rulesPath, 4, false)
	if err != nil {
		t.Fatalf("failed to load engine: %v", err)
	}

	_, err = engine.Apply("ping")
	if !errors.Is(err, ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
}

func TestLiteralMatchesWholeWordsOnly(t *testing.T) {
	t.Parallel()

	rule, err := Literal("at task", "add task")
	if err != nil {
		t.Fatalf("literal failed: %v", err)
	}

	if out, changed := rule.Apply("look at task 3"); !changed || out != "look add task 3" {
		t.Fatalf("unexpected rewrite: %q changed=%v", out, changed)
	}
	if out, changed := rule.Apply("format tasks"); changed {
		t.Fatalf("expected no rewrite inside words, got %q", out)
	}
}

func TestLiteralRuleStartingWithS(t *testing.T) {
	t.Parallel()

	rule, err := ParseLine("shopping => groceries")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if out, _ := rule.Apply("add task shopping"); out != "add task groceries" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRegexRuleReplacesFirstMatchWithoutGlobalFlag(t *testing.T) {
	t.Parallel()

	rule, err := ParseLine(`s|task (\d+)|item $1|`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out, changed := rule.Apply("task 1 and task 2")
	if !changed || out != "item 1 and task 2" {
		t.Fatalf("unexpected output: %q changed=%v", out, changed)
	}
}

func TestRegexRuleEscapedDelimiter(t *testing.T) {
	t.Parallel()

	rule, err := ParseLine(`s/and\/or/or/g`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if out, _ := rule.Apply("milk and/or bread"); out != "milk or bread" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseReportsLineNumbers(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no arrow here":    "line 2: unsupported rule format",
		"s/open(/x/":       "line 2: invalid regex",
		"s/a/b/q":          "line 2: unsupported regex flag",
		"s/unterminated/x": "line 2: unterminated expression",
		" => empty source": "line 2: literal rule source cannot be empty",
	}
	for line, want := range cases {
		_, err := Parse(strings.NewReader("# header\n" + line + "\n"))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("line %q: expected error containing %q, got %v", line, want, err)
		}
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	engine, err := Load(filepath.Join(t.TempDir(), "missing.rules"), 0, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Len() != len(Defaults()) {
		t.Fatalf("expected %d default rules, got %d", len(Defaults()), engine.Len())
	}

	empty, err := Load("", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out, _ := empty.Apply("at task"); out != "at task" {
		t.Fatalf("expected passthrough, got %q", out)
	}
}

func TestDefaultsCorrectCommandVocabulary(t *testing.T) {
	t.Parallel()

	engine := New(Defaults(), 0)
	cases := map[string]string{
		"at task buy milk":        "add task buy milk",
		"compete task two":        "complete task 2",
		"delete task number four": "delete task 4",
		"Remove task to":          "Remove task 2",
		"hey darlene":             "hey darling",
		"add task to call mom":    "add task to call mom",
		"complete task 3":         "complete task 3",
		"show complete tasks":     "show completed tasks",
	}
	for input, want := range cases {
		got, err := engine.Apply(input)
		if err != nil {
			t.Fatalf("apply %q failed: %v", input, err)
		}
		if got != want {
			t.Fatalf("apply %q: expected %q, got %q", input, want, got)
		}
	}
}

func writeRules(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "substitutions.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}
	return path
}
