// Package rules rewrites recognizer transcripts before they are interpreted.
//
// A rule file holds one rule per line. Blank lines and lines starting with
// '#' are ignored. Two forms are understood:
//
//	at task => add task
//	s/\bcompete\s+task\b/complete task/g
//
// Literal rules match whole words, ignoring case. Regex rules are always
// case-insensitive and replace the first match unless the g flag is given.
package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultLoopLimit bounds how many passes Apply makes before giving up.
const DefaultLoopLimit = 30

// ErrUnstable reports that the rules kept rewriting past the loop limit.
var ErrUnstable = errors.New("rules did not settle")

// Rule rewrites text and reports whether anything changed.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// Engine applies rules in order, pass after pass, until the text stops changing.
type Engine struct {
	rules     []Rule
	loopLimit int
}

// New builds an engine from already compiled rules.
func New(rules []Rule, loopLimit int) *Engine {
	if loopLimit <= 0 {
		loopLimit = DefaultLoopLimit
	}
	return &Engine{rules: rules, loopLimit: loopLimit}
}

// Load builds an engine from the built-in corrections (when withDefaults is
// set) followed by the rules in path. A missing file is not an error.
func Load(path string, loopLimit int, withDefaults bool) (*Engine, error) {
	var compiled []Rule
	if withDefaults {
		compiled = append(compiled, Defaults()...)
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return New(compiled, loopLimit), nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(compiled, loopLimit), nil
		}
		return nil, fmt.Errorf("open rules file %q: %w", path, err)
	}
	defer file.Close()

	parsed, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse rules file %q: %w", path, err)
	}
	return New(append(compiled, parsed...), loopLimit), nil
}

// Len returns the number of loaded rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply rewrites text. When the rules have not settled after the loop limit
// the last output is returned together with ErrUnstable.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for pass := 0; pass < e.loopLimit; pass++ {
		changed := false
		for _, rule := range e.rules {
			if next, ok := rule.Apply(result); ok {
				result = next
				changed = true
			}
		}
		if !changed {
			return result, nil
		}
	}
	return result, fmt.Errorf("%w after %d passes", ErrUnstable, e.loopLimit)
}
