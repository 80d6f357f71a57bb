package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
)

// Parse compiles every rule read from r.
func Parse(r io.Reader) ([]Rule, error) {
	var out []Rule
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return out, nil
}

// ParseLine compiles a single rule.
func ParseLine(line string) (Rule, error) {
	line = strings.TrimSpace(line)
	switch {
	case isRegexRule(line):
		return parseRegex(line)
	case strings.Contains(line, "=>"):
		from, to, _ := strings.Cut(line, "=>")
		return Literal(strings.TrimSpace(from), strings.TrimSpace(to))
	default:
		return nil, errors.New("unsupported rule format")
	}
}

type literalRule struct {
	re          *regexp.Regexp
	replacement string
}

// Literal replaces every whole-word occurrence of from with to, ignoring case.
func Literal(from, to string) (Rule, error) {
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}
	pattern := regexp.QuoteMeta(from)
	if isWordRune(firstRune(from)) {
		pattern = `\b` + pattern
	}
	if isWordRune(lastRune(from)) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}
	return literalRule{re: re, replacement: to}, nil
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

// parseRegex compiles s<d>pattern<d>replacement<d>flags for any
// non-alphanumeric delimiter d.
func parseRegex(line string) (Rule, error) {
	delim := line[1]
	fields, rest, err := splitDelimited(line[2:], delim, 2)
	if err != nil {
		return nil, err
	}

	flags := "i"
	global := false
	for _, flag := range strings.TrimSpace(rest) {
		switch flag {
		case 'g':
			global = true
		case 'i':
		case 'm', 's':
			flags += string(flag)
		case ' ', '\t':
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + flags + ")" + fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return regexRule{re: re, replacement: fields[1], global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	var output string
	if r.global {
		output = r.re.ReplaceAllString(input, r.replacement)
	} else {
		match := r.re.FindStringSubmatchIndex(input)
		if match == nil {
			return input, false
		}
		expanded := r.re.ExpandString(nil, r.replacement, input, match)
		output = input[:match[0]] + string(expanded) + input[match[1]:]
	}
	return output, output != input
}

// splitDelimited reads count fields terminated by delim. A backslash keeps
// the following byte, and is itself kept unless it escapes the delimiter.
func splitDelimited(s string, delim byte, count int) ([]string, string, error) {
	fields := make([]string, 0, count)
	var current strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			if s[i+1] != delim {
				current.WriteByte(c)
			}
			current.WriteByte(s[i+1])
			i++
		case c == delim:
			fields = append(fields, current.String())
			current.Reset()
			if len(fields) == count {
				return fields, s[i+1:], nil
			}
		default:
			current.WriteByte(c)
		}
	}
	return nil, "", errors.New("unterminated expression")
}

func isRegexRule(line string) bool {
	if len(line) < 2 || line[0] != 's' {
		return false
	}
	d := rune(line[1])
	return !isWordRune(d) && !unicode.IsSpace(d) && d < unicode.MaxASCII
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}
	return runes[len(runes)-1]
}
