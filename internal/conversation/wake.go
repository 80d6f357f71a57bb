package conversation

import "strings"

// DefaultWakePhrase is the canonical wake phrase.
const DefaultWakePhrase = "hey darling"

// Known mis-transcriptions of the default wake phrase.
var homophones = []string{
	"hey darlin",
	"hay darling",
	"hey darleen",
	"hi darling",
	"hello darling",
}

// WakeDetector matches transcripts against the accepted surface forms of a
// wake phrase.
type WakeDetector struct {
	variants []string
}

// NewWakeDetector builds a detector for phrase. The accepted forms are the
// phrase itself, the phrase without spaces and, for the default phrase, its
// known homophones.
func NewWakeDetector(phrase string) *WakeDetector {
	return &WakeDetector{variants: WakeVariants(phrase)}
}

// WakeVariants lists the accepted forms of phrase in match order.
func WakeVariants(phrase string) []string {
	phrase = Normalize(phrase)
	if phrase == "" {
		phrase = DefaultWakePhrase
	}

	variants := []string{phrase}
	if compact := strings.ReplaceAll(phrase, " ", ""); compact != phrase {
		variants = append(variants, compact)
	}
	if phrase == DefaultWakePhrase {
		variants = append(variants, homophones...)
	}
	return variants
}

// Variants returns a copy of the accepted forms.
func (d *WakeDetector) Variants() []string {
	out := make([]string, len(d.variants))
	copy(out, d.variants)
	return out
}

// Detect reports the first accepted form contained in transcript.
func (d *WakeDetector) Detect(transcript string) (string, bool) {
	normalized := Normalize(transcript)
	for _, variant := range d.variants {
		if strings.Contains(normalized, variant) {
			return variant, true
		}
	}
	return "", false
}

// Normalize lower-cases text and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
