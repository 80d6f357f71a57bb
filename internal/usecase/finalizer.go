package usecase

import (
	"strings"

	"github.com/rs/zerolog"

	"darling/internal/ports"
)

// utteranceFinalizer applies transcript corrections before interpretation.
// A failing rule set never loses the utterance: the raw text is used instead.
type utteranceFinalizer struct {
	rules ports.RulesEngine
	log   zerolog.Logger
}

func newUtteranceFinalizer(rules ports.RulesEngine, log zerolog.Logger) utteranceFinalizer {
	return utteranceFinalizer{rules: rules, log: log}
}

func (f utteranceFinalizer) Finalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if f.rules == nil || raw == "" {
		return raw
	}

	transformed, err := f.rules.Apply(raw)
	if err != nil {
		f.log.Warn().Err(err).Str("raw", raw).Msg("transcript rules failed; using raw transcript")
		return raw
	}
	transformed = strings.TrimSpace(transformed)
	if transformed == "" {
		return raw
	}
	if transformed != raw {
		f.log.Debug().Str("raw", raw).Str("final", transformed).Msg("transcript corrected")
	}
	return transformed
}
