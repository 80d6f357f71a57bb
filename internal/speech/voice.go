// Package speech picks a synthesis voice and its delivery settings.
package speech

import "strings"

// Voice describes a synthesis voice offered by the platform.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// Params are the pitch, rate and volume used when speaking.
type Params struct {
	Pitch  float64 `json:"pitch"`
	Rate   float64 `json:"rate"`
	Volume float64 `json:"volume"`
}

var femaleMarkers = []string{"female", "woman", "girl", "f "}

var femaleNames = []string{
	"samantha", "victoria", "karen", "moira", "tessa", "veena",
	"fiona", "alice", "lisa", "amy", "emma", "sarah", "zira",
	"cortana", "siri", "alexa",
}

// ScoreVoice rates how well a voice fits the assistant persona.
func ScoreVoice(v Voice) int {
	name := strings.ToLower(v.Name)
	score := 0
	if containsAny(name, femaleMarkers) {
		score += 20
	}
	if containsAny(name, femaleNames) {
		score += 15
	}
	if strings.HasPrefix(strings.ToLower(v.Lang), "en") {
		score += 10
	}
	if strings.Contains(name, "google") || strings.Contains(name, "microsoft") {
		score += 8
	}
	if !strings.Contains(name, "remote") && !strings.Contains(name, "network") {
		score += 5
	}
	return score
}

// SelectVoice returns the highest scoring voice; ties keep the earlier one.
func SelectVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	best, bestScore := voices[0], ScoreVoice(voices[0])
	for _, v := range voices[1:] {
		if score := ScoreVoice(v); score > bestScore {
			best, bestScore = v, score
		}
	}
	return best, true
}

// SpeakParams tunes delivery for the selected voice.
func SpeakParams(v Voice) Params {
	params := Params{Pitch: 1.15, Rate: 0.98, Volume: 1.0}
	name := strings.ToLower(v.Name)
	switch {
	case strings.Contains(name, "google"):
		params.Pitch, params.Rate = 1.08, 1.0
	case strings.Contains(name, "microsoft"):
		params.Pitch, params.Rate = 1.05, 0.95
	case strings.Contains(name, "apple"):
		params.Pitch, params.Rate = 1.12, 0.97
	}
	return params
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
