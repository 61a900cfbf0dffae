package crisis

import (
	"strings"

	"github.com/sahara-labs/sahara/backend/internal/model/language"
)

// Level grades how urgently an utterance signals risk.
type Level string

const (
	LevelNone     Level = "none"
	LevelElevated Level = "elevated"
	LevelCrisis   Level = "crisis"
)

// IsCrisis reports whether the level requires the escalation flow.
func (l Level) IsCrisis() bool { return l == LevelCrisis }

// Classify grades one utterance against the pattern set for the given
// language. A language without a registered set silently uses the default
// one; failing the turn over a missing language would be worse than a rough
// match. The result depends only on the inputs, never on history, and
// classification never errors.
func Classify(text, lang string) Level {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return LevelNone
	}

	set := patternsFor(lang)
	if matchesAny(normalized, set.crisis) {
		return LevelCrisis
	}
	if matchesAny(normalized, set.elevated) {
		return LevelElevated
	}
	return LevelNone
}

func patternsFor(lang string) patternSet {
	if set, ok := patternsByLanguage[language.Normalize(lang)]; ok {
		return set
	}
	return patternsByLanguage[language.DefaultCode]
}

func matchesAny(normalized string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}
