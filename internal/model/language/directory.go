package language

import "strings"

// Base lowers a client-supplied code and strips any region suffix
// ("en-US" becomes "en") without checking whether the result is supported.
func Base(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return code
}

// Normalize maps a client-supplied code onto a supported base code, falling
// back to DefaultCode for anything unknown.
func Normalize(code string) string {
	base := Base(code)
	if _, ok := ByCode(base); !ok {
		return DefaultCode
	}
	return base
}

// ByCode looks up a supported language by its exact code.
func ByCode(code string) (Language, bool) {
	for _, l := range Supported() {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// CodeForName resolves an English language name ("Hindi", "english") to its
// code. Speech recognizers report detected languages by name rather than code.
func CodeForName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, l := range Supported() {
		if strings.EqualFold(l.Name, name) {
			return l.Code, true
		}
	}
	return "", false
}

// VoiceFor returns the synthesis voice for a language code, defaulting to
// the English voice for unknown codes.
func VoiceFor(code string) string {
	l, _ := ByCode(Normalize(code))
	return l.Voice
}
