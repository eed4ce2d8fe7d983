// Package lang provides language code parsing and heuristic language
// detection. Codes follow ISO 639-1 with optional regional subtags.
package lang

import (
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// validLanguages contains the ISO 639-1 codes the rewriting providers
// support. Not exhaustive; users can request additions.
var validLanguages = map[string]bool{
	"ar": true, "bg": true, "ca": true, "cs": true, "da": true,
	"de": true, "el": true, "en": true, "es": true, "et": true,
	"fa": true, "fi": true, "fr": true, "he": true, "hi": true,
	"hr": true, "hu": true, "id": true, "it": true, "ja": true,
	"ko": true, "lt": true, "lv": true, "nl": true, "no": true,
	"pl": true, "pt": true, "ro": true, "ru": true, "sk": true,
	"sl": true, "sr": true, "sv": true, "th": true, "tr": true,
	"uk": true, "vi": true, "zh": true,
}

// displayNames maps normalized codes to human-readable names used in
// prompt instructions.
var displayNames = map[string]string{
	"en": "English", "fr": "French", "es": "Spanish", "pt": "Portuguese",
	"de": "German", "it": "Italian", "nl": "Dutch", "pl": "Polish",
	"ru": "Russian", "ja": "Japanese", "ko": "Korean", "zh": "Chinese",
	"ar": "Arabic", "sv": "Swedish", "da": "Danish", "no": "Norwegian",
	"fi": "Finnish", "tr": "Turkish",
}

// Language represents a validated language code.
// Zero value means unset; use Parse to create from user input.
type Language struct {
	code string
}

// Compile-time interface compliance check.
var _ fmt.Stringer = Language{}

// normalize lowercases a code and unifies separators.
// "FR", "fr_FR", "fr-FR" -> "fr-fr".
func normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", "-"))
}

// Parse validates and parses a language code.
// Accepts ISO 639-1 codes ("fr") and locales ("pt-BR").
// Empty input returns the zero value without error.
func Parse(code string) (Language, error) {
	if code == "" {
		return Language{}, nil
	}

	normalized := normalize(code)
	base := normalized
	if idx := strings.Index(normalized, "-"); idx != -1 {
		base = normalized[:idx]
	}

	if !validLanguages[base] {
		return Language{}, fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
			code, ErrInvalid)
	}
	return Language{code: normalized}, nil
}

// MustParse parses a language code, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParse(code string) Language {
	l, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return l
}

// String returns the normalized code, or empty string for the zero value.
func (l Language) String() string {
	return l.code
}

// IsZero reports whether no language is set.
func (l Language) IsZero() bool {
	return l.code == ""
}

// BaseCode returns the ISO 639-1 base code without a regional subtag.
// "pt-br" -> "pt".
func (l Language) BaseCode() string {
	if idx := strings.Index(l.code, "-"); idx != -1 {
		return l.code[:idx]
	}
	return l.code
}

// DisplayName returns a human-readable name for the language,
// falling back to the code itself.
func (l Language) DisplayName() string {
	if name, ok := displayNames[l.BaseCode()]; ok {
		return name
	}
	return l.code
}

// Detect guesses the language of a text using trigram analysis.
// Returns the zero value when the text is too short or the detector
// is not confident enough to commit to a language.
func Detect(text string) Language {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return Language{}
	}
	code := info.Lang.Iso6391()
	if code == "" || !validLanguages[code] {
		return Language{}
	}
	return Language{code: code}
}

// SameFamily reports whether two languages share a base code.
// A zero value on either side matches anything: detection that could
// not commit must not count as a mismatch.
func SameFamily(a, b Language) bool {
	if a.IsZero() || b.IsZero() {
		return true
	}
	return a.BaseCode() == b.BaseCode()
}
