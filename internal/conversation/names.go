package conversation

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var greetings = map[string]struct{}{
	"hola":          {},
	"hello":         {},
	"hi":            {},
	"buenas tardes": {},
}

// normalizeText trims and lower-cases body for keyword matching.
func normalizeText(body string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(body)))
}

// IsGreeting reports whether body is exactly one of the greeting keywords,
// ignoring case and surrounding whitespace.
func IsGreeting(body string) bool {
	_, ok := greetings[normalizeText(body)]
	return ok
}

// FormatFirstName takes the first whitespace-delimited token of the display
// name and keeps letters and spaces only. Any Unicode letter counts, so "José"
// is kept whole. When nothing usable remains the raw sender id is returned as
// is rather than greeting an empty name.
func FormatFirstName(displayName, senderID string) string {
	fields := strings.Fields(norm.NFC.String(displayName))
	if len(fields) == 0 {
		return senderID
	}
	first := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, fields[0])
	if first == "" {
		return senderID
	}
	return first
}
