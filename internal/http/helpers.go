package http

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxNoteLength bounds free-text payment notes.
const maxNoteLength = 500

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}
