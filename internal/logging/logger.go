// Package logging is a thin subsystem-prefixed wrapper over the standard
// logger. Debug output is opt-in via DEBUG=true so noisy per-message lines
// (gate skips, provider fallbacks) stay out of production logs.
package logging

import (
	"log"
	"os"
	"strings"
)

var debugEnabled = os.Getenv("DEBUG") == "true"

// Info logs a message that is always shown.
func Info(subsystem, format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
}

// Debug logs a message only when DEBUG=true.
func Debug(subsystem, format string, args ...any) {
	if debugEnabled {
		log.Printf("[%s] "+format, append([]any{subsystem}, args...)...)
	}
}

// Truncate flattens a string to one line and caps it at max runes. Chat
// replies routinely carry emoji, so the cut is rune-safe.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
