// Package domain holds the pieces shared by every business module: the
// validation error type and slug generation.
package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// ValidationError reports malformed client input. Message is shown to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var whitespace = regexp.MustCompile(`\s+`)

// Slugify lowercases s and replaces every whitespace run with a dash.
func Slugify(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

// ValidEmail reports whether s is a single bare address like user@example.com.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, ".")
}

// Page normalizes pagination input: page starts at 1, limit defaults to def
// and never exceeds maxLimit.
func Page(page, limit, def, maxLimit int) (offset, size int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return (page - 1) * limit, limit
}
