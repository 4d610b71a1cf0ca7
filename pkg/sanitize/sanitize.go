// Package sanitize cleans identifiers received from outside the process
// (HTTP bodies, MCP tool arguments) before they reach the engine, logs and stores.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/statecraft/pkg/domain"
)

var (
	// DefaultMaxIdentifierSize is 256 bytes.
	DefaultMaxIdentifierSize = 256
	// EnvMaxIdentifierSize is the environment variable to override the default.
	EnvMaxIdentifierSize = "STATECRAFT_MAX_IDENTIFIER_SIZE"
)

var (
	ErrTooLarge    = errors.New("identifier exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("identifier contains invalid UTF-8 sequences")
)

// Identifier enforces the size limit, validates UTF-8, strips every control
// character (ANSI escapes, NULL, newlines) and trims surrounding spaces.
// Oversized input is rejected rather than truncated.
func Identifier(s string) (string, error) {
	limit := maxIdentifierSize()
	if len(s) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(s), limit)
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	// Fast path: nothing to strip.
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return strings.TrimSpace(s), nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// Request sanitizes every identifier field of req. The context is left as is.
func Request(req domain.TransitionRequest) (domain.TransitionRequest, error) {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"entity_type", &req.EntityType},
		{"entity_id", &req.EntityID},
		{"from_state", &req.FromState},
		{"to_state", &req.ToState},
		{"user_id", &req.UserID},
	}
	for _, f := range fields {
		clean, err := Identifier(*f.ptr)
		if err != nil {
			return req, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = clean
	}
	return req, nil
}

func maxIdentifierSize() int {
	if val := os.Getenv(EnvMaxIdentifierSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxIdentifierSize
}
