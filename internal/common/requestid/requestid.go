package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// HeaderName carries the request ID on both requests and responses
const HeaderName = "X-Request-ID"

const (
	// MaxRequestIDLength matches the length of a UUID string
	MaxRequestIDLength = 36
	// PrefixLength is the length of the random prefix put before a client supplied ID
	PrefixLength = 5
	// MaxCustomIDLength leaves room for the prefix and its hyphen
	MaxCustomIDLength = MaxRequestIDLength - PrefixLength - 1
)

var (
	invalidCharsRe = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	hyphenRunRe    = regexp.MustCompile(`-+`)
)

// Sanitize keeps [a-zA-Z0-9-] from a client supplied ID, turns spaces into hyphens,
// squeezes hyphen runs and caps the result at MaxCustomIDLength.
func Sanitize(customID string) string {
	s := strings.ReplaceAll(customID, " ", "-")
	s = invalidCharsRe.ReplaceAllString(s, "")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxCustomIDLength {
		s = strings.TrimSuffix(s[:MaxCustomIDLength], "-")
	}
	return s
}

// GenerateRequestID returns "{5 hex chars}-{sanitized customID}", or a UUID when
// customID has nothing usable left after sanitizing.
func GenerateRequestID(customID string) string {
	sanitized := Sanitize(customID)
	if sanitized == "" {
		return uuid.New().String()
	}
	return randomPrefix() + "-" + sanitized
}

func randomPrefix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()[:PrefixLength]
	}
	return hex.EncodeToString(b)[:PrefixLength]
}
