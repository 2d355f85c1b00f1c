package idempotency

import (
	"crypto/sha512"
	"encoding/hex"
	"regexp"
	"strings"
)

var mentionRe = regexp.MustCompile(`(?i)@\w+`)

// Normalize strips @mentions and surrounding whitespace so that the same text
// addressed to different people still collides.
func Normalize(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))
}

// ContentKey returns the hex SHA-512 of the normalized text. Check and record
// must both go through here.
func ContentKey(text string) string {
	sum := sha512.Sum512([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
