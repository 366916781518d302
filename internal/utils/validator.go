package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateUserID validates a provider account identifier, which is an
// email-like string.
func ValidateUserID(userID string) bool {
	return emailRegex.MatchString(userID)
}

// SanitizeUserID normalizes a provider account identifier for use as a
// storage key.
func SanitizeUserID(userID string) string {
	return strings.ToLower(strings.TrimSpace(userID))
}
