package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxURLLength bounds locations accepted from collaborators
const MaxURLLength = 8 * 1024

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateURL validates a location supplied by a collaborator
func ValidateURL(value, fieldName string) error {
	return ValidateString(value, fieldName, 1, MaxURLLength, true)
}

// ValidateDomain validates a domain or URL supplied for the exemption list
func ValidateDomain(value string) error {
	return ValidateString(strings.TrimSpace(value), "domain", 1, MaxURLLength, true)
}
