package utils

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// Station ids, backend names: alphanumeric, underscore, hyphen, dot
	validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

	dangerousPattern = regexp.MustCompile(`[<>]|--|\/\*|\*\/|;.*--`)

	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
)

const (
	maxIDLength    = 100
	maxTokenLength = 512
	maxNameLength  = 200
)

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > maxIDLength {
		return errors.New("id too long (max 100 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// ValidateContextToken checks a paging token handed out by a backend. Tokens
// are opaque but never contain whitespace or control characters.
func ValidateContextToken(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}

	if len(token) > maxTokenLength {
		return errors.New("token too long (max 512 characters)")
	}

	for _, r := range token {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return errors.New("token contains whitespace or control characters")
		}
	}

	if dangerousPattern.MatchString(token) {
		return errors.New("token contains invalid characters")
	}

	return nil
}

// ValidateLatitude validates latitude values
func ValidateLatitude(lat float64) error {
	if lat < -90.0 || lat > 90.0 {
		return errors.New("latitude must be between -90 and 90")
	}
	return nil
}

// ValidateLongitude validates longitude values
func ValidateLongitude(lon float64) error {
	if lon < -180.0 || lon > 180.0 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// SanitizeName strips markup from a caller-supplied place name and bounds its length.
func SanitizeName(input string) string {
	sanitized := strings.TrimSpace(htmlTagPattern.ReplaceAllString(input, ""))
	if len(sanitized) > maxNameLength {
		sanitized = strings.ToValidUTF8(sanitized[:maxNameLength], "")
	}
	return sanitized
}
