// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"echoverse/internal/models"
)

const (
	// PasswordMinLength and PasswordMaxLength bound account passwords.
	PasswordMinLength = 6
	PasswordMaxLength = 50

	// NameMinLength and NameMaxLength bound display names.
	NameMinLength = 2
	NameMaxLength = 100

	// MaxTagLength bounds a single tag name.
	MaxTagLength = 100

	// MaxBioLength bounds the profile bio.
	MaxBioLength = 500
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// audioExtensions and imageExtensions are the accepted upload formats.
var audioExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".ogg": {}, ".m4a": {}, ".aac": {},
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	return nil
}

// ValidatePassword checks if a password meets length requirements
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters long", PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return fmt.Errorf("password must not exceed %d characters", PasswordMaxLength)
	}
	return nil
}

// ValidateName checks display name length.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < NameMinLength {
		return fmt.Errorf("name must be at least %d characters long", NameMinLength)
	}
	if n > NameMaxLength {
		return fmt.Errorf("name must not exceed %d characters", NameMaxLength)
	}
	return nil
}

// ValidateContent checks a post or comment body. An empty body is allowed
// only when hasMedia is true.
func ValidateContent(content string, hasMedia bool) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" && !hasMedia {
		return fmt.Errorf("content cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > models.MaxContentLength {
		return fmt.Errorf("content must not exceed %d characters", models.MaxContentLength)
	}
	return nil
}

// ValidateBio checks the profile bio length.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("bio must not exceed %d characters", MaxBioLength)
	}
	return nil
}

// NormalizeTags lowercases tag names, strips leading '#' characters, drops
// empties and over-long names, and removes duplicates while preserving order.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.TrimLeft(name, "#")
		if name == "" || len(name) > MaxTagLength {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ValidAudioExt reports whether the filename has an accepted audio extension.
func ValidAudioExt(filename string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ValidImageExt reports whether the filename has an accepted image extension.
func ValidImageExt(filename string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}
