// Package security provides input validation utilities.
package security

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Input size limits.
const (
	MaxObjectIDLength = 256
	MaxFilenameLength = 255
	MaxURLLength      = 2048
	MaxFileSize       = 64 * 1024 * 1024 // 64 MB
)

// ValidateStringLength validates that a string is within allowed length.
func ValidateStringLength(s string, maxLen int, fieldName string) error {
	if len(s) > maxLen {
		return fmt.Errorf("%s exceeds maximum length of %d bytes", fieldName, maxLen)
	}
	return nil
}

// SanitizeString removes dangerous characters from a string.
func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		if r == 0 || (r < 32) {
			return -1
		}
		if r == '\ufeff' { // BOM
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// SanitizeFilename replaces characters that are not allowed in file names
// with an underscore.
func SanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if cleaned == "." || cleaned == ".." {
		return strings.Repeat("_", len(cleaned))
	}
	if len(cleaned) > MaxFilenameLength {
		n := MaxFilenameLength
		for n > 0 && !utf8.RuneStart(cleaned[n]) {
			n--
		}
		cleaned = cleaned[:n]
	}
	return cleaned
}

// ValidateObjectID ensures an object id is safe to use in a URL path segment
// and in a file name.
func ValidateObjectID(id string) error {
	if id == "" {
		return fmt.Errorf("object ID cannot be empty")
	}

	if err := ValidateStringLength(id, MaxObjectIDLength, "object ID"); err != nil {
		return err
	}

	if strings.ContainsAny(id, "/\\?#") {
		return fmt.Errorf("object ID %q contains invalid characters", id)
	}

	if strings.Contains(id, "..") {
		return fmt.Errorf("object ID cannot contain '..'")
	}

	return nil
}

// ValidateTenantURL checks that a tenant base URL is absolute http(s).
func ValidateTenantURL(raw string) error {
	if err := ValidateStringLength(raw, MaxURLLength, "URL"); err != nil {
		return err
	}
	if strings.Contains(raw, "\x00") {
		return fmt.Errorf("URL contains null byte")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
