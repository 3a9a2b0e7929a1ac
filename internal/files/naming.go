package files

import (
	"path/filepath"
	"strings"

	"github.com/nvinuesa/tenantporter/internal/security"
)

// RawID extracts the object id from a raw file name of the form
// <prefix>-<id>.<ext>. Any directory part is ignored.
func RawID(filename, prefix string) (string, error) {
	base := filepath.Base(filename)
	head, rest, found := strings.Cut(base, "-")
	if !found {
		return "", &ErrInvalidFilename{Filename: base, Prefix: prefix, Reason: "no '-' separator"}
	}
	if head != prefix {
		return "", &ErrInvalidFilename{Filename: base, Prefix: prefix, Reason: "prefix " + head + " does not match"}
	}
	id, _, _ := strings.Cut(rest, ".")
	if id == "" {
		return "", &ErrInvalidFilename{Filename: base, Prefix: prefix, Reason: "empty id"}
	}
	return id, nil
}

// TypedFilename returns <name>.<kind>.<ext> with name made safe for the
// file system.
func TypedFilename(name, kind, ext string) string {
	return security.SanitizeFilename(name) + "." + kind + "." + ext
}

// ResolvePath joins file to dir unless file is absolute or dir is empty.
func ResolvePath(dir, file string) string {
	if dir == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

// HasSuffix returns a matcher for file names ending in suffix.
func HasSuffix(suffix string) func(string) bool {
	return func(name string) bool {
		return strings.HasSuffix(name, suffix)
	}
}

// RawMatcher returns a matcher for raw file names <prefix>-*.json.
func RawMatcher(prefix string) func(string) bool {
	return func(name string) bool {
		return strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".json")
	}
}
