// Package files reads and writes export files and implements the file naming
// conventions used for typed and raw exports.
package files

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/security"
)

// ReadFile reads a file, mapping OS errors to the package error types.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, mapOSError(path, "read", err)
	}
	if info.IsDir() {
		return nil, &ErrInvalidFormat{Path: path, Details: "is a directory"}
	}
	if info.Size() > security.MaxFileSize {
		return nil, &ErrInvalidFormat{Path: path, Details: fmt.Sprintf("file exceeds %d bytes", security.MaxFileSize)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapOSError(path, "read", err)
	}
	return data, nil
}

// ReadEnvelope loads an export envelope.
func ReadEnvelope(path string) (*model.Envelope, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ErrInvalidFormat{Path: path, Details: "not a JSON object", Err: err}
	}
	return &env, nil
}

// ReadObject loads a raw single-object file.
func ReadObject(path string) (json.RawMessage, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := model.DecodeObject(data); err != nil {
		return nil, &ErrInvalidFormat{Path: path, Details: "not a JSON object", Err: err}
	}
	return json.RawMessage(data), nil
}

// WriteJSON writes v as indented JSON with a trailing newline, creating
// parent directories as needed. HTML characters are not escaped.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return WriteFile(path, buf.Bytes())
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return mapOSError(path, "write", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return mapOSError(path, "write", err)
	}
	return nil
}

// List returns the paths of regular files in dir whose names satisfy match,
// sorted by name. Subdirectories are not descended into.
func List(dir string, match func(name string) bool) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, mapOSError(dir, "list", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !match(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func mapOSError(path, op string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &ErrFileNotFound{Path: path}
	case errors.Is(err, fs.ErrPermission):
		return &ErrPermissionDenied{Path: path, Op: op, Err: err}
	default:
		return fmt.Errorf("failed to %s %s: %w", op, path, err)
	}
}
