package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nvinuesa/tenantporter/internal/security"
)

// EmailTemplateNamespace prefixes email template ids in IDM config.
const EmailTemplateNamespace = "emailTemplate/"

// Validation errors.
var (
	ErrMissingID         = errors.New("object ID is required")
	ErrInvalidVariableID = errors.New("variable ID must match esv-[a-z0-9_-]{1,124}")
	ErrInvalidEntityID   = errors.New("entity ID is not valid base64url")
)

var variableIDPattern = regexp.MustCompile(`^esv-[a-z0-9_-]{1,124}$`)

// ValidateVariableID checks an ESV variable id.
func ValidateVariableID(id string) error {
	if id == "" {
		return ErrMissingID
	}
	if !variableIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidVariableID, id)
	}
	return nil
}

// StripEmailTemplateNamespace removes the emailTemplate/ prefix from an id.
func StripEmailTemplateNamespace(id string) string {
	return strings.TrimPrefix(id, EmailTemplateNamespace)
}

// EmailTemplateConfigID returns the IDM config id for a template id,
// accepting ids with or without the namespace.
func EmailTemplateConfigID(id string) string {
	return EmailTemplateNamespace + StripEmailTemplateNamespace(id)
}

// EncodeEntityID returns the base64url (unpadded) form of a SAML entity id,
// which AM uses as the object _id.
func EncodeEntityID(entityID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(entityID))
}

// DecodeEntityID reverses EncodeEntityID. Padded input is accepted.
func DecodeEntityID(id64 string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(id64, "="))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEntityID, err)
	}
	return string(b), nil
}

// ObjectID returns the _id property of a JSON object payload.
func ObjectID(raw json.RawMessage) (string, error) {
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	if obj.ID == "" {
		return "", ErrMissingID
	}
	return obj.ID, nil
}

// WithObjectID returns a copy of the payload with _id replaced.
func WithObjectID(raw json.RawMessage, id string) (json.RawMessage, error) {
	return SetField(raw, "_id", encodeString(id))
}

// Field returns one member of an object payload.
func Field(raw json.RawMessage, name string) (json.RawMessage, bool, error) {
	_, items, err := decodeOrdered(raw)
	if err != nil {
		return nil, false, err
	}
	v, ok := items[name]
	return v, ok, nil
}

// SetField returns a copy of the object payload with one member replaced,
// or appended when absent. The other members keep their bytes and order.
func SetField(raw json.RawMessage, name string, value json.RawMessage) (json.RawMessage, error) {
	keys, items, err := decodeOrdered(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := items[name]; !ok {
		keys = append(keys, name)
	}
	items[name] = value
	return encodeOrdered(keys, items)
}

// DecodeObject decodes a payload that must be a JSON object. Numbers are
// kept as json.Number.
func DecodeObject(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}

// ValidateObjectID checks that an id can be used in a URL path and a file name.
func ValidateObjectID(id string) error {
	if id == "" {
		return ErrMissingID
	}
	return security.ValidateObjectID(id)
}
