package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the tenant. The server body is decoded
// when it carries the usual {code, reason, message} shape.
type Error struct {
	Status  int    `json:"-"`
	Method  string `json:"-"`
	URL     string `json:"-"`
	Code    int    `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  any    `json:"detail,omitempty"`

	// OAuth endpoints answer with RFC 6749 error bodies instead.
	OAuthError       string `json:"error,omitempty"`
	OAuthDescription string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.OAuthDescription
	}
	if msg == "" {
		msg = e.OAuthError
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Reason != "" && !strings.EqualFold(e.Reason, msg) {
		msg = e.Reason + ": " + msg
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, msg)
}

func newError(req *http.Request, status int, body []byte) *Error {
	e := &Error{Status: status}
	if req != nil {
		e.Method = req.Method
		e.URL = req.URL.Redacted()
	}
	if len(body) > 0 {
		if json.Unmarshal(body, e) != nil {
			e.Message = strings.TrimSpace(truncate(string(body), 200))
		}
	}
	return e
}

// IsStatus reports whether err is a tenant Error with the given status.
func IsStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

// IsNotFound reports whether err is a 404 from the tenant.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
