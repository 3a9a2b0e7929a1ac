// Package tenant is the HTTP client for an identity platform tenant: AM, IDM
// and the environment (ESV) API behind one host.
package tenant

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/nvinuesa/tenantporter/internal/security"
)

// TransactionHeader carries a per-request id the tenant writes to its audit log.
const TransactionHeader = "X-ForgeRock-TransactionId"

// AuthMode selects how a request is authenticated.
type AuthMode int

const (
	// AuthAM uses the AM session cookie when present, else the bearer token.
	AuthAM AuthMode = iota
	// AuthBearer always uses the bearer token.
	AuthBearer
	// AuthNone sends no credentials.
	AuthNone
)

// Options configure a Session.
type Options struct {
	Host       string
	Realm      string
	Insecure   bool
	Timeout    time.Duration
	Retry      RetryConfig
	Logger     *slog.Logger
	HTTPClient *http.Client
	// ToolVersion is sent in the User-Agent.
	ToolVersion string
}

// Session holds everything needed to talk to one tenant: the normalized
// host, the realm, credentials obtained at login and the HTTP plumbing.
type Session struct {
	host      string
	realm     string
	http      *http.Client
	retry     RetryConfig
	logger    *slog.Logger
	userAgent string

	mu           sync.Mutex
	username     string
	cookieName   string
	sessionToken string
	tokens       oauth2.TokenSource
	amVersion    string
}

// NewSession validates the host and builds a Session without credentials.
func NewSession(opts Options) (*Session, error) {
	host, err := NormalizeHost(opts.Host)
	if err != nil {
		return nil, err
	}
	client := opts.HTTPClient
	if client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Insecure {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // --insecure
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Transport: tr, Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	realm := strings.Trim(opts.Realm, "/")
	if realm == "" {
		realm = "root"
	}
	ua := "tenantporter"
	if opts.ToolVersion != "" {
		ua += "/" + opts.ToolVersion
	}
	return &Session{
		host:      host,
		realm:     realm,
		http:      client,
		retry:     opts.Retry,
		logger:    logger,
		userAgent: ua,
	}, nil
}

// NormalizeHost strips a trailing "/am" and slashes and validates the URL.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	host = strings.TrimSuffix(host, "/am")
	if err := security.ValidateTenantURL(host); err != nil {
		return "", err
	}
	return host, nil
}

// Host returns the tenant base URL without a path.
func (s *Session) Host() string { return s.host }

// Realm returns the realm name, "root" for the root realm.
func (s *Session) Realm() string { return s.realm }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Username returns the logged-in user or service account id.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// RealmPath returns the AM REST path for the session realm followed by suffix.
func (s *Session) RealmPath(suffix string) string {
	p := "/am/json/realms/root"
	if s.realm != "root" {
		for _, part := range strings.Split(s.realm, "/") {
			p += "/realms/" + url.PathEscape(part)
		}
	}
	return p + suffix
}

// SetTokenSource installs the bearer token source.
func (s *Session) SetTokenSource(ts oauth2.TokenSource, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = oauth2.ReuseTokenSource(nil, ts)
	if username != "" {
		s.username = username
	}
}

func (s *Session) setAMSession(cookieName, token, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookieName = cookieName
	s.sessionToken = token
	s.username = username
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded unless it is already []byte or json.RawMessage.
	Body       any
	APIVersion string
	Auth       AuthMode
	Header     http.Header
}

// Do executes req and returns the response body. Non-2xx statuses become *Error.
func (s *Session) Do(ctx context.Context, req Request) ([]byte, error) {
	var body []byte
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = b
	case json.RawMessage:
		body = b
	default:
		var err error
		if body, err = json.Marshal(b); err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	u := s.host + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	txID := "tenantporter-" + uuid.NewString()
	var last *http.Request
	newReq := func() (*http.Request, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		r, err := http.NewRequestWithContext(ctx, req.Method, u, rd)
		if err != nil {
			return nil, err
		}
		for k, v := range req.Header {
			r.Header[k] = v
		}
		if body != nil && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/json")
		}
		if r.Header.Get("Accept") == "" {
			r.Header.Set("Accept", "application/json")
		}
		if req.APIVersion != "" {
			r.Header.Set("Accept-API-Version", req.APIVersion)
		}
		r.Header.Set("User-Agent", s.userAgent)
		r.Header.Set(TransactionHeader, txID)
		if err := s.authorize(r, req.Auth); err != nil {
			return nil, err
		}
		last = r
		return r, nil
	}

	start := time.Now()
	resp, err := doWithRetry(ctx, s.http, newReq, s.retry)
	if err != nil {
		s.logger.Debug("request failed", "method", req.Method, "url", u, "transaction", txID, "error", err)
		return nil, fmt.Errorf("%s %s: %w", req.Method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, security.MaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", u, err)
	}
	s.logger.Debug("request",
		"method", req.Method,
		"url", u,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"transaction", txID,
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(last, resp.StatusCode, data)
	}
	return data, nil
}

// DoJSON executes req and decodes the response into out when out is non-nil.
func (s *Session) DoJSON(ctx context.Context, req Request, out any) error {
	data, err := s.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.Path, err)
	}
	return nil
}

func (s *Session) authorize(r *http.Request, mode AuthMode) error {
	if mode == AuthNone {
		return nil
	}
	s.mu.Lock()
	cookieName, sessionToken, tokens := s.cookieName, s.sessionToken, s.tokens
	s.mu.Unlock()

	if mode == AuthAM && sessionToken != "" {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: sessionToken})
		return nil
	}
	if tokens == nil {
		return nil
	}
	tok, err := tokens.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	tok.SetAuthHeader(r)
	return nil
}
