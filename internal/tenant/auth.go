package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
	"github.com/int128/oauth2cli"
	"github.com/pkg/browser"
	"golang.org/x/oauth2"
)

const (
	jwtBearerGrant       = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	serviceAccountClient = "service-account"
	defaultLoginClientID = "idmAdminClient"
	defaultRedirectPath  = "/platform/appAuthHelperRedirect.html"
	assertionLifetime    = 3 * time.Minute
)

var (
	serviceAccountScopes = []string{"fr:am:*", "fr:idm:*", "fr:idc:esv:*"}
	userScopes           = []string{"openid", "fr:idm:*", "fr:idc:esv:*"}
)

// ErrNoCredentials is returned by Login when no method is configured.
var ErrNoCredentials = errors.New("no credentials: provide a service account, a username and password, or --browser")

// LoginConfig selects and parameterizes the login method.
type LoginConfig struct {
	ServiceAccountID  string
	ServiceAccountJWK []byte

	Username string
	Password string

	Browser bool
	// OpenURL opens the authorization page, browser.OpenURL when nil.
	OpenURL func(string) error

	ClientID    string
	RedirectURI string
}

// Login authenticates the session with, in order of preference, a service
// account, a username and password, or the system browser.
func (s *Session) Login(ctx context.Context, cfg LoginConfig) error {
	switch {
	case cfg.ServiceAccountID != "" && len(cfg.ServiceAccountJWK) > 0:
		return s.serviceAccountLogin(ctx, cfg)
	case cfg.Username != "" && cfg.Password != "":
		return s.passwordLogin(ctx, cfg)
	case cfg.Browser:
		return s.browserLogin(ctx, cfg)
	default:
		return ErrNoCredentials
	}
}

func (s *Session) serviceAccountLogin(ctx context.Context, cfg LoginConfig) error {
	signer, err := newAssertionSigner(cfg.ServiceAccountJWK)
	if err != nil {
		return err
	}
	src := &jwtBearerSource{
		ctx:       ctx,
		session:   s,
		tokenURL:  s.Endpoint(ctx).TokenURL,
		accountID: cfg.ServiceAccountID,
		signer:    signer,
	}
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("service account login failed: %w", err)
	}
	s.SetTokenSource(oauth2.ReuseTokenSource(tok, src), cfg.ServiceAccountID)
	s.logger.Info("logged in with service account", "id", cfg.ServiceAccountID)
	return nil
}

func newAssertionSigner(jwkJSON []byte) (jose.Signer, error) {
	var key jose.JSONWebKey
	if err := key.UnmarshalJSON(jwkJSON); err != nil {
		return nil, fmt.Errorf("invalid service account JWK: %w", err)
	}
	if key.IsPublic() {
		return nil, errors.New("service account JWK must contain a private key")
	}
	alg := jose.SignatureAlgorithm(key.Algorithm)
	if alg == "" {
		alg = jose.RS256
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("failed to create assertion signer: %w", err)
	}
	return signer, nil
}

// jwtBearerSource exchanges a freshly signed assertion for every token.
type jwtBearerSource struct {
	ctx       context.Context
	session   *Session
	tokenURL  string
	accountID string
	signer    jose.Signer
}

func (j *jwtBearerSource) Token() (*oauth2.Token, error) {
	now := time.Now()
	claims := jwt.Claims{
		Issuer:   j.accountID,
		Subject:  j.accountID,
		Audience: jwt.Audience{j.tokenURL},
		Expiry:   jwt.NewNumericDate(now.Add(assertionLifetime)),
		ID:       uuid.NewString(),
	}
	assertion, err := jwt.Signed(j.signer).Claims(claims).Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to sign assertion: %w", err)
	}
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"client_id":  {serviceAccountClient},
		"scope":      {strings.Join(serviceAccountScopes, " ")},
		"assertion":  {assertion},
	}
	return j.session.postTokenForm(j.ctx, j.tokenURL, form)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s *Session) postTokenForm(ctx context.Context, tokenURL string, form url.Values) (*oauth2.Token, error) {
	encoded := form.Encode()
	var last *http.Request
	resp, err := doWithRetry(ctx, s.http, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.Header.Set("Accept", "application/json")
		r.Header.Set("User-Agent", s.userAgent)
		last = r
		return r, nil
	}, s.retry)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(last, resp.StatusCode, body)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}
	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}

func (s *Session) passwordLogin(ctx context.Context, cfg LoginConfig) error {
	var info struct {
		CookieName string `json:"cookieName"`
	}
	err := s.DoJSON(ctx, Request{
		Method:     http.MethodGet,
		Path:       "/am/json/serverinfo/*",
		APIVersion: "resource=1.1",
		Auth:       AuthNone,
	}, &info)
	if err != nil {
		return fmt.Errorf("failed to read server info: %w", err)
	}
	if info.CookieName == "" {
		info.CookieName = "iPlanetDirectoryPro"
	}

	var auth struct {
		TokenID string `json:"tokenId"`
	}
	err = s.DoJSON(ctx, Request{
		Method:     http.MethodPost,
		Path:       "/am/json/realms/root/authenticate",
		APIVersion: "resource=2.0, protocol=1.0",
		Auth:       AuthNone,
		Body:       json.RawMessage("{}"),
		Header: http.Header{
			"X-OpenAM-Username": {cfg.Username},
			"X-OpenAM-Password": {cfg.Password},
		},
	}, &auth)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if auth.TokenID == "" {
		return errors.New("authentication failed: no session token returned")
	}
	s.setAMSession(info.CookieName, auth.TokenID, cfg.Username)

	conf := s.oauthConfig(ctx, cfg)
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	authURL := conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("decision", "allow"),
		oauth2.SetAuthURLParam("csrf", auth.TokenID),
	)
	code, err := s.authorizationCode(ctx, authURL, state)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	octx := context.WithValue(ctx, oauth2.HTTPClient, s.http)
	tok, err := conf.Exchange(octx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}
	s.SetTokenSource(conf.TokenSource(octx, tok), "")
	s.logger.Info("logged in", "user", cfg.Username)
	return nil
}

// authorizationCode requests authURL with the AM session and reads the code
// from the redirect without following it.
func (s *Session) authorizationCode(ctx context.Context, authURL, state string) (string, error) {
	client := *s.http
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	if err := s.authorize(req, AuthAM); err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	loc := resp.Header.Get("Location")
	if resp.StatusCode/100 != 3 || loc == "" {
		return "", newError(req, resp.StatusCode, nil)
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("invalid redirect %q: %w", loc, err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("%s: %s", e, q.Get("error_description"))
	}
	if q.Get("state") != state {
		return "", errors.New("state mismatch in authorization redirect")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("no authorization code in redirect")
	}
	return code, nil
}

func (s *Session) browserLogin(ctx context.Context, cfg LoginConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conf := s.oauthConfig(ctx, cfg)
	conf.RedirectURL = ""
	openURL := cfg.OpenURL
	if openURL == nil {
		openURL = browser.OpenURL
	}

	ready := make(chan string, 1)
	go func() {
		select {
		case u := <-ready:
			s.logger.Info("opening browser for login", "url", u)
			if err := openURL(u); err != nil {
				s.logger.Warn("could not open browser, visit the URL manually", "url", u, "error", err)
			}
		case <-ctx.Done():
		}
	}()

	verifier := oauth2.GenerateVerifier()
	octx := context.WithValue(ctx, oauth2.HTTPClient, s.http)
	tok, err := oauth2cli.GetToken(octx, oauth2cli.Config{
		OAuth2Config:           conf,
		AuthCodeOptions:        []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)},
		TokenRequestOptions:    []oauth2.AuthCodeOption{oauth2.VerifierOption(verifier)},
		LocalServerBindAddress: []string{"127.0.0.1:0"},
		LocalServerReadyChan:   ready,
	})
	if err != nil {
		return fmt.Errorf("browser login failed: %w", err)
	}
	// the refreshing source must outlive this function's cancelled context
	refresh := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, s.http)
	s.SetTokenSource(conf.TokenSource(refresh, tok), "")
	s.logger.Info("logged in with browser")
	return nil
}

func (s *Session) oauthConfig(ctx context.Context, cfg LoginConfig) oauth2.Config {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultLoginClientID
	}
	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = s.host + defaultRedirectPath
	}
	return oauth2.Config{
		ClientID:    clientID,
		Endpoint:    s.Endpoint(ctx),
		RedirectURL: redirect,
		Scopes:      userScopes,
	}
}
