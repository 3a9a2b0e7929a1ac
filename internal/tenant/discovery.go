package tenant

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Issuer returns the root realm OAuth2 issuer.
func (s *Session) Issuer() string {
	return s.host + "/am/oauth2"
}

// Endpoint discovers the authorize and token endpoints from the issuer's
// OpenID configuration, falling back to the well-known AM paths.
func (s *Session) Endpoint(ctx context.Context) oauth2.Endpoint {
	issuer := s.Issuer()
	ctx = oidc.ClientContext(ctx, s.http)
	// AM may advertise the issuer with an explicit port.
	ctx = oidc.InsecureIssuerURLContext(ctx, issuer)

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		s.logger.Debug("oidc discovery failed, using default endpoints", "issuer", issuer, "error", err)
		return oauth2.Endpoint{
			AuthURL:   issuer + "/authorize",
			TokenURL:  issuer + "/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
	}
	ep := provider.Endpoint()
	ep.AuthStyle = oauth2.AuthStyleInParams
	return ep
}
