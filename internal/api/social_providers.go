package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/nvinuesa/tenantporter/internal/tenant"
)

const socialProvidersPath = "/realm-config/services/SocialIdentityProviders"

// SocialProviders manages social identity provider configurations of the
// SocialIdentityProviders realm service.
type SocialProviders struct {
	s *tenant.Session
}

// NewSocialProviders creates the social identity provider API.
func NewSocialProviders(s *tenant.Session) *SocialProviders {
	return &SocialProviders{s: s}
}

// ProviderType returns the _type._id of a provider object, e.g. googleConfig.
func ProviderType(obj json.RawMessage) string {
	var p struct {
		Type struct {
			ID string `json:"_id"`
		} `json:"_type"`
	}
	if json.Unmarshal(obj, &p) != nil {
		return ""
	}
	return p.Type.ID
}

// List returns every configured provider.
func (p *SocialProviders) List(ctx context.Context) ([]json.RawMessage, error) {
	var res queryResult
	err := p.s.DoJSON(ctx, tenant.Request{
		Method:     http.MethodPost,
		Path:       p.s.RealmPath(socialProvidersPath),
		Query:      url.Values{"_action": {"nextdescendents"}},
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Result, nil
}

// Read finds a provider by id. The service has no by-id endpoint without the
// provider type, so the list is searched.
func (p *SocialProviders) Read(ctx context.Context, id string) (json.RawMessage, error) {
	all, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, obj := range all {
		var head struct {
			ID string `json:"_id"`
		}
		if json.Unmarshal(obj, &head) == nil && head.ID == id {
			return obj, nil
		}
	}
	return nil, notFound("social identity provider", id)
}

// Update creates or replaces a provider of type typ.
func (p *SocialProviders) Update(ctx context.Context, typ, id string, obj json.RawMessage) (json.RawMessage, error) {
	return p.s.Do(ctx, tenant.Request{
		Method:     http.MethodPut,
		Path:       p.s.RealmPath(socialProvidersPath + "/" + esc(typ) + "/" + esc(id)),
		Body:       obj,
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	})
}

// Delete removes a provider, looking up its type first.
func (p *SocialProviders) Delete(ctx context.Context, id string) error {
	obj, err := p.Read(ctx, id)
	if err != nil {
		return err
	}
	_, err = p.s.Do(ctx, tenant.Request{
		Method:     http.MethodDelete,
		Path:       p.s.RealmPath(socialProvidersPath + "/" + esc(ProviderType(obj)) + "/" + esc(id)),
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	})
	return err
}
