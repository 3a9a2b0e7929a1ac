package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

const saml2Path = "/realm-config/saml2"

// SamlStub is a SAML2 entity as returned by the list endpoint.
type SamlStub struct {
	ID       string   `json:"_id"`
	EntityID string   `json:"entityId"`
	Location string   `json:"location"`
	Roles    []string `json:"roles"`
}

// Saml2 manages hosted and remote SAML2 entity providers.
type Saml2 struct {
	s *tenant.Session
}

// NewSaml2 creates the SAML2 API.
func NewSaml2(s *tenant.Session) *Saml2 {
	return &Saml2{s: s}
}

func (a *Saml2) path(location, id64 string) string {
	p := saml2Path
	if location != "" {
		p += "/" + esc(location)
	}
	if id64 != "" {
		p += "/" + esc(id64)
	}
	return a.s.RealmPath(p)
}

// List returns stubs of every entity in the realm.
func (a *Saml2) List(ctx context.Context) ([]SamlStub, error) {
	var res struct {
		Result []SamlStub `json:"result"`
	}
	err := a.s.DoJSON(ctx, tenant.Request{
		Method:     http.MethodGet,
		Path:       a.path("", ""),
		Query:      url.Values{"_queryFilter": {"true"}},
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Result, nil
}

// Stub finds the list entry for an entity id.
func (a *Saml2) Stub(ctx context.Context, entityID string) (*SamlStub, error) {
	stubs, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range stubs {
		if stubs[i].EntityID == entityID {
			return &stubs[i], nil
		}
	}
	return nil, notFound("SAML2 entity", entityID)
}

// Read returns the full provider at location ("hosted" or "remote").
func (a *Saml2) Read(ctx context.Context, location, id64 string) (json.RawMessage, error) {
	return a.s.Do(ctx, tenant.Request{
		Method:     http.MethodGet,
		Path:       a.path(location, id64),
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	})
}

// CreateHosted creates a hosted provider.
func (a *Saml2) CreateHosted(ctx context.Context, obj json.RawMessage) (json.RawMessage, error) {
	return a.s.Do(ctx, tenant.Request{
		Method:     http.MethodPost,
		Path:       a.path(model.LocationHosted, ""),
		Query:      url.Values{"_action": {"create"}},
		Body:       obj,
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	})
}

// Update replaces an existing provider.
func (a *Saml2) Update(ctx context.Context, location, id64 string, obj json.RawMessage) (json.RawMessage, error) {
	return a.s.Do(ctx, tenant.Request{
		Method:     http.MethodPut,
		Path:       a.path(location, id64),
		Body:       obj,
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	})
}

// ImportRemote creates remote providers from standard SAML metadata XML.
func (a *Saml2) ImportRemote(ctx context.Context, metadata string) error {
	_, err := a.s.Do(ctx, tenant.Request{
		Method: http.MethodPost,
		Path:   a.path(model.LocationRemote, ""),
		Query:  url.Values{"_action": {"importEntity"}},
		Body: map[string]string{
			"standardMetadata": base64.RawURLEncoding.EncodeToString([]byte(metadata)),
		},
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	})
	return err
}

// Delete removes a provider.
func (a *Saml2) Delete(ctx context.Context, location, id64 string) error {
	_, err := a.s.Do(ctx, tenant.Request{
		Method:     http.MethodDelete,
		Path:       a.path(location, id64),
		APIVersion: amServiceVersion,
		Auth:       tenant.AuthAM,
	})
	return err
}

// Metadata returns the standard metadata XML of an entity.
func (a *Saml2) Metadata(ctx context.Context, entityID string) (string, error) {
	realm := "/" + a.s.Realm()
	if realm == "/root" {
		realm = "/"
	}
	data, err := a.s.Do(ctx, tenant.Request{
		Method: http.MethodGet,
		Path:   "/am/saml2/jsp/exportmetadata.jsp",
		Query: url.Values{
			"entityid": {entityID},
			"realm":    {realm},
		},
		Header: http.Header{"Accept": {"text/xml"}},
		Auth:   tenant.AuthAM,
	})
	if err != nil {
		return "", fmt.Errorf("failed to export metadata for %s: %w", entityID, err)
	}
	return string(data), nil
}
