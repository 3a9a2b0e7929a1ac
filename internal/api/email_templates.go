package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// EmailTemplates manages IDM emailTemplate config objects.
type EmailTemplates struct {
	s *tenant.Session
}

// NewEmailTemplates creates the email template API.
func NewEmailTemplates(s *tenant.Session) *EmailTemplates {
	return &EmailTemplates{s: s}
}

func templatePath(id string) string {
	return "/openidm/config/" + model.EmailTemplateNamespace + esc(model.StripEmailTemplateNamespace(id))
}

// List returns every email template object.
func (e *EmailTemplates) List(ctx context.Context) ([]json.RawMessage, error) {
	var res queryResult
	err := e.s.DoJSON(ctx, tenant.Request{
		Method: http.MethodGet,
		Path:   "/openidm/config",
		Query:  url.Values{"_queryFilter": {`_id sw "` + model.EmailTemplateNamespace + `"`}},
		Auth:   tenant.AuthBearer,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Result, nil
}

// Read returns one template by id, with or without the namespace prefix.
func (e *EmailTemplates) Read(ctx context.Context, id string) (json.RawMessage, error) {
	return e.s.Do(ctx, tenant.Request{
		Method: http.MethodGet,
		Path:   templatePath(id),
		Auth:   tenant.AuthBearer,
	})
}

// Update creates or replaces a template.
func (e *EmailTemplates) Update(ctx context.Context, id string, obj json.RawMessage) (json.RawMessage, error) {
	return e.s.Do(ctx, tenant.Request{
		Method: http.MethodPut,
		Path:   templatePath(id),
		Body:   obj,
		Auth:   tenant.AuthBearer,
	})
}

// Delete removes a template.
func (e *EmailTemplates) Delete(ctx context.Context, id string) error {
	_, err := e.s.Do(ctx, tenant.Request{
		Method: http.MethodDelete,
		Path:   templatePath(id),
		Auth:   tenant.AuthBearer,
	})
	return err
}
