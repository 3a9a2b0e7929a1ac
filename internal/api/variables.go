package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

const variablesPath = "/environment/variables"

// Variable is an environment variable (ESV) as returned by the tenant.
type Variable struct {
	ID             string `json:"_id"`
	Description    string `json:"description"`
	ExpressionType string `json:"expressionType"`
	ValueBase64    string `json:"valueBase64,omitempty"`
	Loaded         bool   `json:"loaded"`
	LastChangeDate string `json:"lastChangeDate,omitempty"`
	LastChangedBy  string `json:"lastChangedBy,omitempty"`
}

// Value decodes ValueBase64.
func (v *Variable) Value() (string, error) {
	b, err := base64.StdEncoding.DecodeString(v.ValueBase64)
	return string(b), err
}

// Variables manages ESV variables.
type Variables struct {
	s *tenant.Session
	// PageSize bounds list pages.
	PageSize int
}

// NewVariables creates the variable API.
func NewVariables(s *tenant.Session) *Variables {
	return &Variables{s: s, PageSize: 100}
}

func variablePath(id string) string {
	return variablesPath + "/" + esc(id)
}

// List returns every variable, following paged results.
func (v *Variables) List(ctx context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	cookie := ""
	for {
		q := url.Values{"_queryFilter": {"true"}}
		if v.PageSize > 0 {
			q.Set("_pageSize", strconv.Itoa(v.PageSize))
		}
		if cookie != "" {
			q.Set("_pagedResultsCookie", cookie)
		}
		var res queryResult
		err := v.s.DoJSON(ctx, tenant.Request{
			Method:     http.MethodGet,
			Path:       variablesPath,
			Query:      q,
			APIVersion: esvVersion,
			Auth:       tenant.AuthBearer,
		}, &res)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Result...)
		if res.PagedResultsCookie == "" || len(res.Result) == 0 {
			return out, nil
		}
		cookie = res.PagedResultsCookie
	}
}

// Read returns one variable.
func (v *Variables) Read(ctx context.Context, id string) (json.RawMessage, error) {
	if err := model.ValidateVariableID(id); err != nil {
		return nil, err
	}
	return v.s.Do(ctx, tenant.Request{
		Method:     http.MethodGet,
		Path:       variablePath(id),
		APIVersion: esvVersion,
		Auth:       tenant.AuthBearer,
	})
}

// Create creates or replaces a variable with a plain-text value.
func (v *Variables) Create(ctx context.Context, id, value, description, expressionType string) (json.RawMessage, error) {
	if err := model.ValidateVariableID(id); err != nil {
		return nil, err
	}
	body := map[string]string{
		"valueBase64": base64.StdEncoding.EncodeToString([]byte(value)),
		"description": description,
	}
	if expressionType != "" {
		body["expressionType"] = expressionType
	}
	return v.s.Do(ctx, tenant.Request{
		Method:     http.MethodPut,
		Path:       variablePath(id),
		Body:       body,
		APIVersion: esvVersion,
		Auth:       tenant.AuthBearer,
	})
}

// SetDescription changes only the description.
func (v *Variables) SetDescription(ctx context.Context, id, description string) error {
	if err := model.ValidateVariableID(id); err != nil {
		return err
	}
	_, err := v.s.Do(ctx, tenant.Request{
		Method:     http.MethodPost,
		Path:       variablePath(id),
		Query:      url.Values{"_action": {"setDescription"}},
		Body:       map[string]string{"description": description},
		APIVersion: esvVersion,
		Auth:       tenant.AuthBearer,
	})
	return err
}

// Delete removes a variable.
func (v *Variables) Delete(ctx context.Context, id string) error {
	if err := model.ValidateVariableID(id); err != nil {
		return err
	}
	_, err := v.s.Do(ctx, tenant.Request{
		Method:     http.MethodDelete,
		Path:       variablePath(id),
		APIVersion: esvVersion,
		Auth:       tenant.AuthBearer,
	})
	return err
}
