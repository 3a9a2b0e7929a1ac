package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// Scripts reads and writes AM scripts. Script bodies are base64 on the wire.
type Scripts struct {
	s *tenant.Session
}

// NewScripts creates the script API.
func NewScripts(s *tenant.Session) *Scripts {
	return &Scripts{s: s}
}

// Read returns one script by id.
func (sc *Scripts) Read(ctx context.Context, id string) (json.RawMessage, error) {
	return sc.s.Do(ctx, tenant.Request{
		Method:     http.MethodGet,
		Path:       sc.s.RealmPath("/scripts/" + esc(id)),
		APIVersion: amScriptVersion,
		Auth:       tenant.AuthAM,
	})
}

// Update creates or replaces a script.
func (sc *Scripts) Update(ctx context.Context, id string, obj json.RawMessage) (json.RawMessage, error) {
	return sc.s.Do(ctx, tenant.Request{
		Method:     http.MethodPut,
		Path:       sc.s.RealmPath("/scripts/" + esc(id)),
		Body:       obj,
		APIVersion: amScriptVersion,
		Auth:       tenant.AuthAM,
	})
}
