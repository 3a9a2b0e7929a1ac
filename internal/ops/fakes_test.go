package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/console"
	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// callLog records API calls across fakes in order.
type callLog struct {
	calls []string
}

func (l *callLog) add(format string, a ...any) {
	l.calls = append(l.calls, fmt.Sprintf(format, a...))
}

func (l *callLog) with(prefix string) []string {
	var out []string
	for _, c := range l.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func notFound(id string) error {
	return &tenant.Error{Status: http.StatusNotFound, Method: http.MethodGet, URL: id}
}

var errBoom = errors.New("boom")

func newDeps() (Deps, *console.Recorder) {
	rec := console.NewRecorder()
	return Deps{Console: rec}, rec
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readEnvelope(t *testing.T, path string) *model.Envelope {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var env model.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return &env
}

type fakeTemplates struct {
	log     *callLog
	objs    map[string]json.RawMessage
	failPut map[string]bool
	failDel map[string]bool
}

func newFakeTemplates(log *callLog, ids ...string) *fakeTemplates {
	f := &fakeTemplates{log: log, objs: map[string]json.RawMessage{}, failPut: map[string]bool{}, failDel: map[string]bool{}}
	for _, id := range ids {
		f.objs[id] = json.RawMessage(fmt.Sprintf(`{"_id":"emailTemplate/%s","displayName":"%s","defaultLocale":"en","enabled":true,"subject":{"en":"Hello"},"message":{"en":"Hi {{object.givenName}}"}}`, id, strings.ToUpper(id)))
	}
	return f
}

func (f *fakeTemplates) List(context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for _, obj := range f.objs {
		out = append(out, obj)
	}
	return out, nil
}

func (f *fakeTemplates) Read(_ context.Context, id string) (json.RawMessage, error) {
	obj, ok := f.objs[model.StripEmailTemplateNamespace(id)]
	if !ok {
		return nil, notFound(id)
	}
	return obj, nil
}

func (f *fakeTemplates) Update(_ context.Context, id string, obj json.RawMessage) (json.RawMessage, error) {
	f.log.add("update:%s", id)
	if f.failPut[id] {
		return nil, errBoom
	}
	f.objs[id] = obj
	return obj, nil
}

func (f *fakeTemplates) Delete(_ context.Context, id string) error {
	f.log.add("delete:%s", id)
	if f.failDel[id] {
		return errBoom
	}
	if _, ok := f.objs[id]; !ok {
		return notFound(id)
	}
	delete(f.objs, id)
	return nil
}

type fakeScripts struct {
	log  *callLog
	objs map[string]json.RawMessage
}

func (f *fakeScripts) Read(_ context.Context, id string) (json.RawMessage, error) {
	obj, ok := f.objs[id]
	if !ok {
		return nil, notFound(id)
	}
	return obj, nil
}

func (f *fakeScripts) Update(_ context.Context, id string, obj json.RawMessage) (json.RawMessage, error) {
	f.log.add("script:%s", id)
	f.objs[id] = obj
	return obj, nil
}

type fakeProviders struct {
	log   *callLog
	objs  map[string]json.RawMessage
	types map[string]string
}

func (f *fakeProviders) List(context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for _, obj := range f.objs {
		out = append(out, obj)
	}
	return out, nil
}

func (f *fakeProviders) Read(_ context.Context, id string) (json.RawMessage, error) {
	obj, ok := f.objs[id]
	if !ok {
		return nil, notFound(id)
	}
	return obj, nil
}

func (f *fakeProviders) Update(_ context.Context, typ, id string, obj json.RawMessage) (json.RawMessage, error) {
	f.log.add("idp:%s/%s", typ, id)
	f.objs[id] = obj
	f.types[id] = typ
	return obj, nil
}

func (f *fakeProviders) Delete(_ context.Context, id string) error {
	f.log.add("delete:%s", id)
	if _, ok := f.objs[id]; !ok {
		return notFound(id)
	}
	delete(f.objs, id)
	return nil
}

type fakeSaml struct {
	log      *callLog
	hosted   map[string]json.RawMessage
	remote   map[string]json.RawMessage
	metadata map[string]string
}

func newFakeSaml(log *callLog) *fakeSaml {
	return &fakeSaml{log: log, hosted: map[string]json.RawMessage{}, remote: map[string]json.RawMessage{}, metadata: map[string]string{}}
}

func (f *fakeSaml) loc(location string) map[string]json.RawMessage {
	if location == model.LocationHosted {
		return f.hosted
	}
	return f.remote
}

func (f *fakeSaml) List(context.Context) ([]api.SamlStub, error) {
	var out []api.SamlStub
	for _, location := range []string{model.LocationHosted, model.LocationRemote} {
		for id64 := range f.loc(location) {
			entityID, _ := model.DecodeEntityID(id64)
			out = append(out, api.SamlStub{ID: id64, EntityID: entityID, Location: location, Roles: []string{"identityProvider"}})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSaml) Stub(ctx context.Context, entityID string) (*api.SamlStub, error) {
	stubs, _ := f.List(ctx)
	for _, s := range stubs {
		if s.EntityID == entityID {
			return &s, nil
		}
	}
	return nil, notFound(entityID)
}

func (f *fakeSaml) Read(_ context.Context, location, id64 string) (json.RawMessage, error) {
	obj, ok := f.loc(location)[id64]
	if !ok {
		return nil, notFound(id64)
	}
	return obj, nil
}

func (f *fakeSaml) CreateHosted(_ context.Context, obj json.RawMessage) (json.RawMessage, error) {
	var e struct {
		EntityID string `json:"entityId"`
	}
	if err := json.Unmarshal(obj, &e); err != nil {
		return nil, err
	}
	f.log.add("create:%s", e.EntityID)
	f.hosted[model.EncodeEntityID(e.EntityID)] = obj
	return obj, nil
}

func (f *fakeSaml) Update(_ context.Context, location, id64 string, obj json.RawMessage) (json.RawMessage, error) {
	m := f.loc(location)
	if _, ok := m[id64]; !ok {
		return nil, notFound(id64)
	}
	f.log.add("update:%s/%s", location, id64)
	m[id64] = obj
	return obj, nil
}

func (f *fakeSaml) ImportRemote(_ context.Context, metadata string) error {
	_, rest, ok := strings.Cut(metadata, `entityID="`)
	if !ok {
		return errors.New("no entityID in metadata")
	}
	entityID, _, _ := strings.Cut(rest, `"`)
	f.log.add("importRemote:%s", entityID)
	f.remote[model.EncodeEntityID(entityID)] = json.RawMessage(`{}`)
	f.metadata[entityID] = metadata
	return nil
}

func (f *fakeSaml) Delete(_ context.Context, location, id64 string) error {
	f.log.add("delete:%s/%s", location, id64)
	delete(f.loc(location), id64)
	return nil
}

func (f *fakeSaml) Metadata(_ context.Context, entityID string) (string, error) {
	md, ok := f.metadata[entityID]
	if !ok {
		return "", notFound(entityID)
	}
	return md, nil
}

type fakeVariables struct {
	log  *callLog
	vars map[string]api.Variable
}

func (f *fakeVariables) List(context.Context) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for _, v := range f.vars {
		raw, _ := json.Marshal(v)
		out = append(out, raw)
	}
	return out, nil
}

func (f *fakeVariables) Read(_ context.Context, id string) (json.RawMessage, error) {
	v, ok := f.vars[id]
	if !ok {
		return nil, notFound(id)
	}
	return json.Marshal(v)
}

func (f *fakeVariables) Create(_ context.Context, id, value, description, expressionType string) (json.RawMessage, error) {
	f.log.add("create:%s", id)
	v := api.Variable{ID: id, Description: description, ExpressionType: expressionType, ValueBase64: encodeValue(value)}
	f.vars[id] = v
	return json.Marshal(v)
}

func (f *fakeVariables) SetDescription(_ context.Context, id, description string) error {
	v, ok := f.vars[id]
	if !ok {
		return notFound(id)
	}
	v.Description = description
	f.vars[id] = v
	return nil
}

func (f *fakeVariables) Delete(_ context.Context, id string) error {
	f.log.add("delete:%s", id)
	delete(f.vars, id)
	return nil
}

type fakeSecrets map[string]string

func (f fakeSecrets) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := f[ref]
	if !ok {
		return "", fmt.Errorf("secret %s not found", ref)
	}
	return v, nil
}
