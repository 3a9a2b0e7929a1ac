package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/files"
	"github.com/nvinuesa/tenantporter/internal/model"
)

// SocialProviderAPI is the tenant surface used by IdpOps.
type SocialProviderAPI interface {
	List(ctx context.Context) ([]json.RawMessage, error)
	Read(ctx context.Context, id string) (json.RawMessage, error)
	Update(ctx context.Context, typ, id string, obj json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, id string) error
}

// IdpOps imports, exports, deletes and lists social identity providers
// together with their transform scripts.
type IdpOps struct {
	api     SocialProviderAPI
	scripts scriptDeps
	deps    Deps
}

// NewIdpOps creates IdpOps.
func NewIdpOps(providers SocialProviderAPI, scripts ScriptAPI, deps Deps) *IdpOps {
	return &IdpOps{api: providers, scripts: scriptDeps{api: scripts}, deps: deps.withDefaults()}
}

const (
	idpNoun  = "social identity provider"
	idpNouns = "social identity providers"
)

func isTransformKey(key string) bool { return key == "transform" }

// Import runs the import mode selected by o.
func (p *IdpOps) Import(ctx context.Context, o ImportOptions) error {
	im := &importer{
		Deps:  p.deps,
		rt:    model.TypeSocialIdp,
		noun:  idpNoun,
		nouns: idpNouns,
		open:  p.open,
	}
	return im.run(ctx, o)
}

// Export runs the export mode selected by o.
func (p *IdpOps) Export(ctx context.Context, o ExportOptions) error {
	ex := &exporter{
		Deps:    p.deps,
		rt:      model.TypeSocialIdp,
		noun:    idpNoun,
		nouns:   idpNouns,
		allName: "allProviders",
		list:    p.ids,
		add: func(ctx context.Context, b *bundle, id string, o ExportOptions) error {
			obj, err := p.api.Read(ctx, id)
			if err != nil {
				return err
			}
			b.col(model.TypeSocialIdp.Collection()).Set(id, obj)
			if o.NoDeps {
				return nil
			}
			return p.scripts.export(ctx, b, scriptRefs(obj, isTransformKey))
		},
	}
	return ex.run(ctx, o)
}

// Delete deletes one provider or all of them.
func (p *IdpOps) Delete(ctx context.Context, o DeleteOptions) error {
	d := &deleter{
		Deps:  p.deps,
		noun:  idpNoun,
		nouns: idpNouns,
		list:  p.ids,
		del:   p.api.Delete,
	}
	return d.run(ctx, o)
}

func (p *IdpOps) ids(ctx context.Context) ([]string, error) {
	objs, err := p.api.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(objs))
	for _, obj := range objs {
		id, err := model.ObjectID(obj)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// List prints provider ids, or a table with long.
func (p *IdpOps) List(ctx context.Context, long bool) error {
	objs, err := p.api.List(ctx)
	if err != nil {
		return err
	}
	type stub struct {
		ID      string `json:"_id"`
		Enabled bool   `json:"enabled"`
		typ     string
	}
	stubs := make([]stub, 0, len(objs))
	for _, obj := range objs {
		var s stub
		if err := json.Unmarshal(obj, &s); err != nil {
			return err
		}
		s.typ = api.ProviderType(obj)
		stubs = append(stubs, s)
	}
	sort.Slice(stubs, func(i, j int) bool { return stubs[i].ID < stubs[j].ID })

	if !long {
		for _, s := range stubs {
			p.deps.Console.Print("%s", s.ID)
		}
		return nil
	}
	rows := make([][]string, 0, len(stubs))
	for _, s := range stubs {
		rows = append(rows, []string{s.ID, s.typ, fmt.Sprint(s.Enabled)})
	}
	return p.deps.Console.Table([]string{"Id", "Type", "Enabled"}, rows)
}

func (p *IdpOps) open(env *model.Envelope, path string) (entrySet, error) {
	col, err := env.Collection(model.TypeSocialIdp.Collection())
	if err != nil {
		return nil, &files.ErrInvalidFormat{Path: path, Details: "no social identity providers", Err: err}
	}
	scripts, err := loadScripts(env)
	if err != nil {
		return nil, &files.ErrInvalidFormat{Path: path, Details: "invalid scripts", Err: err}
	}
	return &idpSet{ops: p, col: col, scripts: scripts, imported: map[string]bool{}}, nil
}

type idpSet struct {
	ops      *IdpOps
	col      *model.Collection
	scripts  *model.Collection
	imported map[string]bool
}

func (s *idpSet) Keys() []string        { return s.col.Keys() }
func (s *idpSet) First() (string, bool) { return s.col.First() }

func (s *idpSet) Lookup(id string) (string, bool) {
	_, ok := s.col.Get(id)
	return id, ok
}

func (s *idpSet) Import(ctx context.Context, key string, o ImportOptions) error {
	obj, _ := s.col.Get(key)
	if !o.NoDeps {
		if err := s.ops.scripts.importScripts(ctx, s.scripts, scriptRefs(obj, isTransformKey), s.imported); err != nil {
			return err
		}
	}
	typ := api.ProviderType(obj)
	if typ == "" {
		return fmt.Errorf("%s %s has no _type", idpNoun, key)
	}
	if _, err := s.ops.api.Update(ctx, typ, key, obj); err != nil {
		return err
	}
	s.ops.deps.Logger.Debug("imported social identity provider", "id", key, "type", typ)
	return nil
}
