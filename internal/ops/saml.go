package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/files"
	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// Saml2API is the tenant surface used by Saml2Ops.
type Saml2API interface {
	List(ctx context.Context) ([]api.SamlStub, error)
	Stub(ctx context.Context, entityID string) (*api.SamlStub, error)
	Read(ctx context.Context, location, id64 string) (json.RawMessage, error)
	CreateHosted(ctx context.Context, obj json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, location, id64 string, obj json.RawMessage) (json.RawMessage, error)
	ImportRemote(ctx context.Context, metadata string) error
	Delete(ctx context.Context, location, id64 string) error
	Metadata(ctx context.Context, entityID string) (string, error)
}

// Saml2Ops imports, exports, deletes and lists SAML2 entity providers.
// Entities are addressed by entity id on the command line and by the
// unpadded base64url form of it in files and URLs.
type Saml2Ops struct {
	api     Saml2API
	scripts scriptDeps
	deps    Deps
}

// NewSaml2Ops creates Saml2Ops.
func NewSaml2Ops(saml Saml2API, scripts ScriptAPI, deps Deps) *Saml2Ops {
	return &Saml2Ops{api: saml, scripts: scriptDeps{api: scripts}, deps: deps.withDefaults()}
}

const (
	samlNoun  = "SAML2 entity"
	samlNouns = "SAML2 entities"
)

func isSamlScriptKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "script")
}

// Import runs the import mode selected by o.
func (a *Saml2Ops) Import(ctx context.Context, o ImportOptions) error {
	im := &importer{
		Deps:  a.deps,
		rt:    model.TypeSaml2,
		noun:  samlNoun,
		nouns: samlNouns,
		open:  a.open,
	}
	return im.run(ctx, o)
}

// Export runs the export mode selected by o.
func (a *Saml2Ops) Export(ctx context.Context, o ExportOptions) error {
	ex := &exporter{
		Deps:    a.deps,
		rt:      model.TypeSaml2,
		noun:    samlNoun,
		nouns:   samlNouns,
		allName: "allProviders",
		list:    a.entityIDs,
		add:     a.add,
	}
	return ex.run(ctx, o)
}

func (a *Saml2Ops) add(ctx context.Context, b *bundle, entityID string, o ExportOptions) error {
	stub, err := a.api.Stub(ctx, entityID)
	if err != nil {
		return err
	}
	obj, err := a.api.Read(ctx, stub.Location, stub.ID)
	if err != nil {
		return err
	}
	section := b.samlSection()
	loc := section.Location(stub.Location)
	if loc == nil {
		return fmt.Errorf("%s %s has unknown location %q", samlNoun, entityID, stub.Location)
	}
	loc.Set(stub.ID, obj)

	md, err := a.api.Metadata(ctx, entityID)
	if err != nil {
		return err
	}
	if err := section.Metadata.SetValue(stub.ID, strings.Split(md, "\n")); err != nil {
		return err
	}
	if o.NoDeps {
		return nil
	}
	return a.scripts.export(ctx, b, scriptRefs(obj, isSamlScriptKey))
}

// ExportMetadata writes the metadata XML of one entity.
func (a *Saml2Ops) ExportMetadata(ctx context.Context, o ExportOptions) error {
	if o.ID == "" {
		return &ErrUsage{Reason: "metadata export requires --entity-id"}
	}
	file := o.File
	if file == "" {
		file = files.TypedFilename(o.ID, "metadata", "xml")
	}
	path := files.ResolvePath(o.Directory, file)
	ind := a.deps.Console.Spinner(fmt.Sprintf("Exporting metadata for %s...", o.ID))

	md, err := a.api.Metadata(ctx, o.ID)
	if err == nil {
		err = files.WriteFile(path, []byte(md))
	}
	if err != nil {
		ind.Fail(fmt.Sprintf("Error exporting metadata for %s.", o.ID))
		return err
	}
	ind.Succeed(fmt.Sprintf("Exported metadata for %s to %s.", o.ID, path))
	return nil
}

// Delete deletes one entity or all of them.
func (a *Saml2Ops) Delete(ctx context.Context, o DeleteOptions) error {
	d := &deleter{
		Deps:  a.deps,
		noun:  samlNoun,
		nouns: samlNouns,
		list:  a.entityIDs,
		del: func(ctx context.Context, entityID string) error {
			stub, err := a.api.Stub(ctx, entityID)
			if err != nil {
				return err
			}
			return a.api.Delete(ctx, stub.Location, stub.ID)
		},
	}
	return d.run(ctx, o)
}

func (a *Saml2Ops) entityIDs(ctx context.Context) ([]string, error) {
	stubs, err := a.api.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stubs))
	for _, s := range stubs {
		ids = append(ids, s.EntityID)
	}
	sort.Strings(ids)
	return ids, nil
}

// List prints entity ids, or a table with long.
func (a *Saml2Ops) List(ctx context.Context, long bool) error {
	stubs, err := a.api.List(ctx)
	if err != nil {
		return err
	}
	sort.Slice(stubs, func(i, j int) bool { return stubs[i].EntityID < stubs[j].EntityID })
	if !long {
		for _, s := range stubs {
			a.deps.Console.Print("%s", s.EntityID)
		}
		return nil
	}
	rows := make([][]string, 0, len(stubs))
	for _, s := range stubs {
		rows = append(rows, []string{s.EntityID, s.Location, strings.Join(s.Roles, ", ")})
	}
	return a.deps.Console.Table([]string{"Entity Id", "Location", "Roles"}, rows)
}

func (a *Saml2Ops) open(env *model.Envelope, path string) (entrySet, error) {
	section := model.NewSamlSection()
	if err := env.Decode(model.TypeSaml2.Collection(), section); err != nil {
		return nil, &files.ErrInvalidFormat{Path: path, Details: "no SAML2 entities", Err: err}
	}
	// absent locations decode as null
	if section.Hosted == nil {
		section.Hosted = model.NewCollection()
	}
	if section.Remote == nil {
		section.Remote = model.NewCollection()
	}
	if section.Metadata == nil {
		section.Metadata = model.NewCollection()
	}
	scripts, err := loadScripts(env)
	if err != nil {
		return nil, &files.ErrInvalidFormat{Path: path, Details: "invalid scripts", Err: err}
	}
	return &samlSet{ops: a, section: section, scripts: scripts, imported: map[string]bool{}}, nil
}

type samlSet struct {
	ops      *Saml2Ops
	section  *model.SamlSection
	scripts  *model.Collection
	imported map[string]bool
}

// Keys lists hosted entities before remote ones.
func (s *samlSet) Keys() []string {
	return append(s.section.Hosted.Keys(), s.section.Remote.Keys()...)
}

func (s *samlSet) First() (string, bool) {
	id64, _, ok := s.section.First()
	return id64, ok
}

// Lookup accepts an entity id or its base64url form.
func (s *samlSet) Lookup(id string) (string, bool) {
	for _, id64 := range []string{model.EncodeEntityID(id), id} {
		if _, ok := s.section.Find(id64); ok {
			return id64, true
		}
	}
	return "", false
}

func (s *samlSet) Import(ctx context.Context, id64 string, o ImportOptions) error {
	loc, ok := s.section.Find(id64)
	if !ok {
		return fmt.Errorf("%s %s not found", samlNoun, id64)
	}
	obj, _ := s.section.Location(loc).Get(id64)
	entityID, err := model.DecodeEntityID(id64)
	if err != nil {
		return err
	}
	if !o.NoDeps {
		if err := s.ops.scripts.importScripts(ctx, s.scripts, scriptRefs(obj, isSamlScriptKey), s.imported); err != nil {
			return err
		}
	}

	saml := s.ops.api
	_, err = saml.Read(ctx, loc, id64)
	exists := err == nil
	if err != nil && !tenant.IsNotFound(err) {
		return err
	}

	switch {
	case loc == model.LocationHosted && !exists:
		_, err = saml.CreateHosted(ctx, obj)
		return err
	case loc == model.LocationRemote && !exists:
		md, err := s.metadata(id64)
		if err != nil {
			return err
		}
		if err := saml.ImportRemote(ctx, md); err != nil {
			return err
		}
	}
	if _, err := saml.Update(ctx, loc, id64, obj); err != nil {
		return err
	}
	s.ops.deps.Logger.Debug("imported SAML2 entity", "entityId", entityID, "location", loc)
	return nil
}

func (s *samlSet) metadata(id64 string) (string, error) {
	raw, ok := s.section.Metadata.Get(id64)
	if !ok {
		return "", fmt.Errorf("remote %s %s has no metadata in file", samlNoun, id64)
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", fmt.Errorf("invalid metadata for %s: %w", id64, err)
	}
	return strings.Join(lines, "\n"), nil
}
