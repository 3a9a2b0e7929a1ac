package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cbroglie/mustache"

	"github.com/nvinuesa/tenantporter/internal/files"
	"github.com/nvinuesa/tenantporter/internal/model"
)

// EmailTemplateAPI is the tenant surface used by EmailTemplateOps.
type EmailTemplateAPI interface {
	List(ctx context.Context) ([]json.RawMessage, error)
	Read(ctx context.Context, id string) (json.RawMessage, error)
	Update(ctx context.Context, id string, obj json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, id string) error
}

// EmailTemplateOps imports, exports, deletes, lists and previews email templates.
type EmailTemplateOps struct {
	api  EmailTemplateAPI
	deps Deps
}

// NewEmailTemplateOps creates EmailTemplateOps.
func NewEmailTemplateOps(api EmailTemplateAPI, deps Deps) *EmailTemplateOps {
	return &EmailTemplateOps{api: api, deps: deps.withDefaults()}
}

const (
	emailNoun  = "email template"
	emailNouns = "email templates"
)

// Import runs the import mode selected by o.
func (e *EmailTemplateOps) Import(ctx context.Context, o ImportOptions) error {
	im := &importer{
		Deps:  e.deps,
		rt:    model.TypeEmailTemplate,
		noun:  emailNoun,
		nouns: emailNouns,
		open:  e.open,
		raw:   e.put,
		clean: e.deleter().purge,
	}
	return im.run(ctx, o)
}

// Export runs the export mode selected by o.
func (e *EmailTemplateOps) Export(ctx context.Context, o ExportOptions) error {
	ex := &exporter{
		Deps:    e.deps,
		rt:      model.TypeEmailTemplate,
		noun:    emailNoun,
		nouns:   emailNouns,
		allName: "allEmailTemplates",
		list:    e.ids,
		add: func(ctx context.Context, b *bundle, id string, _ ExportOptions) error {
			obj, err := e.api.Read(ctx, id)
			if err != nil {
				return err
			}
			b.col(model.TypeEmailTemplate.Collection()).Set(model.StripEmailTemplateNamespace(id), obj)
			return nil
		},
		name: model.StripEmailTemplateNamespace,
	}
	return ex.run(ctx, o)
}

// Delete deletes one template or all of them.
func (e *EmailTemplateOps) Delete(ctx context.Context, o DeleteOptions) error {
	return e.deleter().run(ctx, o)
}

func (e *EmailTemplateOps) deleter() *deleter {
	return &deleter{
		Deps:  e.deps,
		noun:  emailNoun,
		nouns: emailNouns,
		list:  e.ids,
		del:   e.api.Delete,
	}
}

// emailTemplate holds the fields shown by list and used by preview.
type emailTemplate struct {
	ID            string            `json:"_id"`
	DisplayName   string            `json:"displayName"`
	Enabled       bool              `json:"enabled"`
	DefaultLocale string            `json:"defaultLocale"`
	Subject       map[string]string `json:"subject"`
	Message       map[string]string `json:"message"`
	MimeType      string            `json:"mimeType"`
	From          string            `json:"from"`
}

func (e *EmailTemplateOps) ids(ctx context.Context) ([]string, error) {
	objs, err := e.api.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(objs))
	for _, obj := range objs {
		id, err := model.ObjectID(obj)
		if err != nil {
			return nil, err
		}
		ids = append(ids, model.StripEmailTemplateNamespace(id))
	}
	sort.Strings(ids)
	return ids, nil
}

// List prints template ids, or a table with long.
func (e *EmailTemplateOps) List(ctx context.Context, long bool) error {
	objs, err := e.api.List(ctx)
	if err != nil {
		return err
	}
	tmpls := make([]emailTemplate, 0, len(objs))
	for _, obj := range objs {
		var t emailTemplate
		if err := json.Unmarshal(obj, &t); err != nil {
			return err
		}
		t.ID = model.StripEmailTemplateNamespace(t.ID)
		tmpls = append(tmpls, t)
	}
	sort.Slice(tmpls, func(i, j int) bool { return tmpls[i].ID < tmpls[j].ID })

	if !long {
		for _, t := range tmpls {
			e.deps.Console.Print("%s", t.ID)
		}
		return nil
	}
	rows := make([][]string, 0, len(tmpls))
	for _, t := range tmpls {
		rows = append(rows, []string{t.ID, t.DisplayName, t.DefaultLocale, strings.Join(locales(t.Subject), ","), fmt.Sprint(t.Enabled)})
	}
	return e.deps.Console.Table([]string{"Id", "Name", "Default Locale", "Locales", "Enabled"}, rows)
}

func locales(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (e *EmailTemplateOps) open(env *model.Envelope, path string) (entrySet, error) {
	col, err := env.Collection(model.TypeEmailTemplate.Collection())
	if err != nil {
		return nil, &files.ErrInvalidFormat{Path: path, Details: "no email templates", Err: err}
	}
	return &templateSet{ops: e, col: col}, nil
}

// put normalizes the id and writes the template.
func (e *EmailTemplateOps) put(ctx context.Context, id string, obj json.RawMessage) error {
	id = model.StripEmailTemplateNamespace(id)
	if err := model.ValidateObjectID(id); err != nil {
		return err
	}
	obj, err := model.WithObjectID(obj, model.EmailTemplateConfigID(id))
	if err != nil {
		return err
	}
	if _, err := e.api.Update(ctx, id, obj); err != nil {
		return err
	}
	e.deps.Logger.Debug("imported email template", "id", id)
	return nil
}

type templateSet struct {
	ops *EmailTemplateOps
	col *model.Collection
}

func (s *templateSet) Keys() []string        { return s.col.Keys() }
func (s *templateSet) First() (string, bool) { return s.col.First() }

func (s *templateSet) Lookup(id string) (string, bool) {
	for _, key := range []string{id, model.StripEmailTemplateNamespace(id), model.EmailTemplateConfigID(id)} {
		if _, ok := s.col.Get(key); ok {
			return key, true
		}
	}
	return "", false
}

func (s *templateSet) Import(ctx context.Context, key string, _ ImportOptions) error {
	obj, _ := s.col.Get(key)
	return s.ops.put(ctx, key, obj)
}

// PreviewOptions select the template and sample data for Preview.
type PreviewOptions struct {
	ID        string
	File      string
	Directory string
	// DataFile is a JSON file with the render context.
	DataFile string
	Locale   string
}

// DefaultPreviewData is the render context used without a data file.
var DefaultPreviewData = map[string]any{
	"object": map[string]any{
		"givenName": "Jane",
		"sn":        "Doe",
		"mail":      "jane@example.com",
		"userName":  "jdoe",
	},
}

// Preview renders the subject and message of a template for one locale.
func (e *EmailTemplateOps) Preview(ctx context.Context, o PreviewOptions) error {
	if o.ID == "" {
		return &ErrUsage{Reason: "preview requires --template-id"}
	}
	raw, err := e.previewSource(ctx, o)
	if err != nil {
		return err
	}
	var t emailTemplate
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("invalid email template %s: %w", o.ID, err)
	}

	data := any(DefaultPreviewData)
	if o.DataFile != "" {
		b, err := files.ReadFile(o.DataFile)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &data); err != nil {
			return &files.ErrInvalidFormat{Path: o.DataFile, Details: "not JSON", Err: err}
		}
	}

	locale := o.Locale
	if locale == "" {
		locale = t.DefaultLocale
	}
	if locale == "" {
		locale = "en"
	}
	message, ok := t.Message[locale]
	if !ok {
		return fmt.Errorf("email template %s has no %q message (locales: %s)", o.ID, locale, strings.Join(locales(t.Message), ", "))
	}

	subject, err := mustache.Render(t.Subject[locale], data)
	if err != nil {
		return fmt.Errorf("failed to render subject: %w", err)
	}
	body, err := mustache.Render(message, data)
	if err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}
	e.deps.Console.Print("Subject: %s", subject)
	e.deps.Console.Print("")
	e.deps.Console.Print("%s", body)
	return nil
}

func (e *EmailTemplateOps) previewSource(ctx context.Context, o PreviewOptions) (json.RawMessage, error) {
	if o.File == "" {
		return e.api.Read(ctx, o.ID)
	}
	path := files.ResolvePath(o.Directory, o.File)
	env, err := files.ReadEnvelope(path)
	if err != nil {
		return nil, err
	}
	set, err := e.open(env, path)
	if err != nil {
		return nil, err
	}
	key, ok := set.Lookup(o.ID)
	if !ok {
		return nil, &ErrNotInFile{Kind: emailNoun, ID: o.ID, Path: path}
	}
	obj, _ := set.(*templateSet).col.Get(key)
	return obj, nil
}
