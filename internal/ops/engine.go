package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nvinuesa/tenantporter/internal/console"
	"github.com/nvinuesa/tenantporter/internal/files"
	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/schema"
)

// entrySet is an export file opened for one resource type.
type entrySet interface {
	// Keys returns the importable entries in file order.
	Keys() []string
	// First returns the entry imported when only a file is given.
	First() (string, bool)
	// Lookup maps a user-supplied id to an entry key.
	Lookup(id string) (string, bool)
	// Import creates or updates one entry on the tenant.
	Import(ctx context.Context, key string, o ImportOptions) error
}

// importer runs the four import modes for one resource type.
type importer struct {
	Deps
	rt    model.ResourceType
	noun  string // e.g. "email template"
	nouns string
	open  func(env *model.Envelope, path string) (entrySet, error)

	// raw imports a single-object raw file; nil when unsupported.
	raw func(ctx context.Context, id string, obj json.RawMessage) error

	// clean removes all existing objects; nil when unsupported.
	clean func(ctx context.Context) error
}

func (im *importer) run(ctx context.Context, o ImportOptions) error {
	if o.Raw && im.raw == nil {
		return &ErrUsage{Reason: fmt.Sprintf("--raw is not supported for %s", im.nouns)}
	}
	if o.Clean && im.clean == nil {
		return &ErrUsage{Reason: fmt.Sprintf("--clean is not supported for %s", im.nouns)}
	}
	if err := o.Validate(); err != nil {
		return err
	}
	mode := o.Mode()
	im.Logger.Debug("import", "type", im.rt.String(), "mode", mode.String(), "file", o.File, "directory", o.Directory)

	switch mode {
	case ModeByID:
		return im.byID(ctx, o)
	case ModeAll:
		return im.allInFile(ctx, o)
	case ModeAllSeparate:
		return im.allSeparate(ctx, o)
	case ModeFirst:
		return im.first(ctx, o)
	default:
		return &ErrUsage{Reason: fmt.Sprintf("import %s requires --file with --id or --all, --all-separate, or --file alone", im.nouns)}
	}
}

// load reads, parses and validates one export file.
func (im *importer) load(path string) (entrySet, error) {
	data, err := files.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &files.ErrInvalidFormat{Path: path, Details: "not a valid export file", Err: err}
	}
	if schema.Supports(im.rt) {
		if err := schema.Validate(im.rt, path, data); err != nil {
			return nil, err
		}
	}
	return im.open(&env, path)
}

func (im *importer) byID(ctx context.Context, o ImportOptions) error {
	path := files.ResolvePath(o.Directory, o.File)
	ind := im.Console.Spinner(fmt.Sprintf("Importing %s %s...", im.noun, o.ID))

	err := func() error {
		if o.Raw {
			_, err := im.importRawFile(ctx, path, o.ID)
			return err
		}
		set, err := im.load(path)
		if err != nil {
			return err
		}
		key, ok := set.Lookup(o.ID)
		if !ok {
			return &ErrNotInFile{Kind: im.noun, ID: o.ID, Path: path}
		}
		return set.Import(ctx, key, o)
	}()
	if err != nil {
		ind.Fail(fmt.Sprintf("Error importing %s %s.", im.noun, o.ID))
		return err
	}
	ind.Succeed(fmt.Sprintf("Imported %s %s.", im.noun, o.ID))
	return nil
}

// importRawFile imports a raw file after checking its name carries want, or
// any id when want is empty. It returns the id taken from the file name.
func (im *importer) importRawFile(ctx context.Context, path, want string) (string, error) {
	prefix := im.rt.RawPrefix()
	id, err := files.RawID(path, prefix)
	if err != nil {
		return "", err
	}
	if want != "" && id != model.StripEmailTemplateNamespace(want) {
		return id, &files.ErrInvalidFilename{
			Filename: filepath.Base(path),
			Prefix:   prefix,
			Reason:   fmt.Sprintf("file holds %q, not %q", id, want),
		}
	}
	obj, err := files.ReadObject(path)
	if err != nil {
		return id, err
	}
	return id, im.raw(ctx, id, obj)
}

func (im *importer) allInFile(ctx context.Context, o ImportOptions) error {
	path := files.ResolvePath(o.Directory, o.File)
	ind := im.Console.Spinner(fmt.Sprintf("Importing %s from %s...", im.nouns, filepath.Base(path)))

	set, err := im.load(path)
	if err != nil {
		ind.Fail(fmt.Sprintf("Error reading %s.", path))
		return err
	}
	results := Results{Op: "import " + im.nouns}
	for _, key := range set.Keys() {
		ind.Update(fmt.Sprintf("Importing %s %s...", im.noun, key))
		err := set.Import(ctx, key, o)
		results.Add(key, err)
		if err != nil {
			im.Console.Error("Error importing %s %s: %v", im.noun, key, err)
		}
	}
	return im.finish(ind, &results, "imported")
}

func (im *importer) allSeparate(ctx context.Context, o ImportOptions) error {
	dir := o.Directory
	if dir == "" {
		dir = "."
	}
	match := files.HasSuffix(im.rt.FileSuffix())
	if o.Raw {
		match = files.RawMatcher(im.rt.RawPrefix())
	}
	paths, err := files.List(dir, match)
	if err != nil {
		return failed(im.Console, fmt.Sprintf("Error listing %s.", dir), err)
	}

	if o.Clean {
		if err := im.clean(ctx); err != nil {
			return failed(im.Console, fmt.Sprintf("Error removing existing %s.", im.nouns), err)
		}
	}

	ind := im.Console.Progress(len(paths), fmt.Sprintf("Importing %s", im.nouns))
	results := Results{Op: "import " + im.nouns}
	for _, path := range paths {
		name := filepath.Base(path)
		if o.Raw {
			id, err := im.importRawFile(ctx, path, "")
			if id == "" {
				id = name
			}
			results.Add(id, err)
			switch {
			case err == nil:
			case files.IsInvalidFilename(err):
				im.Console.Error("Skipping %s: %v", name, err)
			case files.IsFormatError(err):
				im.Console.Error("Error reading %s: %v", name, err)
			default:
				im.Console.Error("Error importing %s: %v", name, err)
			}
			ind.Increment(name)
			continue
		}

		set, err := im.load(path)
		if err != nil {
			results.Add(name, err)
			im.Console.Error("Error reading %s: %v", name, err)
			ind.Increment(name)
			continue
		}
		for _, key := range set.Keys() {
			err := set.Import(ctx, key, o)
			results.Add(key, err)
			if err != nil {
				im.Console.Error("Error importing %s %s from %s: %v", im.noun, key, name, err)
			}
		}
		ind.Increment(name)
	}
	return im.finish(ind, &results, "imported")
}

func (im *importer) first(ctx context.Context, o ImportOptions) error {
	path := files.ResolvePath(o.Directory, o.File)
	ind := im.Console.Spinner(fmt.Sprintf("Importing first %s from %s...", im.noun, filepath.Base(path)))

	key, err := func() (string, error) {
		if o.Raw {
			return im.importRawFile(ctx, path, "")
		}
		set, err := im.load(path)
		if err != nil {
			return "", err
		}
		key, ok := set.First()
		if !ok {
			return "", &files.ErrInvalidFormat{Path: path, Details: fmt.Sprintf("no %s in file", im.nouns)}
		}
		return key, set.Import(ctx, key, o)
	}()
	if err != nil {
		ind.Fail(fmt.Sprintf("Error importing %s from %s.", im.noun, path))
		return err
	}
	ind.Succeed(fmt.Sprintf("Imported %s %s.", im.noun, key))
	return nil
}

func (im *importer) finish(ind console.Indicator, results *Results, done string) error {
	return finish(ind, results, im.nouns, done)
}

func finish(ind console.Indicator, results *Results, nouns, done string) error {
	if err := results.Err(); err != nil {
		ind.Fail(fmt.Sprintf("%d of %d %s could not be %s.", len(results.Failures()), results.Len(), nouns, done))
		return err
	}
	ind.Succeed(fmt.Sprintf("Successfully %s %d %s.", done, results.Len(), nouns))
	return nil
}

// failed reports an error that stops a mode before its loop starts.
func failed(con console.Console, text string, err error) error {
	con.Spinner(text).Fail(text)
	return err
}

// exporter runs the three export modes for one resource type.
type exporter struct {
	Deps
	rt      model.ResourceType
	noun    string
	nouns   string
	allName string // stem of the --all default file, e.g. "allEmailTemplates"

	// list returns the ids exported by --all and --all-separate.
	list func(ctx context.Context) ([]string, error)

	// add reads one object and its dependencies into b.
	add func(ctx context.Context, b *bundle, id string, o ExportOptions) error

	// name maps an id to a file name stem; nil keeps the id.
	name func(id string) string
}

func (ex *exporter) run(ctx context.Context, o ExportOptions) error {
	mode := o.Mode()
	ex.Logger.Debug("export", "type", ex.rt.String(), "mode", mode.String(), "file", o.File, "directory", o.Directory)
	switch mode {
	case ModeByID:
		return ex.byID(ctx, o)
	case ModeAll:
		return ex.all(ctx, o)
	case ModeAllSeparate:
		return ex.allSeparate(ctx, o)
	default:
		return &ErrUsage{Reason: fmt.Sprintf("export %s requires --id, --all or --all-separate", ex.nouns)}
	}
}

func (ex *exporter) typedPath(o ExportOptions, id string) string {
	stem := id
	if ex.name != nil {
		stem = ex.name(id)
	}
	file := o.File
	if file == "" || o.Mode() == ModeAllSeparate {
		file = files.TypedFilename(stem, ex.rt.FileKind(), "json")
	}
	return files.ResolvePath(o.Directory, file)
}

func (ex *exporter) write(ctx context.Context, b *bundle, path string, o ExportOptions) error {
	env, err := b.envelope(ex.meta(ctx, o.NoMetadata))
	if err != nil {
		return err
	}
	return files.WriteJSON(path, env)
}

func (ex *exporter) byID(ctx context.Context, o ExportOptions) error {
	path := ex.typedPath(o, o.ID)
	ind := ex.Console.Spinner(fmt.Sprintf("Exporting %s %s...", ex.noun, o.ID))

	b := newBundle()
	err := ex.add(ctx, b, o.ID, o)
	if err == nil {
		err = ex.write(ctx, b, path, o)
	}
	if err != nil {
		ind.Fail(fmt.Sprintf("Error exporting %s %s.", ex.noun, o.ID))
		return err
	}
	ind.Succeed(fmt.Sprintf("Exported %s %s to %s.", ex.noun, o.ID, path))
	return nil
}

func (ex *exporter) all(ctx context.Context, o ExportOptions) error {
	file := o.File
	if file == "" {
		file = files.TypedFilename(ex.allName, ex.rt.FileKind(), "json")
	}
	path := files.ResolvePath(o.Directory, file)
	ind := ex.Console.Spinner(fmt.Sprintf("Exporting all %s...", ex.nouns))

	ids, err := ex.list(ctx)
	if err != nil {
		ind.Fail(fmt.Sprintf("Error listing %s.", ex.nouns))
		return err
	}
	b := newBundle()
	results := Results{Op: "export " + ex.nouns}
	for _, id := range ids {
		ind.Update(fmt.Sprintf("Exporting %s %s...", ex.noun, id))
		err := ex.add(ctx, b, id, o)
		results.Add(id, err)
		if err != nil {
			ex.Console.Error("Error exporting %s %s: %v", ex.noun, id, err)
		}
	}
	if err := ex.write(ctx, b, path, o); err != nil {
		ind.Fail(fmt.Sprintf("Error writing %s.", path))
		return err
	}
	return finish(ind, &results, ex.nouns, "exported")
}

func (ex *exporter) allSeparate(ctx context.Context, o ExportOptions) error {
	ids, err := ex.list(ctx)
	if err != nil {
		return failed(ex.Console, fmt.Sprintf("Error listing %s.", ex.nouns), err)
	}
	ind := ex.Console.Progress(len(ids), fmt.Sprintf("Exporting %s", ex.nouns))
	results := Results{Op: "export " + ex.nouns}
	for _, id := range ids {
		b := newBundle()
		err := ex.add(ctx, b, id, o)
		if err == nil {
			err = ex.write(ctx, b, ex.typedPath(o, id), o)
		}
		results.Add(id, err)
		if err != nil {
			ex.Console.Error("Error exporting %s %s: %v", ex.noun, id, err)
		}
		ind.Increment(id)
	}
	return finish(ind, &results, ex.nouns, "exported")
}

// deleter runs delete by id or all.
type deleter struct {
	Deps
	noun  string
	nouns string
	list  func(ctx context.Context) ([]string, error)
	del   func(ctx context.Context, id string) error
}

func (d *deleter) run(ctx context.Context, o DeleteOptions) error {
	switch o.Mode() {
	case ModeByID:
		ind := d.Console.Spinner(fmt.Sprintf("Deleting %s %s...", d.noun, o.ID))
		if err := d.del(ctx, o.ID); err != nil {
			ind.Fail(fmt.Sprintf("Error deleting %s %s.", d.noun, o.ID))
			return err
		}
		ind.Succeed(fmt.Sprintf("Deleted %s %s.", d.noun, o.ID))
		return nil
	case ModeAll:
		ids, err := d.list(ctx)
		if err != nil {
			return failed(d.Console, fmt.Sprintf("Error listing %s.", d.nouns), err)
		}
		ind := d.Console.Progress(len(ids), fmt.Sprintf("Deleting %s", d.nouns))
		results := d.deleteAll(ctx, ids, ind)
		return finish(ind, results, d.nouns, "deleted")
	default:
		return &ErrUsage{Reason: fmt.Sprintf("delete %s requires --id or --all", d.nouns)}
	}
}

// deleteAll deletes ids, advancing ind when it is non-nil.
func (d *deleter) deleteAll(ctx context.Context, ids []string, ind console.Indicator) *Results {
	results := &Results{Op: "delete " + d.nouns}
	for _, id := range ids {
		err := d.del(ctx, id)
		results.Add(id, err)
		if err != nil {
			d.Console.Error("Error deleting %s %s: %v", d.noun, id, err)
		}
		if ind != nil {
			ind.Increment(id)
		}
	}
	return results
}

// purge deletes every object without an indicator of its own.
func (d *deleter) purge(ctx context.Context) error {
	ids, err := d.list(ctx)
	if err != nil {
		return err
	}
	results := d.deleteAll(ctx, ids, nil)
	if err := results.Err(); err != nil {
		return err
	}
	d.Logger.Info("removed existing objects", "type", d.nouns, "count", results.Len())
	return nil
}
