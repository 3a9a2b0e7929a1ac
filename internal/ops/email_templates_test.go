package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvinuesa/tenantporter/internal/files"
	"github.com/nvinuesa/tenantporter/internal/model"
)

const twoTemplates = `{
  "meta": {"origin": "https://source.example.com"},
  "emailTemplate": {
    "welcome": {"_id": "emailTemplate/welcome", "subject": {"en": "Welcome"}},
    "reset": {"_id": "emailTemplate/reset", "subject": {"en": "Reset"}}
  }
}`

func TestEmailTemplateImportModes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "allEmailTemplates.template.email.json", twoTemplates)

	t.Run("By id", func(t *testing.T) {
		log := &callLog{}
		api := newFakeTemplates(log)
		deps, rec := newDeps()

		err := NewEmailTemplateOps(api, deps).Import(ctx, ImportOptions{ID: "reset", File: path})
		require.NoError(t, err)
		assert.Equal(t, []string{"update:reset"}, log.calls)
		assert.JSONEq(t, `{"_id":"emailTemplate/reset","subject":{"en":"Reset"}}`, string(api.objs["reset"]))

		require.Len(t, rec.Indicators, 1)
		assert.False(t, rec.Indicators[0].Determinate)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
		assert.True(t, rec.Indicators[0].Succeeded)
	})

	t.Run("Payload bytes pass through", func(t *testing.T) {
		exact := writeFile(t, dir, "exact.template.email.json",
			`{"emailTemplate":{"welcome":{"_id":"emailTemplate/welcome","counter":9007199254740993,"html":"<b>x</b>"}}}`)
		log := &callLog{}
		api := newFakeTemplates(log)
		deps, _ := newDeps()

		err := NewEmailTemplateOps(api, deps).Import(ctx, ImportOptions{ID: "welcome", File: exact})
		require.NoError(t, err)
		assert.Equal(t, `{"_id":"emailTemplate/welcome","counter":9007199254740993,"html":"<b>x</b>"}`, string(api.objs["welcome"]))
	})

	t.Run("Namespaced id", func(t *testing.T) {
		log := &callLog{}
		deps, _ := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{ID: "emailTemplate/welcome", File: path})
		require.NoError(t, err)
		assert.Equal(t, []string{"update:welcome"}, log.calls)
	})

	t.Run("Id all and file selects by id", func(t *testing.T) {
		log := &callLog{}
		deps, _ := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{ID: "reset", All: true, File: path})
		require.NoError(t, err)
		assert.Equal(t, []string{"update:reset"}, log.calls)
	})

	t.Run("All in file keeps file order", func(t *testing.T) {
		log := &callLog{}
		deps, rec := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{All: true, File: path})
		require.NoError(t, err)
		assert.Equal(t, []string{"update:welcome", "update:reset"}, log.calls)
		require.Len(t, rec.Indicators, 1)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
		assert.Contains(t, rec.Indicators[0].Final, "2 email templates")
	})

	t.Run("First from file", func(t *testing.T) {
		first := writeFile(t, dir, "order.template.email.json",
			`{"emailTemplate":{"zeta":{"_id":"emailTemplate/zeta"},"alpha":{"_id":"emailTemplate/alpha"}}}`)
		log := &callLog{}
		deps, _ := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{File: first})
		require.NoError(t, err)
		assert.Equal(t, []string{"update:zeta"}, log.calls)
	})

	t.Run("Id not in file", func(t *testing.T) {
		log := &callLog{}
		deps, rec := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{ID: "missing", File: path})
		var notIn *ErrNotInFile
		require.ErrorAs(t, err, &notIn)
		assert.Equal(t, "missing", notIn.ID)
		assert.Empty(t, log.calls)
		require.Len(t, rec.Indicators, 1)
		assert.False(t, rec.Indicators[0].Succeeded)
	})

	t.Run("No mode", func(t *testing.T) {
		log := &callLog{}
		deps, rec := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{All: true})
		assert.True(t, IsUsage(err), "got %v", err)
		assert.Empty(t, log.calls)
		assert.Empty(t, rec.Indicators)
	})

	t.Run("Item failure fails the outcome", func(t *testing.T) {
		log := &callLog{}
		api := newFakeTemplates(log)
		api.failPut["welcome"] = true
		deps, rec := newDeps()

		err := NewEmailTemplateOps(api, deps).Import(ctx, ImportOptions{All: true, File: path})
		require.True(t, IsPartialFailure(err), "got %v", err)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, []string{"update:welcome", "update:reset"}, log.calls)
		assert.Contains(t, api.objs, "reset")
		assert.True(t, rec.Contains("error", "welcome"))
		assert.Equal(t, 1, rec.Indicators[0].Closes)
		assert.False(t, rec.Indicators[0].Succeeded)
	})

	t.Run("Invalid envelope", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.template.email.json", `{"idp":{}}`)
		deps, _ := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}), deps).Import(ctx, ImportOptions{File: bad})
		assert.Error(t, err)
	})
}

func TestEmailTemplateImportAllSeparate(t *testing.T) {
	ctx := context.Background()

	t.Run("One corrupt file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.template.email.json", `{"emailTemplate":{"a":{"_id":"emailTemplate/a"}}}`)
		writeFile(t, dir, "b.template.email.json", `{"emailTemplate":{`)
		writeFile(t, dir, "c.template.email.json", `{"emailTemplate":{"c":{"_id":"emailTemplate/c"}}}`)
		writeFile(t, dir, "notes.txt", `ignored`)

		log := &callLog{}
		deps, rec := newDeps()
		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{AllSeparate: true, Directory: dir})

		var partial *ErrPartialFailure
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, 3, partial.Total)
		require.Len(t, partial.Failures, 1)
		assert.Equal(t, "b.template.email.json", partial.Failures[0].ID)
		assert.True(t, files.IsFormatError(partial.Failures[0].Err))
		assert.Equal(t, []string{"update:a", "update:c"}, log.calls)

		require.Len(t, rec.Indicators, 1)
		ind := rec.Indicators[0]
		assert.True(t, ind.Determinate)
		assert.Equal(t, 3, ind.Total)
		assert.Equal(t, 3, ind.Steps)
		assert.Equal(t, 1, ind.Closes)
		assert.False(t, ind.Succeeded)
	})

	t.Run("Raw files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "emailTemplate-welcome.json", `{"_id":"emailTemplate/welcome","enabled":true}`)
		writeFile(t, dir, "emailTemplate-reset.json", `{"enabled":false}`)
		writeFile(t, dir, "welcome.template.email.json", `{"emailTemplate":{}}`)

		log := &callLog{}
		api := newFakeTemplates(log)
		deps, _ := newDeps()
		err := NewEmailTemplateOps(api, deps).Import(ctx, ImportOptions{AllSeparate: true, Raw: true, Directory: dir})
		require.NoError(t, err)
		assert.Equal(t, []string{"update:reset", "update:welcome"}, log.calls)
		assert.JSONEq(t, `{"_id":"emailTemplate/reset","enabled":false}`, string(api.objs["reset"]))
	})

	t.Run("Bad raw file name skips only that file", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "emailTemplate-a.json", `{"enabled":true}`)
		writeFile(t, dir, "emailTemplate-.json", `{"enabled":true}`)
		writeFile(t, dir, "emailTemplate-c.json", `{"enabled":`)
		writeFile(t, dir, "emailTemplate-d.json", `{"enabled":false}`)

		log := &callLog{}
		deps, rec := newDeps()
		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{AllSeparate: true, Raw: true, Directory: dir})

		var partial *ErrPartialFailure
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, 4, partial.Total)
		require.Len(t, partial.Failures, 2)
		assert.True(t, files.IsInvalidFilename(partial.Failures[0].Err), "got %v", partial.Failures[0].Err)
		assert.True(t, files.IsFormatError(partial.Failures[1].Err), "got %v", partial.Failures[1].Err)
		assert.Equal(t, []string{"update:a", "update:d"}, log.calls)
		assert.True(t, rec.Contains("error", "Skipping emailTemplate-.json"))
		assert.True(t, rec.Contains("error", "Error reading emailTemplate-c.json"))

		require.Len(t, rec.Indicators, 1)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
		assert.False(t, rec.Indicators[0].Succeeded)
	})

	t.Run("Clean runs once before the loop", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "emailTemplate-fresh.json", `{}`)
		writeFile(t, dir, "emailTemplate-other.json", `{}`)

		log := &callLog{}
		deps, rec := newDeps()
		err := NewEmailTemplateOps(newFakeTemplates(log, "old1", "old2"), deps).
			Import(ctx, ImportOptions{AllSeparate: true, Raw: true, Clean: true, Directory: dir})
		require.NoError(t, err)
		assert.Equal(t, []string{"delete:old1", "delete:old2", "update:fresh", "update:other"}, log.calls)
		require.Len(t, rec.Indicators, 1)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
	})

	t.Run("Failed clean imports nothing", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "emailTemplate-fresh.json", `{}`)

		log := &callLog{}
		api := newFakeTemplates(log, "old")
		api.failDel["old"] = true
		deps, rec := newDeps()
		err := NewEmailTemplateOps(api, deps).
			Import(ctx, ImportOptions{AllSeparate: true, Raw: true, Clean: true, Directory: dir})
		require.Error(t, err)
		assert.Empty(t, log.with("update:"))
		require.Len(t, rec.Indicators, 1)
		assert.False(t, rec.Indicators[0].Succeeded)
	})

	t.Run("Clean requires all separate", func(t *testing.T) {
		log := &callLog{}
		deps, _ := newDeps()
		err := NewEmailTemplateOps(newFakeTemplates(log, "old"), deps).
			Import(ctx, ImportOptions{File: "x.json", Raw: true, Clean: true})
		assert.True(t, IsUsage(err), "got %v", err)
		assert.Empty(t, log.calls)
	})
}

func TestEmailTemplateImportRaw(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "emailTemplate-welcome.json", `{"enabled":true}`)

	t.Run("Matching id", func(t *testing.T) {
		log := &callLog{}
		api := newFakeTemplates(log)
		deps, _ := newDeps()

		err := NewEmailTemplateOps(api, deps).Import(ctx, ImportOptions{ID: "welcome", File: path, Raw: true})
		require.NoError(t, err)
		assert.JSONEq(t, `{"_id":"emailTemplate/welcome","enabled":true}`, string(api.objs["welcome"]))
	})

	t.Run("Filename does not match id", func(t *testing.T) {
		log := &callLog{}
		deps, rec := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(log), deps).Import(ctx, ImportOptions{ID: "reset", File: path, Raw: true})
		assert.True(t, files.IsInvalidFilename(err), "got %v", err)
		assert.Empty(t, log.calls)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
	})

	t.Run("Bad prefix", func(t *testing.T) {
		bad := writeFile(t, dir, "welcome.json", `{}`)
		deps, _ := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}), deps).Import(ctx, ImportOptions{File: bad, Raw: true})
		assert.True(t, files.IsInvalidFilename(err), "got %v", err)
	})
}

func TestEmailTemplateExport(t *testing.T) {
	ctx := context.Background()

	t.Run("By id", func(t *testing.T) {
		dir := t.TempDir()
		deps, rec := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}, "welcome"), deps).Export(ctx, ExportOptions{ID: "welcome", Directory: dir})
		require.NoError(t, err)
		env := readEnvelope(t, filepath.Join(dir, "welcome.template.email.json"))
		assert.Nil(t, env.Meta)
		col, err := env.Collection("emailTemplate")
		require.NoError(t, err)
		assert.Equal(t, []string{"welcome"}, col.Keys())
		assert.Equal(t, 1, rec.Indicators[0].Closes)
	})

	t.Run("Missing template", func(t *testing.T) {
		dir := t.TempDir()
		deps, rec := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}), deps).Export(ctx, ExportOptions{ID: "nope", Directory: dir})
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(dir, "nope.template.email.json"))
		assert.False(t, rec.Indicators[0].Succeeded)
	})

	t.Run("All with metadata", func(t *testing.T) {
		dir := t.TempDir()
		deps, _ := newDeps()
		deps.Meta = func(context.Context) *model.Meta {
			return &model.Meta{Origin: "https://tenant.example.com", ExportTool: ToolName}
		}

		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}, "welcome", "reset"), deps).Export(ctx, ExportOptions{All: true, Directory: dir})
		require.NoError(t, err)
		env := readEnvelope(t, filepath.Join(dir, "allEmailTemplates.template.email.json"))
		require.NotNil(t, env.Meta)
		assert.Equal(t, "https://tenant.example.com", env.Meta.Origin)
		col, err := env.Collection("emailTemplate")
		require.NoError(t, err)
		assert.Equal(t, []string{"reset", "welcome"}, col.Keys())
	})

	t.Run("No metadata", func(t *testing.T) {
		dir := t.TempDir()
		deps, _ := newDeps()
		deps.Meta = func(context.Context) *model.Meta { return &model.Meta{Origin: "x"} }

		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}, "welcome"), deps).
			Export(ctx, ExportOptions{All: true, File: "out.json", Directory: dir, NoMetadata: true})
		require.NoError(t, err)
		assert.Nil(t, readEnvelope(t, filepath.Join(dir, "out.json")).Meta)
	})

	t.Run("All separate", func(t *testing.T) {
		dir := t.TempDir()
		deps, rec := newDeps()

		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}, "welcome", "reset"), deps).Export(ctx, ExportOptions{AllSeparate: true, Directory: dir})
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "welcome.template.email.json"))
		assert.FileExists(t, filepath.Join(dir, "reset.template.email.json"))
		require.Len(t, rec.Indicators, 1)
		assert.True(t, rec.Indicators[0].Determinate)
		assert.Equal(t, 2, rec.Indicators[0].Steps)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
	})

	t.Run("No mode", func(t *testing.T) {
		deps, _ := newDeps()
		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}), deps).Export(ctx, ExportOptions{})
		assert.True(t, IsUsage(err))
	})
}

func TestEmailTemplateRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := newFakeTemplates(&callLog{}, "welcome", "reset")
	deps, _ := newDeps()
	deps.Meta = func(context.Context) *model.Meta { return &model.Meta{Origin: "https://a.example.com"} }

	require.NoError(t, NewEmailTemplateOps(source, deps).Export(ctx, ExportOptions{All: true, Directory: dir}))

	target := newFakeTemplates(&callLog{})
	err := NewEmailTemplateOps(target, deps).Import(ctx, ImportOptions{All: true, File: "allEmailTemplates.template.email.json", Directory: dir})
	require.NoError(t, err)

	require.Len(t, target.objs, 2)
	for id, obj := range source.objs {
		assert.JSONEq(t, string(obj), string(target.objs[id]), id)
	}
}

func TestEmailTemplateDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("By id", func(t *testing.T) {
		log := &callLog{}
		api := newFakeTemplates(log, "welcome", "reset")
		deps, _ := newDeps()

		require.NoError(t, NewEmailTemplateOps(api, deps).Delete(ctx, DeleteOptions{ID: "welcome"}))
		assert.NotContains(t, api.objs, "welcome")
		assert.Contains(t, api.objs, "reset")
	})

	t.Run("All continues past failures", func(t *testing.T) {
		log := &callLog{}
		api := newFakeTemplates(log, "a", "b", "c")
		api.failDel["b"] = true
		deps, rec := newDeps()

		err := NewEmailTemplateOps(api, deps).Delete(ctx, DeleteOptions{All: true})
		require.True(t, IsPartialFailure(err))
		assert.Equal(t, []string{"delete:a", "delete:b", "delete:c"}, log.calls)
		assert.Len(t, api.objs, 1)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
		assert.Equal(t, 3, rec.Indicators[0].Steps)
	})

	t.Run("No mode", func(t *testing.T) {
		deps, _ := newDeps()
		err := NewEmailTemplateOps(newFakeTemplates(&callLog{}), deps).Delete(ctx, DeleteOptions{})
		assert.True(t, IsUsage(err))
	})
}

func TestEmailTemplateList(t *testing.T) {
	ctx := context.Background()
	api := newFakeTemplates(&callLog{}, "welcome", "reset")

	deps, rec := newDeps()
	require.NoError(t, NewEmailTemplateOps(api, deps).List(ctx, false))
	assert.Equal(t, []string{"reset", "welcome"}, rec.Texts("print"))

	deps, rec = newDeps()
	require.NoError(t, NewEmailTemplateOps(api, deps).List(ctx, true))
	require.Len(t, rec.Tables, 1)
	assert.Equal(t, []string{"Id", "Name", "Default Locale", "Locales", "Enabled"}, rec.Tables[0][0])
	assert.Equal(t, []string{"reset", "RESET", "en", "en", "true"}, rec.Tables[0][1])
}

func TestEmailTemplatePreview(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	api := newFakeTemplates(&callLog{})
	api.objs["welcome"] = []byte(`{
		"_id": "emailTemplate/welcome",
		"defaultLocale": "en",
		"subject": {"en": "Hi {{object.givenName}}", "fr": "Salut {{object.givenName}}"},
		"message": {"en": "<p>Welcome {{object.givenName}} {{object.sn}}</p>", "fr": "<p>Bienvenue</p>"}
	}`)

	t.Run("Default data", func(t *testing.T) {
		deps, rec := newDeps()
		require.NoError(t, NewEmailTemplateOps(api, deps).Preview(ctx, PreviewOptions{ID: "welcome"}))
		assert.Equal(t, []string{"Subject: Hi Jane", "", "<p>Welcome Jane Doe</p>"}, rec.Texts("print"))
	})

	t.Run("Data file and locale", func(t *testing.T) {
		data := writeFile(t, dir, "data.json", `{"object":{"givenName":"Ana"}}`)
		deps, rec := newDeps()
		require.NoError(t, NewEmailTemplateOps(api, deps).Preview(ctx, PreviewOptions{ID: "welcome", DataFile: data, Locale: "fr"}))
		assert.Equal(t, "Subject: Salut Ana", rec.Texts("print")[0])
	})

	t.Run("From file", func(t *testing.T) {
		path := writeFile(t, dir, "t.template.email.json",
			`{"emailTemplate":{"reset":{"subject":{"en":"Reset"},"message":{"en":"Go {{object.mail}}"}}}}`)
		deps, rec := newDeps()
		require.NoError(t, NewEmailTemplateOps(api, deps).Preview(ctx, PreviewOptions{ID: "reset", File: path}))
		assert.Equal(t, []string{"Subject: Reset", "", "Go jane@example.com"}, rec.Texts("print"))
	})

	t.Run("Unknown locale", func(t *testing.T) {
		deps, _ := newDeps()
		err := NewEmailTemplateOps(api, deps).Preview(ctx, PreviewOptions{ID: "welcome", Locale: "de"})
		assert.ErrorContains(t, err, `"de"`)
	})

	t.Run("Requires id", func(t *testing.T) {
		deps, _ := newDeps()
		assert.True(t, IsUsage(NewEmailTemplateOps(api, deps).Preview(ctx, PreviewOptions{})))
	})
}
