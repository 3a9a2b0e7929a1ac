package ops

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdpFixture(log *callLog) (*fakeProviders, *fakeScripts) {
	providers := &fakeProviders{log: log, objs: map[string]json.RawMessage{}, types: map[string]string{}}
	providers.objs["google"] = json.RawMessage(`{"_id":"google","_type":{"_id":"googleConfig"},"enabled":true,"transform":"` + scriptA + `"}`)
	providers.objs["github"] = json.RawMessage(`{"_id":"github","_type":{"_id":"oauth2Config"},"enabled":false}`)
	scripts := &fakeScripts{log: log, objs: map[string]json.RawMessage{
		scriptA: json.RawMessage(`{"_id":"` + scriptA + `","name":"Google Profile Normalization","script":"` + base64.StdEncoding.EncodeToString([]byte("line1\nline2")) + `"}`),
	}}
	return providers, scripts
}

func TestIdpExport(t *testing.T) {
	ctx := context.Background()

	t.Run("With transform script", func(t *testing.T) {
		dir := t.TempDir()
		providers, scripts := newIdpFixture(&callLog{})
		deps, _ := newDeps()

		require.NoError(t, NewIdpOps(providers, scripts, deps).Export(ctx, ExportOptions{ID: "google", Directory: dir}))
		env := readEnvelope(t, filepath.Join(dir, "google.idp.json"))
		assert.True(t, env.Has("idp"))
		assert.True(t, env.Has("script"))

		col, err := env.Collection("script")
		require.NoError(t, err)
		script, ok := col.Get(scriptA)
		require.True(t, ok)
		assert.JSONEq(t, `{"_id":"`+scriptA+`","name":"Google Profile Normalization","script":["line1","line2"]}`, string(script))
	})

	t.Run("No deps", func(t *testing.T) {
		dir := t.TempDir()
		providers, scripts := newIdpFixture(&callLog{})
		deps, _ := newDeps()

		require.NoError(t, NewIdpOps(providers, scripts, deps).Export(ctx, ExportOptions{ID: "google", Directory: dir, NoDeps: true}))
		env := readEnvelope(t, filepath.Join(dir, "google.idp.json"))
		assert.True(t, env.Has("idp"))
		assert.False(t, env.Has("script"))
	})

	t.Run("All", func(t *testing.T) {
		dir := t.TempDir()
		providers, scripts := newIdpFixture(&callLog{})
		deps, _ := newDeps()

		require.NoError(t, NewIdpOps(providers, scripts, deps).Export(ctx, ExportOptions{All: true, Directory: dir}))
		env := readEnvelope(t, filepath.Join(dir, "allProviders.idp.json"))
		col, err := env.Collection("idp")
		require.NoError(t, err)
		assert.Equal(t, []string{"github", "google"}, col.Keys())
	})

	t.Run("Missing script fails the provider", func(t *testing.T) {
		dir := t.TempDir()
		providers, scripts := newIdpFixture(&callLog{})
		delete(scripts.objs, scriptA)
		deps, _ := newDeps()

		err := NewIdpOps(providers, scripts, deps).Export(ctx, ExportOptions{AllSeparate: true, Directory: dir})
		var partial *ErrPartialFailure
		require.ErrorAs(t, err, &partial)
		require.Len(t, partial.Failures, 1)
		assert.Equal(t, "google", partial.Failures[0].ID)
		assert.FileExists(t, filepath.Join(dir, "github.idp.json"))
	})
}

func TestIdpRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	providers, scripts := newIdpFixture(&callLog{})
	deps, _ := newDeps()
	require.NoError(t, NewIdpOps(providers, scripts, deps).Export(ctx, ExportOptions{ID: "google", Directory: dir}))

	t.Run("Scripts before provider", func(t *testing.T) {
		log := &callLog{}
		target, targetScripts := &fakeProviders{log: log, objs: map[string]json.RawMessage{}, types: map[string]string{}},
			&fakeScripts{log: log, objs: map[string]json.RawMessage{}}

		err := NewIdpOps(target, targetScripts, deps).Import(ctx, ImportOptions{File: "google.idp.json", Directory: dir})
		require.NoError(t, err)
		assert.Equal(t, []string{"script:" + scriptA, "idp:googleConfig/google"}, log.calls)
		assert.JSONEq(t, string(providers.objs["google"]), string(target.objs["google"]))
		assert.JSONEq(t, string(scripts.objs[scriptA]), string(targetScripts.objs[scriptA]))
	})

	t.Run("No deps", func(t *testing.T) {
		log := &callLog{}
		target := &fakeProviders{log: log, objs: map[string]json.RawMessage{}, types: map[string]string{}}

		err := NewIdpOps(target, &fakeScripts{log: log, objs: map[string]json.RawMessage{}}, deps).
			Import(ctx, ImportOptions{ID: "google", File: "google.idp.json", Directory: dir, NoDeps: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"idp:googleConfig/google"}, log.calls)
	})

	t.Run("Raw is not supported", func(t *testing.T) {
		err := NewIdpOps(providers, scripts, deps).Import(ctx, ImportOptions{File: "google.idp.json", Raw: true})
		assert.True(t, IsUsage(err))
	})
}

func TestIdpListAndDelete(t *testing.T) {
	ctx := context.Background()
	log := &callLog{}
	providers, scripts := newIdpFixture(log)

	deps, rec := newDeps()
	require.NoError(t, NewIdpOps(providers, scripts, deps).List(ctx, true))
	require.Len(t, rec.Tables, 1)
	assert.Equal(t, [][]string{
		{"Id", "Type", "Enabled"},
		{"github", "oauth2Config", "false"},
		{"google", "googleConfig", "true"},
	}, rec.Tables[0])

	deps, _ = newDeps()
	require.NoError(t, NewIdpOps(providers, scripts, deps).Delete(ctx, DeleteOptions{All: true}))
	assert.Equal(t, []string{"delete:github", "delete:google"}, log.calls)
	assert.Empty(t, providers.objs)
}
