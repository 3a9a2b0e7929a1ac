package files

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvinuesa/tenantporter/internal/model"
)

func TestReadEnvelope(t *testing.T) {
	dir := t.TempDir()

	t.Run("Valid", func(t *testing.T) {
		path := filepath.Join(dir, "google.idp.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"meta":{"origin":"x"},"idp":{"google":{"_id":"google"}}}`), 0644))

		env, err := ReadEnvelope(path)
		require.NoError(t, err)
		assert.Equal(t, "x", env.Meta.Origin)
		c, err := env.Collection("idp")
		require.NoError(t, err)
		assert.Equal(t, []string{"google"}, c.Keys())
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := ReadEnvelope(filepath.Join(dir, "missing.json"))
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("Corrupt JSON", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.idp.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"idp": {`), 0644))

		_, err := ReadEnvelope(path)
		assert.True(t, IsFormatError(err), "got %v", err)
	})

	t.Run("Not an object", func(t *testing.T) {
		path := filepath.Join(dir, "array.json")
		require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0644))

		_, err := ReadEnvelope(path)
		assert.True(t, IsFormatError(err), "got %v", err)
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := ReadEnvelope(dir)
		assert.True(t, IsFormatError(err), "got %v", err)
	})
}

func TestReadObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emailTemplate-welcome.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"enabled":true}`), 0644))

	raw, err := ReadObject(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true}`, string(raw))

	bad := filepath.Join(dir, "emailTemplate-bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`"string"`), 0644))
	_, err = ReadObject(bad)
	assert.True(t, IsFormatError(err))
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "welcome.template.email.json")

	env := model.NewEnvelope(nil)
	c := model.NewCollection()
	c.Set("welcome", json.RawMessage(`{"message":{"en":"<p>Hi</p>"}}`))
	require.NoError(t, env.Set("emailTemplate", c))

	require.NoError(t, WriteJSON(path, env))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Contains(t, text, "<p>Hi</p>", "HTML must not be escaped")
	assert.Contains(t, text, "\n  \"emailTemplate\": {")
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.idp.json", "a.idp.json", "c.saml.json", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.idp.json"), 0755))

	got, err := List(dir, HasSuffix(".idp.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.idp.json"), filepath.Join(dir, "b.idp.json")}, got)

	_, err = List(filepath.Join(dir, "missing"), HasSuffix(".json"))
	assert.True(t, IsNotFound(err))
}
