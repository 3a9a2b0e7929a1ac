package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvinuesa/tenantporter/internal/config"
	"github.com/nvinuesa/tenantporter/internal/ops"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tenantporter "+Version)
	assert.Contains(t, out, "Go version:")
}

func TestUsageErrorsBeforeConnecting(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"import all without file", []string{"email", "template", "import", "--all"}},
		{"export without selection", []string{"idp", "export"}},
		{"delete without selection", []string{"saml", "delete"}},
		{"metadata without entity", []string{"saml", "metadata", "export"}},
		{"variable without value", []string{"esv", "variable", "create", "-i", "esv-region"}},
		{"clean without all separate", []string{"email", "template", "import", "-f", "allEmailTemplates.template.email.json", "--clean"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.True(t, ops.IsUsage(err), "got %v", err)
		})
	}
}

func TestReport(t *testing.T) {
	t.Run("Usage error", func(t *testing.T) {
		var out bytes.Buffer
		report(&out, rootCmd, &ops.ErrUsage{Reason: "pick one"})
		assert.Equal(t, "Error: usage: pick one\nRun 'tenantporter --help' for usage.\n", out.String())
	})

	t.Run("Partial failure", func(t *testing.T) {
		var out bytes.Buffer
		report(&out, rootCmd, &ops.ErrPartialFailure{Op: "import idps", Total: 2, Failures: []ops.Result{{ID: "google", Err: errors.New("boom")}}})
		assert.Contains(t, out.String(), "Error: import idps: 1 of 2 failed (google)\n")
		assert.Contains(t, out.String(), "see the messages above")
	})

	t.Run("Other error", func(t *testing.T) {
		var out bytes.Buffer
		report(&out, rootCmd, errors.New("login failed"))
		assert.Equal(t, "Error: login failed\n", out.String())
	})
}

func TestMutuallyExclusiveFlags(t *testing.T) {
	_, err := execute(t, "idp", "delete", "--idp-id", "google", "--all")
	assert.ErrorContains(t, err, "none of the others can be")
}

func TestWithArgs(t *testing.T) {
	base := config.Config{Host: "flag-host", Realm: "alpha", Username: "flag-user"}

	cfg := withArgs(base, []string{"https://arg.example.com", "", "arg-user"})
	assert.Equal(t, "https://arg.example.com", cfg.Host)
	assert.Equal(t, "alpha", cfg.Realm)
	assert.Equal(t, "arg-user", cfg.Username)
	assert.Equal(t, "flag-host", base.Host)

	assert.Equal(t, base, withArgs(base, nil))
}

func TestApplyProfile(t *testing.T) {
	dir := t.TempDir()
	store := config.NewStore(filepath.Join(dir, "connections.json"), filepath.Join(dir, "masterkey.key"))
	require.NoError(t, store.Save(config.Profile{
		Host:              "https://openam-acme.id.example.com",
		Realm:             "bravo",
		Username:          "admin",
		Password:          "s3cret",
		ServiceAccountID:  "sa-1",
		ServiceAccountJWK: `{"kty":"RSA"}`,
	}))

	t.Run("Fills missing credentials", func(t *testing.T) {
		cfg := config.Config{Host: "acme", Realm: "alpha"}
		jwk, err := applyProfile(&cfg, store, false)
		require.NoError(t, err)
		assert.Equal(t, "https://openam-acme.id.example.com", cfg.Host)
		assert.Equal(t, "bravo", cfg.Realm)
		assert.Equal(t, "admin", cfg.Username)
		assert.Equal(t, "s3cret", cfg.Password)
		assert.Equal(t, "sa-1", cfg.ServiceAccountID)
		assert.Equal(t, `{"kty":"RSA"}`, string(jwk))
	})

	t.Run("Explicit values win", func(t *testing.T) {
		cfg := config.Config{Host: "acme", Realm: "alpha", Username: "other", Password: "pw"}
		_, err := applyProfile(&cfg, store, true)
		require.NoError(t, err)
		assert.Equal(t, "alpha", cfg.Realm)
		assert.Equal(t, "other", cfg.Username)
		assert.Equal(t, "pw", cfg.Password)
	})

	t.Run("No matching profile", func(t *testing.T) {
		cfg := config.Config{Host: "https://elsewhere.example.com"}
		jwk, err := applyProfile(&cfg, store, false)
		require.NoError(t, err)
		assert.Nil(t, jwk)
		assert.Equal(t, "https://elsewhere.example.com", cfg.Host)
	})
}
