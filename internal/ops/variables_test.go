package ops

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvinuesa/tenantporter/internal/api"
)

func encodeValue(v string) string {
	return base64.StdEncoding.EncodeToString([]byte(v))
}

func newFakeVariables(log *callLog) *fakeVariables {
	return &fakeVariables{log: log, vars: map[string]api.Variable{
		"esv-region":  {ID: "esv-region", Description: "deploy region", ExpressionType: "string", ValueBase64: encodeValue("eu-west-1")},
		"esv-retries": {ID: "esv-retries", ExpressionType: "int", ValueBase64: encodeValue("3")},
	}}
}

func TestVariableCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("Plain value", func(t *testing.T) {
		vars := newFakeVariables(&callLog{})
		deps, rec := newDeps()

		err := NewVariableOps(vars, nil, deps).Create(ctx, CreateOptions{ID: "esv-color", Value: "blue", Description: "theme", Type: "string"})
		require.NoError(t, err)
		v := vars.vars["esv-color"]
		assert.Equal(t, encodeValue("blue"), v.ValueBase64)
		assert.Equal(t, "theme", v.Description)
		assert.Equal(t, 1, rec.Indicators[0].Closes)
	})

	t.Run("Value from secret", func(t *testing.T) {
		vars := newFakeVariables(&callLog{})
		deps, _ := newDeps()
		secrets := fakeSecrets{"awssm:prod/color": "green"}

		err := NewVariableOps(vars, secrets, deps).Create(ctx, CreateOptions{ID: "esv-color", ValueFrom: "awssm:prod/color"})
		require.NoError(t, err)
		assert.Equal(t, encodeValue("green"), vars.vars["esv-color"].ValueBase64)
	})

	t.Run("Unresolvable secret", func(t *testing.T) {
		log := &callLog{}
		deps, rec := newDeps()

		err := NewVariableOps(newFakeVariables(log), fakeSecrets{}, deps).Create(ctx, CreateOptions{ID: "esv-color", ValueFrom: "ssm:/missing"})
		require.Error(t, err)
		assert.Empty(t, log.calls)
		assert.False(t, rec.Indicators[0].Succeeded)
	})

	t.Run("No resolver", func(t *testing.T) {
		deps, _ := newDeps()
		err := NewVariableOps(newFakeVariables(&callLog{}), nil, deps).Create(ctx, CreateOptions{ID: "esv-color", ValueFrom: "ssm:/x"})
		assert.ErrorContains(t, err, "no secret resolver")
	})

	tests := []struct {
		name string
		opts CreateOptions
	}{
		{"missing id", CreateOptions{Value: "x"}},
		{"both values", CreateOptions{ID: "esv-a", Value: "x", ValueFrom: "ssm:/x"}},
		{"no value", CreateOptions{ID: "esv-a"}},
		{"bad reference", CreateOptions{ID: "esv-a", ValueFrom: "vault:x"}},
		{"bad type", CreateOptions{ID: "esv-a", Value: "x", Type: "float"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &callLog{}
			deps, rec := newDeps()
			err := NewVariableOps(newFakeVariables(log), fakeSecrets{}, deps).Create(ctx, tt.opts)
			assert.True(t, IsUsage(err), "got %v", err)
			assert.Empty(t, log.calls)
			assert.Empty(t, rec.Indicators)
		})
	}

	t.Run("Invalid id", func(t *testing.T) {
		deps, _ := newDeps()
		err := NewVariableOps(newFakeVariables(&callLog{}), nil, deps).Create(ctx, CreateOptions{ID: "Region", Value: "x"})
		assert.Error(t, err)
	})
}

func TestVariableDescribe(t *testing.T) {
	ctx := context.Background()
	vars := newFakeVariables(&callLog{})

	t.Run("Table", func(t *testing.T) {
		deps, rec := newDeps()
		require.NoError(t, NewVariableOps(vars, nil, deps).Describe(ctx, "esv-region", false))
		require.Len(t, rec.Tables, 1)
		assert.Equal(t, []string{"Id", "esv-region"}, rec.Tables[0][1])
		assert.Equal(t, []string{"Value", "eu-west-1"}, rec.Tables[0][2])
	})

	t.Run("JSON", func(t *testing.T) {
		deps, rec := newDeps()
		require.NoError(t, NewVariableOps(vars, nil, deps).Describe(ctx, "esv-region", true))
		out := rec.Texts("print")
		require.Len(t, out, 1)
		assert.Contains(t, out[0], `"_id": "esv-region"`)
	})

	t.Run("Not found", func(t *testing.T) {
		deps, _ := newDeps()
		assert.Error(t, NewVariableOps(vars, nil, deps).Describe(ctx, "esv-nope", false))
	})
}

func TestVariableSetDescription(t *testing.T) {
	vars := newFakeVariables(&callLog{})
	deps, _ := newDeps()
	require.NoError(t, NewVariableOps(vars, nil, deps).SetDescription(context.Background(), "esv-retries", "max retries"))
	assert.Equal(t, "max retries", vars.vars["esv-retries"].Description)
}

func TestVariableRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := newFakeVariables(&callLog{})
	deps, _ := newDeps()

	require.NoError(t, NewVariableOps(source, nil, deps).Export(ctx, ExportOptions{AllSeparate: true, Directory: dir}))
	assert.FileExists(t, filepath.Join(dir, "esv-region.variable.json"))
	assert.FileExists(t, filepath.Join(dir, "esv-retries.variable.json"))

	log := &callLog{}
	target := &fakeVariables{log: log, vars: map[string]api.Variable{}}
	require.NoError(t, NewVariableOps(target, nil, deps).Import(ctx, ImportOptions{AllSeparate: true, Directory: dir}))
	assert.Equal(t, []string{"create:esv-region", "create:esv-retries"}, log.calls)
	assert.Equal(t, source.vars, target.vars)
}

func TestVariableListAndDelete(t *testing.T) {
	ctx := context.Background()
	log := &callLog{}
	vars := newFakeVariables(log)

	deps, rec := newDeps()
	require.NoError(t, NewVariableOps(vars, nil, deps).List(ctx, true))
	assert.Equal(t, [][]string{
		{"Id", "Type", "Description"},
		{"esv-region", "string", "deploy region"},
		{"esv-retries", "int", ""},
	}, rec.Tables[0])

	deps, _ = newDeps()
	require.NoError(t, NewVariableOps(vars, nil, deps).Delete(ctx, DeleteOptions{All: true}))
	assert.Equal(t, []string{"delete:esv-region", "delete:esv-retries"}, log.calls)
}
