package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nvinuesa/tenantporter/internal/api"
	"github.com/nvinuesa/tenantporter/internal/files"
	"github.com/nvinuesa/tenantporter/internal/model"
	"github.com/nvinuesa/tenantporter/internal/security"
	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// VariableAPI is the tenant surface used by VariableOps.
type VariableAPI interface {
	List(ctx context.Context) ([]json.RawMessage, error)
	Read(ctx context.Context, id string) (json.RawMessage, error)
	Create(ctx context.Context, id, value, description, expressionType string) (json.RawMessage, error)
	SetDescription(ctx context.Context, id, description string) error
	Delete(ctx context.Context, id string) error
}

// VariableTypes are the accepted ESV expression types.
var VariableTypes = []string{"string", "list", "array", "object", "bool", "int", "number"}

// VariableOps manages ESV variables.
type VariableOps struct {
	api     VariableAPI
	secrets tenant.SecretResolver
	deps    Deps
}

// NewVariableOps creates VariableOps. secrets may be nil, in which case
// value references are rejected.
func NewVariableOps(variables VariableAPI, secrets tenant.SecretResolver, deps Deps) *VariableOps {
	return &VariableOps{api: variables, secrets: secrets, deps: deps.withDefaults()}
}

const (
	variableNoun  = "variable"
	variableNouns = "variables"
)

// CreateOptions describe a variable to create or replace.
type CreateOptions struct {
	ID string
	// Value is the plain-text value; ValueFrom is an awssm: or ssm: reference.
	Value       string
	ValueFrom   string
	Description string
	Type        string
}

// Validate checks the options without calling the tenant.
func (o CreateOptions) Validate() error {
	if o.ID == "" {
		return &ErrUsage{Reason: "--variable-id is required"}
	}
	if err := model.ValidateVariableID(o.ID); err != nil {
		return err
	}
	if (o.Value == "") == (o.ValueFrom == "") {
		return &ErrUsage{Reason: "exactly one of --value and --value-from is required"}
	}
	if o.ValueFrom != "" && !tenant.IsSecretRef(o.ValueFrom) {
		return &ErrUsage{Reason: fmt.Sprintf("--value-from must start with %s or %s", tenant.SecretsManagerPrefix, tenant.ParameterStorePrefix)}
	}
	if o.Type != "" && !validVariableType(o.Type) {
		return &ErrUsage{Reason: fmt.Sprintf("unknown variable type %q", o.Type)}
	}
	return nil
}

func validVariableType(t string) bool {
	for _, v := range VariableTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Create creates or replaces one variable.
func (v *VariableOps) Create(ctx context.Context, o CreateOptions) error {
	if err := o.Validate(); err != nil {
		return err
	}
	ind := v.deps.Console.Spinner(fmt.Sprintf("Creating variable %s...", o.ID))
	err := func() error {
		value := o.Value
		if o.ValueFrom != "" {
			if v.secrets == nil {
				return fmt.Errorf("cannot resolve %s: no secret resolver configured", o.ValueFrom)
			}
			resolved, err := v.secrets.Resolve(ctx, o.ValueFrom)
			if err != nil {
				return err
			}
			value = resolved
		}
		_, err := v.api.Create(ctx, o.ID, value, security.SanitizeString(o.Description), o.Type)
		return err
	}()
	if err != nil {
		ind.Fail(fmt.Sprintf("Error creating variable %s.", o.ID))
		return err
	}
	ind.Succeed(fmt.Sprintf("Created variable %s.", o.ID))
	return nil
}

// SetDescription changes the description of one variable.
func (v *VariableOps) SetDescription(ctx context.Context, id, description string) error {
	if id == "" {
		return &ErrUsage{Reason: "--variable-id is required"}
	}
	ind := v.deps.Console.Spinner(fmt.Sprintf("Updating variable %s...", id))
	if err := v.api.SetDescription(ctx, id, security.SanitizeString(description)); err != nil {
		ind.Fail(fmt.Sprintf("Error updating variable %s.", id))
		return err
	}
	ind.Succeed(fmt.Sprintf("Updated description of variable %s.", id))
	return nil
}

// Describe prints one variable as JSON, or as a field table.
func (v *VariableOps) Describe(ctx context.Context, id string, asJSON bool) error {
	if id == "" {
		return &ErrUsage{Reason: "--variable-id is required"}
	}
	raw, err := v.api.Read(ctx, id)
	if err != nil {
		return err
	}
	if asJSON {
		var obj any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return err
		}
		out, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		v.deps.Console.Print("%s", out)
		return nil
	}
	var variable api.Variable
	if err := json.Unmarshal(raw, &variable); err != nil {
		return err
	}
	value, err := variable.Value()
	if err != nil {
		return fmt.Errorf("variable %s has an invalid value: %w", id, err)
	}
	rows := [][]string{
		{"Id", variable.ID},
		{"Value", value},
		{"Type", variable.ExpressionType},
		{"Description", variable.Description},
		{"Loaded", fmt.Sprint(variable.Loaded)},
		{"Modified", variable.LastChangeDate},
		{"Modifier", variable.LastChangedBy},
	}
	return v.deps.Console.Table([]string{"Field", "Value"}, rows)
}

// Delete deletes one variable or all of them.
func (v *VariableOps) Delete(ctx context.Context, o DeleteOptions) error {
	d := &deleter{
		Deps:  v.deps,
		noun:  variableNoun,
		nouns: variableNouns,
		list:  v.ids,
		del:   v.api.Delete,
	}
	return d.run(ctx, o)
}

// Export runs the export mode selected by o.
func (v *VariableOps) Export(ctx context.Context, o ExportOptions) error {
	ex := &exporter{
		Deps:    v.deps,
		rt:      model.TypeVariable,
		noun:    variableNoun,
		nouns:   variableNouns,
		allName: "allVariables",
		list:    v.ids,
		add: func(ctx context.Context, b *bundle, id string, _ ExportOptions) error {
			obj, err := v.api.Read(ctx, id)
			if err != nil {
				return err
			}
			b.col(model.TypeVariable.Collection()).Set(id, obj)
			return nil
		},
	}
	return ex.run(ctx, o)
}

// Import runs the import mode selected by o.
func (v *VariableOps) Import(ctx context.Context, o ImportOptions) error {
	im := &importer{
		Deps:  v.deps,
		rt:    model.TypeVariable,
		noun:  variableNoun,
		nouns: variableNouns,
		open:  v.open,
	}
	return im.run(ctx, o)
}

func (v *VariableOps) list(ctx context.Context) ([]api.Variable, error) {
	objs, err := v.api.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.Variable, 0, len(objs))
	for _, obj := range objs {
		var variable api.Variable
		if err := json.Unmarshal(obj, &variable); err != nil {
			return nil, err
		}
		out = append(out, variable)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *VariableOps) ids(ctx context.Context) ([]string, error) {
	vars, err := v.list(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(vars))
	for i, variable := range vars {
		ids[i] = variable.ID
	}
	return ids, nil
}

// List prints variable ids, or a table with long.
func (v *VariableOps) List(ctx context.Context, long bool) error {
	vars, err := v.list(ctx)
	if err != nil {
		return err
	}
	if !long {
		for _, variable := range vars {
			v.deps.Console.Print("%s", variable.ID)
		}
		return nil
	}
	rows := make([][]string, 0, len(vars))
	for _, variable := range vars {
		rows = append(rows, []string{variable.ID, variable.ExpressionType, variable.Description})
	}
	return v.deps.Console.Table([]string{"Id", "Type", "Description"}, rows)
}

func (v *VariableOps) open(env *model.Envelope, path string) (entrySet, error) {
	col, err := env.Collection(model.TypeVariable.Collection())
	if err != nil {
		return nil, &files.ErrInvalidFormat{Path: path, Details: "no variables", Err: err}
	}
	return &variableSet{ops: v, col: col}, nil
}

type variableSet struct {
	ops *VariableOps
	col *model.Collection
}

func (s *variableSet) Keys() []string        { return s.col.Keys() }
func (s *variableSet) First() (string, bool) { return s.col.First() }

func (s *variableSet) Lookup(id string) (string, bool) {
	_, ok := s.col.Get(id)
	return id, ok
}

func (s *variableSet) Import(ctx context.Context, key string, _ ImportOptions) error {
	obj, _ := s.col.Get(key)
	var variable api.Variable
	if err := json.Unmarshal(obj, &variable); err != nil {
		return fmt.Errorf("variable %s: %w", key, err)
	}
	value, err := variable.Value()
	if err != nil {
		return fmt.Errorf("variable %s has an invalid value: %w", key, err)
	}
	_, err = s.ops.api.Create(ctx, key, value, variable.Description, variable.ExpressionType)
	return err
}
