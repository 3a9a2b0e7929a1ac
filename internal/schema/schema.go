// Package schema validates export envelopes against CUE definitions, one per
// resource type.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/nvinuesa/tenantporter/internal/model"
)

const common = `
#Meta: {
	origin?:            string
	originAmVersion?:   string
	exportedBy?:        string
	exportDate?:        string
	exportTool?:        string
	exportToolVersion?: string
	...
}

#Object: {...}

#Script: {
	"_id"?:  string
	name?:   string
	script?: string | [...string]
	...
}
`

var envelopes = map[model.ResourceType]string{
	model.TypeEmailTemplate: `
#Envelope: {
	meta?:          #Meta
	emailTemplate!: {[string]: #Object}
	...
}`,
	model.TypeSocialIdp: `
#Envelope: {
	meta?:   #Meta
	idp!:    {[string]: #Object}
	script?: {[string]: #Script}
	...
}`,
	model.TypeSaml2: `
#Envelope: {
	meta?: #Meta
	saml!: {
		hosted?:   {[string]: #Object}
		remote?:   {[string]: #Object}
		metadata?: {[string]: [...string]}
	}
	script?: {[string]: #Script}
	...
}`,
	model.TypeVariable: `
#Envelope: {
	meta?:     #Meta
	variable!: {[string]: #Object & {
		"_id"?:          string
		description?:    string
		expressionType?: string
		...
	}}
	...
}`,
}

// ErrValidation indicates an export file does not match the envelope schema
// of its resource type.
type ErrValidation struct {
	Type    model.ResourceType
	Source  string
	Details string
	Err     error
}

func (e *ErrValidation) Error() string {
	msg := fmt.Sprintf("%s envelope %q does not match schema", e.Type, e.Source)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *ErrValidation) Unwrap() error {
	return e.Err
}

// Supports reports whether an envelope schema exists for the type.
func Supports(rt model.ResourceType) bool {
	_, ok := envelopes[rt]
	return ok
}

// Validate checks the JSON document data (read from source, used only for
// messages) against the envelope schema of rt.
func Validate(rt model.ResourceType, source string, data []byte) error {
	def, ok := envelopes[rt]
	if !ok {
		return fmt.Errorf("no envelope schema for %s", rt)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return &ErrValidation{Type: rt, Source: source, Details: "not a JSON object", Err: err}
	}
	if _, ok := top[rt.Collection()]; !ok {
		return &ErrValidation{Type: rt, Source: source, Details: fmt.Sprintf("missing %q collection", rt.Collection())}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(common+def, cue.Filename(rt.String()+".cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("failed to compile %s schema: %w", rt, err)
	}

	expr, err := cuejson.Extract(source, data)
	if err != nil {
		return &ErrValidation{Type: rt, Source: source, Details: "not valid JSON", Err: err}
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return &ErrValidation{Type: rt, Source: source, Details: details(err), Err: err}
	}

	unified := schema.LookupPath(cue.ParsePath("#Envelope")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ErrValidation{Type: rt, Source: source, Details: details(err), Err: err}
	}
	return nil
}

func details(err error) string {
	return strings.TrimSpace(cueerrors.Details(err, nil))
}
