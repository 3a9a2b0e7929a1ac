package ops

import (
	"github.com/nvinuesa/tenantporter/internal/model"
)

// bundle accumulates the collections of one export file.
type bundle struct {
	order []string
	cols  map[string]*model.Collection
	saml  *model.SamlSection
}

func newBundle() *bundle {
	return &bundle{cols: make(map[string]*model.Collection)}
}

// col returns the named collection, creating it on first use.
func (b *bundle) col(name string) *model.Collection {
	c, ok := b.cols[name]
	if !ok {
		c = model.NewCollection()
		b.cols[name] = c
		b.order = append(b.order, name)
	}
	return c
}

// samlSection returns the SAML section stored under the "saml" field.
func (b *bundle) samlSection() *model.SamlSection {
	if b.saml == nil {
		b.saml = model.NewSamlSection()
		b.order = append(b.order, model.TypeSaml2.Collection())
	}
	return b.saml
}

func (b *bundle) envelope(meta *model.Meta) (*model.Envelope, error) {
	env := model.NewEnvelope(meta)
	for _, name := range b.order {
		var v any = b.cols[name]
		if name == model.TypeSaml2.Collection() && b.saml != nil {
			v = b.saml
		}
		if err := env.Set(name, v); err != nil {
			return nil, err
		}
	}
	return env, nil
}
