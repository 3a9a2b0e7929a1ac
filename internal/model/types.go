// Package model defines the resource kinds, export envelopes, and identifier
// rules shared by every command.
package model

import "fmt"

// ResourceType identifies a kind of tenant configuration object.
type ResourceType int

const (
	// TypeEmailTemplate is an IDM email template (config object emailTemplate/<id>).
	TypeEmailTemplate ResourceType = iota
	// TypeSocialIdp is an AM social identity provider.
	TypeSocialIdp
	// TypeSaml2 is an AM SAML2 entity provider, hosted or remote.
	TypeSaml2
	// TypeVariable is an ESV variable.
	TypeVariable
	// TypeScript is an AM script, exported as a dependency of other objects.
	TypeScript
)

// String returns the string representation of the ResourceType.
func (t ResourceType) String() string {
	switch t {
	case TypeEmailTemplate:
		return "email-template"
	case TypeSocialIdp:
		return "idp"
	case TypeSaml2:
		return "saml"
	case TypeVariable:
		return "variable"
	case TypeScript:
		return "script"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// Collection returns the envelope field that holds objects of this type.
func (t ResourceType) Collection() string {
	switch t {
	case TypeEmailTemplate:
		return "emailTemplate"
	case TypeSocialIdp:
		return "idp"
	case TypeSaml2:
		return "saml"
	case TypeVariable:
		return "variable"
	case TypeScript:
		return "script"
	default:
		return ""
	}
}

// FileKind returns the type segment used in typed export file names,
// e.g. "idp" in "google.idp.json".
func (t ResourceType) FileKind() string {
	switch t {
	case TypeEmailTemplate:
		return "template.email"
	case TypeSocialIdp:
		return "idp"
	case TypeSaml2:
		return "saml"
	case TypeVariable:
		return "variable"
	case TypeScript:
		return "script"
	default:
		return ""
	}
}

// FileSuffix returns the suffix that identifies export files of this type.
func (t ResourceType) FileSuffix() string {
	return "." + t.FileKind() + ".json"
}

// RawPrefix returns the filename prefix of provider-native raw files, or ""
// when the type has no raw format.
func (t ResourceType) RawPrefix() string {
	if t == TypeEmailTemplate {
		return "emailTemplate"
	}
	return ""
}

// SAML2 entity locations.
const (
	LocationHosted = "hosted"
	LocationRemote = "remote"
)
