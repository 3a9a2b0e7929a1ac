package model

// SamlSection is the "saml" field of a SAML2 export envelope.
type SamlSection struct {
	Hosted   *Collection `json:"hosted"`
	Remote   *Collection `json:"remote"`
	Metadata *Collection `json:"metadata"`
}

// NewSamlSection creates a section with empty collections.
func NewSamlSection() *SamlSection {
	return &SamlSection{
		Hosted:   NewCollection(),
		Remote:   NewCollection(),
		Metadata: NewCollection(),
	}
}

// Location returns the collection for a location, or nil for an unknown one.
func (s *SamlSection) Location(location string) *Collection {
	switch location {
	case LocationHosted:
		return s.Hosted
	case LocationRemote:
		return s.Remote
	default:
		return nil
	}
}

// Find looks up an entity by its base64url id in remote, then hosted.
func (s *SamlSection) Find(id64 string) (location string, ok bool) {
	if _, found := s.Remote.Get(id64); found {
		return LocationRemote, true
	}
	if _, found := s.Hosted.Get(id64); found {
		return LocationHosted, true
	}
	return "", false
}

// First returns the first remote entity, else the first hosted one.
func (s *SamlSection) First() (id64, location string, ok bool) {
	if id, found := s.Remote.First(); found {
		return id, LocationRemote, true
	}
	if id, found := s.Hosted.First(); found {
		return id, LocationHosted, true
	}
	return "", "", false
}

// Len returns the number of hosted and remote entities.
func (s *SamlSection) Len() int {
	return s.Hosted.Len() + s.Remote.Len()
}
