package tenant

import (
	"context"
	"net/http"
)

// ServerVersion returns the AM version, read once per session.
func (s *Session) ServerVersion(ctx context.Context) (string, error) {
	s.mu.Lock()
	v := s.amVersion
	s.mu.Unlock()
	if v != "" {
		return v, nil
	}

	var info struct {
		Version string `json:"version"`
	}
	err := s.DoJSON(ctx, Request{
		Method:     http.MethodGet,
		Path:       "/am/json/serverinfo/version",
		APIVersion: "resource=1.0",
		Auth:       AuthAM,
	}, &info)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.amVersion = info.Version
	s.mu.Unlock()
	return info.Version, nil
}
