package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/nvinuesa/tenantporter/internal/security"
)

// Profile is a saved tenant connection with decrypted secrets.
type Profile struct {
	Host              string
	Realm             string
	Username          string
	Password          string
	ServiceAccountID  string
	ServiceAccountJWK string
}

// connection is the on-disk form of a Profile.
type connection struct {
	Tenant           string `json:"tenant"`
	Realm            string `json:"realm,omitempty"`
	Username         string `json:"username,omitempty"`
	EncodedPassword  string `json:"encodedPassword,omitempty"`
	ServiceAccountID string `json:"svcacctId,omitempty"`
	EncodedJWK       string `json:"encodedSvcacctJwk,omitempty"`
}

// ErrProfileNotFound is returned when no saved connection matches a host.
type ErrProfileNotFound struct {
	Host string
}

func (e *ErrProfileNotFound) Error() string {
	return fmt.Sprintf("no saved connection matches %q", e.Host)
}

// ErrAmbiguousProfile is returned when a host fragment matches several connections.
type ErrAmbiguousProfile struct {
	Host    string
	Matches []string
}

func (e *ErrAmbiguousProfile) Error() string {
	return fmt.Sprintf("%q matches %d saved connections: %s", e.Host, len(e.Matches), strings.Join(e.Matches, ", "))
}

// Store persists connection profiles in a JSON file. Secrets are sealed with
// XChaCha20-Poly1305 under a key kept in a separate file.
type Store struct {
	path    string
	keyPath string
}

// NewStore creates a Store over the given connections and master key files.
func NewStore(path, keyPath string) *Store {
	return &Store{path: path, keyPath: keyPath}
}

// Save adds or replaces the profile for p.Host.
func (s *Store) Save(p Profile) error {
	if p.Host == "" {
		return errors.New("connection profile requires a host")
	}
	conns, err := s.load()
	if err != nil {
		return err
	}
	key, err := s.masterKey(true)
	if err != nil {
		return err
	}
	defer key.Zero()

	c := connection{
		Tenant:           p.Host,
		Realm:            p.Realm,
		Username:         p.Username,
		ServiceAccountID: p.ServiceAccountID,
	}
	if c.EncodedPassword, err = seal(key.Bytes(), p.Password); err != nil {
		return err
	}
	if c.EncodedJWK, err = seal(key.Bytes(), p.ServiceAccountJWK); err != nil {
		return err
	}
	conns[p.Host] = c
	return s.write(conns)
}

// Get returns the profile whose host equals host or, failing that, the only
// profile whose host contains it.
func (s *Store) Get(host string) (*Profile, error) {
	conns, err := s.load()
	if err != nil {
		return nil, err
	}
	c, err := match(conns, host)
	if err != nil {
		return nil, err
	}
	key, err := s.masterKey(false)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	p := &Profile{
		Host:             c.Tenant,
		Realm:            c.Realm,
		Username:         c.Username,
		ServiceAccountID: c.ServiceAccountID,
	}
	if p.Password, err = open(key.Bytes(), c.EncodedPassword); err != nil {
		return nil, fmt.Errorf("failed to decrypt password for %s: %w", c.Tenant, err)
	}
	if p.ServiceAccountJWK, err = open(key.Bytes(), c.EncodedJWK); err != nil {
		return nil, fmt.Errorf("failed to decrypt service account key for %s: %w", c.Tenant, err)
	}
	return p, nil
}

// List returns saved profiles sorted by host. Secrets are not decrypted.
func (s *Store) List() ([]Profile, error) {
	conns, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(conns))
	for _, c := range conns {
		out = append(out, Profile{
			Host:             c.Tenant,
			Realm:            c.Realm,
			Username:         c.Username,
			ServiceAccountID: c.ServiceAccountID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out, nil
}

// Delete removes the profile matching host.
func (s *Store) Delete(host string) error {
	conns, err := s.load()
	if err != nil {
		return err
	}
	c, err := match(conns, host)
	if err != nil {
		return err
	}
	delete(conns, c.Tenant)
	return s.write(conns)
}

func match(conns map[string]connection, host string) (connection, error) {
	if c, ok := conns[host]; ok {
		return c, nil
	}
	var found []string
	for k := range conns {
		if host != "" && strings.Contains(k, host) {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		return connection{}, &ErrProfileNotFound{Host: host}
	case 1:
		return conns[found[0]], nil
	default:
		sort.Strings(found)
		return connection{}, &ErrAmbiguousProfile{Host: host, Matches: found}
	}
}

func (s *Store) load() (map[string]connection, error) {
	conns := map[string]connection{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return conns, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read connections file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return conns, nil
	}
	if err := json.Unmarshal(data, &conns); err != nil {
		return nil, fmt.Errorf("failed to parse connections file %s: %w", s.path, err)
	}
	return conns, nil
}

func (s *Store) write(conns map[string]connection) error {
	data, err := json.MarshalIndent(conns, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write connections file: %w", err)
	}
	return nil
}

// masterKey reads the key file, creating it when create is set.
func (s *Store) masterKey(create bool) (*security.Key, error) {
	data, err := os.ReadFile(s.keyPath)
	if errors.Is(err, fs.ErrNotExist) && create {
		return s.newMasterKey()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read master key: %w", err)
	}
	defer security.Wipe(&data)

	key, err := security.ParseKey(data, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("master key %s: %w", s.keyPath, err)
	}
	return key, nil
}

func (s *Store) newMasterKey() (*security.Key, error) {
	key, err := security.GenerateKey(chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0o700); err != nil {
		key.Zero()
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(s.keyPath), err)
	}
	encoded := key.Encode()
	defer security.Wipe(&encoded)
	if err := os.WriteFile(s.keyPath, encoded, 0o600); err != nil {
		key.Zero()
		return nil, fmt.Errorf("failed to write master key: %w", err)
	}
	return key, nil
}

// seal encrypts plaintext and returns base64(nonce || ciphertext).
func seal(key []byte, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func open(key []byte, encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	defer security.Wipe(&plain)
	return string(plain), nil
}
