package security

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMalformedKey is returned when stored key material does not decode to a
// key of the expected size.
var ErrMalformedKey = errors.New("key is malformed")

// Key holds symmetric key material until Zero is called.
type Key struct {
	data []byte
}

// GenerateKey returns size bytes of random key material.
func GenerateKey(size int) (*Key, error) {
	k := &Key{data: make([]byte, size)}
	if _, err := rand.Read(k.data); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return k, nil
}

// ParseKey decodes the base64 text of a key file. Surrounding whitespace is
// ignored and the decoded key must be exactly size bytes.
func ParseKey(text []byte, size int) (*Key, error) {
	src := bytes.TrimSpace(text)
	buf := make([]byte, base64.StdEncoding.DecodedLen(len(src)))
	n, err := base64.StdEncoding.Decode(buf, src)
	if err != nil || n != size {
		Wipe(&buf)
		return nil, ErrMalformedKey
	}
	return &Key{data: buf[:n]}, nil
}

// Encode returns the key as a base64 line, the form ParseKey reads back.
// Wipe the result once written.
func (k *Key) Encode() []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(k.Bytes())), base64.StdEncoding.EncodedLen(len(k.Bytes()))+1)
	base64.StdEncoding.Encode(out, k.Bytes())
	return append(out, '\n')
}

// Bytes returns the key material. Callers must not keep the slice.
func (k *Key) Bytes() []byte {
	if k == nil {
		return nil
	}
	return k.data
}

// Zero clears the key material.
func (k *Key) Zero() {
	if k == nil {
		return
	}
	Wipe(&k.data)
}

// Wipe zeroes and nils out a slice. Call it via defer.
func Wipe(data *[]byte) {
	if data == nil || *data == nil {
		return
	}
	clear(*data)
	*data = nil
}
