package registry

import (
	"strings"

	"github.com/substack/multifeed-storage/internal/keys"
)

type kind uint8

const (
	kindInvalid kind = iota
	kindKey
	kindName
)

// Identifier is a classified reference to a feed: either a public key or a
// local name. The zero value is invalid.
type Identifier struct {
	kind kind
	key  keys.PublicKey
	name string
}

// KeyIdentifier refers to a feed by public key.
func KeyIdentifier(pk keys.PublicKey) Identifier {
	return Identifier{kind: kindKey, key: pk}
}

// NameIdentifier refers to a feed by local name, even if name looks like a key.
func NameIdentifier(name string) Identifier {
	return Identifier{kind: kindName, name: name}
}

// IdentifierFromBytes classifies raw key bytes.
func IdentifierFromBytes(b []byte) (Identifier, error) {
	pk, err := keys.PublicKeyFromBytes(b)
	if err != nil {
		return Identifier{}, err
	}
	return KeyIdentifier(pk), nil
}

// ParseIdentifier classifies s: 64 hex characters are a public key, anything
// else is a local name.
func ParseIdentifier(s string) Identifier {
	if keys.IsHexKey(s) {
		if pk, err := keys.ParsePublicKey(s); err == nil {
			return KeyIdentifier(pk)
		}
	}
	return NameIdentifier(s)
}

// Key returns the public key, if this identifier is one.
func (id Identifier) Key() (keys.PublicKey, bool) {
	return id.key, id.kind == kindKey
}

// Name returns the local name, if this identifier is one.
func (id Identifier) Name() (string, bool) {
	return id.name, id.kind == kindName
}

func (id Identifier) String() string {
	switch id.kind {
	case kindKey:
		return id.key.Hex()
	case kindName:
		return id.name
	}
	return "<invalid>"
}

// validateName rejects names Get could never reach: empty names and names
// shaped like a hex key.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if keys.IsHexKey(name) {
		return ErrInvalidName
	}
	return nil
}
