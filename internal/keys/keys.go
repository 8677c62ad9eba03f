package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// PublicKeySize is the size in bytes of a feed public key.
const PublicKeySize = ed25519.PublicKeySize

// HexKeyLen is the length of a hex-encoded public or discovery key.
const HexKeyLen = PublicKeySize * 2

var ErrInvalidKey = errors.New("keys: invalid key")

var discoveryMessage = []byte("hypercore")

// PublicKey identifies a feed.
type PublicKey [PublicKeySize]byte

// Hex returns the lowercase hex form used as the canonical cache key.
func (k PublicKey) Hex() string { return hex.EncodeToString(k[:]) }

func (k PublicKey) String() string { return k.Hex() }

// IsZero reports whether k is the zero key.
func (k PublicKey) IsZero() bool { return k == PublicKey{} }

// Bytes returns a copy of the key bytes.
func (k PublicKey) Bytes() []byte { return append([]byte(nil), k[:]...) }

// SecretKey authorizes appends to the feed of its public key.
type SecretKey = ed25519.PrivateKey

// DiscoveryKey is the network-safe derivation of a PublicKey.
type DiscoveryKey [32]byte

func (d DiscoveryKey) Hex() string    { return hex.EncodeToString(d[:]) }
func (d DiscoveryKey) String() string { return d.Hex() }

// KeyPair is a public key and the secret key that owns it.
type KeyPair struct {
	Public PublicKey
	Secret SecretKey
}

// GenerateKeyPair returns a fresh Ed25519 key pair read from rand
// (crypto/rand when nil).
func GenerateKeyPair(rand io.Reader) (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return KeyPair{}, err
	}
	var pk PublicKey
	copy(pk[:], pub)
	return KeyPair{Public: pk, Secret: priv}, nil
}

// Discovery derives the discovery key for pk.
func Discovery(pk PublicKey) DiscoveryKey {
	h, err := blake2b.New256(pk[:])
	if err != nil {
		// blake2b only rejects keys longer than 64 bytes.
		panic(err)
	}
	_, _ = h.Write(discoveryMessage)
	var d DiscoveryKey
	copy(d[:], h.Sum(nil))
	return d
}

// Owns reports whether sk is the secret key for pk.
func Owns(pk PublicKey, sk SecretKey) bool {
	if len(sk) != ed25519.PrivateKeySize {
		return false
	}
	pub, ok := sk.Public().(ed25519.PublicKey)
	return ok && string(pub) == string(pk[:])
}

// PublicKeyFromBytes copies a 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// ParsePublicKey decodes a 64-character hex string (either case).
func ParsePublicKey(s string) (PublicKey, error) {
	if !IsHexKey(s) {
		return PublicKey{}, fmt.Errorf("%w: %q is not %d hex characters", ErrInvalidKey, s, HexKeyLen)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return PublicKeyFromBytes(b)
}

// ParseDiscoveryKey decodes a 64-character hex discovery key.
func ParseDiscoveryKey(s string) (DiscoveryKey, error) {
	pk, err := ParsePublicKey(s)
	return DiscoveryKey(pk), err
}

// IsHexKey reports whether s has the shape of a hex-encoded key.
func IsHexKey(s string) bool {
	if len(s) != HexKeyLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
