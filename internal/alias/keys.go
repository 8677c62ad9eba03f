package alias

import "github.com/substack/multifeed-storage/internal/keys"

// Keyspace layout inside the index store. Each relation owns a fixed prefix so
// the relations never collide:
//   - d!{hex dkey}          -> public key bytes
//   - l!{name}              -> public key bytes
//   - L!{hex key}!{name}    -> empty (inverse of l!)
//   - k!{hex key}           -> empty (existence marker)
var (
	prefixDiscovery = []byte("d!")
	prefixName      = []byte("l!")
	prefixNameInv   = []byte("L!")
	prefixExists    = []byte("k!")
	sep             = byte('!')
)

func join(prefix []byte, parts ...string) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p) + 1
	}
	k := make([]byte, 0, n)
	k = append(k, prefix...)
	for i, p := range parts {
		if i > 0 {
			k = append(k, sep)
		}
		k = append(k, p...)
	}
	return k
}

// KeyDiscovery builds the discovery-key relation key.
func KeyDiscovery(d keys.DiscoveryKey) []byte { return join(prefixDiscovery, d.Hex()) }

// KeyName builds the local-name relation key.
func KeyName(name string) []byte { return join(prefixName, name) }

// KeyNameInverse builds the inverse local-name relation key.
func KeyNameInverse(pk keys.PublicKey, name string) []byte {
	return join(prefixNameInv, pk.Hex(), name)
}

// KeyNameInversePrefix returns the scan prefix for every name bound to pk.
func KeyNameInversePrefix(pk keys.PublicKey) []byte {
	return append(join(prefixNameInv, pk.Hex()), sep)
}

// KeyExists builds the existence-marker key.
func KeyExists(pk keys.PublicKey) []byte { return join(prefixExists, pk.Hex()) }
