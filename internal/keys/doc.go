// Package keys provides feed key material: Ed25519 key pairs identifying
// feeds, hex encodings, and the one-way discovery-key derivation.
//
// The discovery key is BLAKE2b-256 keyed with the public key over the fixed
// message "hypercore". It can be shared without revealing the public key.
package keys
