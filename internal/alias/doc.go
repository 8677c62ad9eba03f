// Package alias persists the relations that let a feed be found by something
// other than its public key: discovery key, local name (and its inverse), and
// a bare existence marker.
package alias
