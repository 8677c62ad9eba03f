package feed

import "encoding/binary"

var (
	metaKey     = []byte("meta")
	entryPrefix = []byte("e/")
)

// keyEntry builds the entry key with a big-endian sequence for proper ordering.
func keyEntry(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	return binary.BigEndian.AppendUint64(k, seq)
}

func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(entryPrefix):])
}
