// Package feed implements the append-only log handle managed by the registry.
//
// # Overview
//
// A Feed lives in its own storage namespace. Keys inside the namespace:
//   - meta          (JSON: public key, optional secret key, createdAtMs, length)
//   - e/{seq_be8}   (entries, seq starting at 0)
//
// Entries are stored as: payload | crc32c(payload) (4B BE).
//
// Open returns immediately and loads in the background. The namespace may
// itself still be unknown (see Deferred); every data operation waits for the
// open to settle and then fails with the open error, if any.
//
//	f := feed.Open(feed.Bound(ns, kp.Public), feed.WithSecretKey(kp.Secret))
//	<-f.Ready()
//	seqs, _ := f.Append(ctx, []byte("hello"))
//	entries, _ := f.Read(ctx, feed.ReadOptions{Start: seqs[0], Limit: 10})
//	_ = f.Close()
//
// A feed that hits a storage write failure closes itself; OnClose listeners
// run no matter who initiated the close.
package feed
