// Package storage carves per-feed storage namespaces out of a single root
// Pebble database.
//
// A namespace is a key prefix: segment "f_ab12" maps to keys "f_ab12/...".
// Namespaces never see each other's keys, and Provider.Erase drops a whole
// segment with one range tombstone.
//
//	p := storage.NewProvider(db)
//	ns := p.Namespace("f_" + key.Hex())
//	_ = ns.Update(ctx, func(w storage.Writer) error { return w.Set([]byte("meta"), b) })
//	_ = p.Erase(ctx, "f_"+key.Hex())
package storage
