// Package pebblestore owns the single Pebble database behind a data
// directory. It applies the configured fsync policy to every commit, reports
// latencies through a MetricsHook, and offers the primitives the layers above
// need: plain and indexed batches, point reads, raw iterators and range
// erasure of a key prefix.
//
//	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	_ = db.DeletePrefix(ctx, []byte("f_ab/"))
package pebblestore
