package feed

import "context"

type ReadOptions struct {
	Start   uint64 // first sequence (inclusive); for Reverse, the highest
	Limit   int    // 0 means no limit
	Reverse bool
}

type Entry struct {
	Seq  uint64
	Data []byte
}

// Get returns the entry at seq.
func (f *Feed) Get(ctx context.Context, seq uint64) ([]byte, error) {
	if err := f.await(ctx); err != nil {
		return nil, err
	}
	if seq >= f.Len() {
		return nil, ErrOutOfRange
	}
	f.mu.Lock()
	ns := f.ns
	f.mu.Unlock()
	b, ok, err := ns.Get(keyEntry(seq))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOutOfRange
	}
	d, ok := DecodeEntry(b)
	if !ok {
		return nil, ErrCorrupt
	}
	return d, nil
}

// Read returns up to Limit entries starting at Start. Reverse scans descending
// from Start, or from the last entry when Start is past the end. Entries that
// fail their checksum are skipped.
func (f *Feed) Read(ctx context.Context, opts ReadOptions) ([]Entry, error) {
	if err := f.await(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	ns, length := f.ns, f.length
	f.mu.Unlock()

	items := make([]Entry, 0, max(1, opts.Limit))
	if length == 0 {
		return items, nil
	}
	var lo, hi []byte
	if opts.Reverse {
		last := opts.Start
		if last >= length {
			last = length - 1
		}
		lo, hi = keyEntry(0), keyEntry(last+1)
	} else {
		if opts.Start >= length {
			return items, nil
		}
		lo, hi = keyEntry(opts.Start), keyEntry(length)
	}
	err := ns.Iterate(lo, hi, opts.Reverse, func(k, v []byte) bool {
		if d, ok := DecodeEntry(v); ok {
			items = append(items, Entry{Seq: seqFromKey(k), Data: d})
		}
		return opts.Limit == 0 || len(items) < opts.Limit
	})
	return items, err
}
