package feed

import "time"

// WaitForAppend parks the caller until the feed grows or closes, or until
// timeout passes. A non-positive timeout waits indefinitely. The result is
// false only on timeout.
func (f *Feed) WaitForAppend(timeout time.Duration) bool {
	f.mu.Lock()
	wake := f.notifyCh
	f.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-wake:
		return true
	case <-expired:
		return false
	}
}
