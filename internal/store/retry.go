package store

import "time"

const retryInterval = 25 * time.Millisecond

// RetryOpen calls open until it succeeds or timeout has elapsed. Engines whose
// lock acquisition fails fast (leveldb, pebble) use it to honor
// Options.Timeout the way bbolt does natively. A zero timeout tries once.
func RetryOpen[T any](timeout time.Duration, open func() (T, error)) (T, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, err := open()
		if err == nil || timeout <= 0 || time.Now().After(deadline) {
			return v, err
		}
		time.Sleep(retryInterval)
	}
}
