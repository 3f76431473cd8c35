package queue

import "time"

// SetClock replaces the store's time source for deterministic ordering tests.
func SetClock(s *Store, now func() time.Time) {
	s.now = now
}
