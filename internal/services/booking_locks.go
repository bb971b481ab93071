package services

import "sync"

// bookingLocks serialises lifecycle operations per booking id. Operations
// on different bookings proceed concurrently; two operations on the same
// booking never interleave their read-modify-write cycles.
type bookingLocks struct {
	mu    sync.Mutex
	locks map[int64]*bookingLock
}

type bookingLock struct {
	mu   sync.Mutex
	refs int
}

func newBookingLocks() *bookingLocks {
	return &bookingLocks{locks: make(map[int64]*bookingLock)}
}

// Acquire blocks until the booking's lock is held and returns the release
// function. Entries are reclaimed once the last holder releases.
func (b *bookingLocks) Acquire(bookingID int64) func() {
	b.mu.Lock()
	entry, ok := b.locks[bookingID]
	if !ok {
		entry = &bookingLock{}
		b.locks[bookingID] = entry
	}
	entry.refs++
	b.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		b.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(b.locks, bookingID)
		}
		b.mu.Unlock()
	}
}
