// Package selection implements the client-side seat picking session.
// A session tracks a user's in-progress seat choices against a cached
// seat map before the booking request is sent. The state is advisory
// only: nothing here places a hold on a seat, and the allocator
// re-validates every seat server-side, so a session built on a stale
// map simply loses the race at booking time and re-fetches the map.
package selection

import (
	"errors"
	"fmt"
	"sort"
)

// Bounds on the number of seats a single booking may request.
const (
	MinRequestedSeats = 1
	MaxRequestedSeats = 10
)

// ErrSeatUnavailable is returned when the cached seat map marks the
// seat as taken.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrSelectionFull is returned when selecting would exceed the
// requested seat count. The selection is left unchanged.
var ErrSelectionFull = errors.New("selection full")

// ErrSeatOutOfRange is returned for seat numbers outside 1..totalSeats.
var ErrSeatOutOfRange = errors.New("seat out of range")

// Session accumulates a candidate seat set for one bus and travel date.
// It is not safe for concurrent use; each client interaction owns its
// session.
type Session struct {
	requestedCount int
	totalSeats     uint32
	taken          map[uint32]bool
	selected       map[uint32]bool
}

// NewSession starts a selection session for a bus with totalSeats
// seats, of which takenSeats are already booked according to the most
// recently fetched seat map. requestedCount must be between
// MinRequestedSeats and MaxRequestedSeats.
func NewSession(requestedCount int, totalSeats uint32, takenSeats []uint32) (*Session, error) {
	if requestedCount < MinRequestedSeats || requestedCount > MaxRequestedSeats {
		return nil, fmt.Errorf("requested count must be between %d and %d, got %d",
			MinRequestedSeats, MaxRequestedSeats, requestedCount)
	}
	taken := make(map[uint32]bool, len(takenSeats))
	for _, s := range takenSeats {
		taken[s] = true
	}
	return &Session{
		requestedCount: requestedCount,
		totalSeats:     totalSeats,
		taken:          taken,
		selected:       make(map[uint32]bool),
	}, nil
}

// RequestedCount returns the ceiling agreed at session start.
func (s *Session) RequestedCount() int { return s.requestedCount }

// Select toggles a seat. Selecting an already selected seat deselects
// it. Selecting a taken seat returns ErrSeatUnavailable; selecting a
// new seat when the set is already at requestedCount returns
// ErrSelectionFull and leaves the set unchanged.
func (s *Session) Select(seat uint32) error {
	if seat < 1 || seat > s.totalSeats {
		return ErrSeatOutOfRange
	}
	if s.taken[seat] {
		return ErrSeatUnavailable
	}
	if s.selected[seat] {
		delete(s.selected, seat)
		return nil
	}
	if len(s.selected) >= s.requestedCount {
		return ErrSelectionFull
	}
	s.selected[seat] = true
	return nil
}

// Deselect removes a seat from the selection; it is a no-op when the
// seat is not selected.
func (s *Session) Deselect(seat uint32) {
	delete(s.selected, seat)
}

// Selected returns the chosen seat numbers in ascending order.
func (s *Session) Selected() []uint32 {
	out := make([]uint32, 0, len(s.selected))
	for seat := range s.selected {
		out = append(out, seat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Complete reports whether the selection has reached the requested
// seat count and is ready to be sent to the allocator.
func (s *Session) Complete() bool {
	return len(s.selected) == s.requestedCount
}
