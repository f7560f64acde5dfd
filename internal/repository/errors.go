// Package repository defines error values that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto the wire error taxonomy: ErrBusNotFound and
// ErrBookingNotFound become NotFound responses, SeatConflictError a
// SeatConflict response naming the contested seats, ErrInvalidState an
// InvalidState response and ErrAlreadyCompleted the AlreadyCompleted
// outcome of a lost boarding-scan race.
package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBusNotFound is returned when a bus cannot be found in the DB.
var ErrBusNotFound = errors.New("bus not found")

// ErrBookingNotFound is returned when a booking (or boarding token)
// does not resolve to a row. Handlers should translate this into an
// HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a bus that still has active bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a status transition is requested
// that the booking state machine does not permit, e.g. cancelling a
// completed booking. No transition leaves COMPLETED or CANCELLED.
var ErrInvalidState = errors.New("invalid state")

// ErrAlreadyCompleted is returned by the boarding completion path when
// the booking has already been marked completed. Two concurrent scans
// of the same token produce exactly one success; the loser observes
// this error rather than a duplicate completion.
var ErrAlreadyCompleted = errors.New("already completed")

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrBookingExists is returned when inserting a booking violates the
// unique key on (user_id, idempotency_key): a concurrent retry with the
// same key already created the booking. The caller should fetch and
// return that original booking instead of failing.
var ErrBookingExists = errors.New("booking already exists for idempotency key")

// SeatConflictError reports that an allocation request lost the race
// for one or more seats. Seats contains the contested seat numbers in
// ascending order. The whole request is rejected; no partial
// allocation happens.
type SeatConflictError struct {
	Seats []uint32
}

// NewSeatConflictError builds a SeatConflictError with the seat list
// sorted for deterministic output.
func NewSeatConflictError(seats []uint32) *SeatConflictError {
	sorted := append([]uint32(nil), seats...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &SeatConflictError{Seats: sorted}
}

func (e *SeatConflictError) Error() string {
	parts := make([]string, 0, len(e.Seats))
	for _, s := range e.Seats {
		parts = append(parts, fmt.Sprintf("%d", s))
	}
	return "seat conflict: " + strings.Join(parts, ", ")
}
