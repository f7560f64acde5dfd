package repository

import "testing"

func TestSeatConflictErrorSortsSeats(t *testing.T) {
	e := NewSeatConflictError([]uint32{7, 3, 11})
	if len(e.Seats) != 3 || e.Seats[0] != 3 || e.Seats[1] != 7 || e.Seats[2] != 11 {
		t.Fatalf("seats = %v, want [3 7 11]", e.Seats)
	}
	if got, want := e.Error(), "seat conflict: 3, 7, 11"; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

func TestSeatConflictErrorDoesNotMutateInput(t *testing.T) {
	in := []uint32{9, 1}
	_ = NewSeatConflictError(in)
	if in[0] != 9 || in[1] != 1 {
		t.Fatalf("input slice mutated: %v", in)
	}
}
