package handler

import "testing"

func TestBuildSeatMapMarksTaken(t *testing.T) {
	seats := buildSeatMap(6, []uint32{2, 5})
	if len(seats) != 6 {
		t.Fatalf("len = %d, want 6", len(seats))
	}
	for _, s := range seats {
		wantAvailable := s.SeatNumber != 2 && s.SeatNumber != 5
		if s.IsAvailable != wantAvailable {
			t.Fatalf("seat %d availability = %v, want %v", s.SeatNumber, s.IsAvailable, wantAvailable)
		}
	}
}

func TestBuildSeatMapIgnoresOutOfRangeClaims(t *testing.T) {
	seats := buildSeatMap(4, []uint32{0, 9})
	for _, s := range seats {
		if !s.IsAvailable {
			t.Fatalf("seat %d should be available, claim was out of range", s.SeatNumber)
		}
	}
}

func TestChunkRows(t *testing.T) {
	seats := buildSeatMap(10, nil)
	rows := chunkRows(seats, 4)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if len(rows[0]) != 4 || len(rows[1]) != 4 {
		t.Fatalf("full rows should have 4 seats, got %d and %d", len(rows[0]), len(rows[1]))
	}
	// Rear bench: 10 seats do not divide evenly.
	if len(rows[2]) != 2 {
		t.Fatalf("last row = %d seats, want 2", len(rows[2]))
	}
	if rows[2][1].SeatNumber != 10 {
		t.Fatalf("last seat number = %d, want 10", rows[2][1].SeatNumber)
	}
}

func TestChunkRowsEmpty(t *testing.T) {
	if rows := chunkRows(nil, 4); len(rows) != 0 {
		t.Fatalf("expected no rows for empty seat list, got %d", len(rows))
	}
}

func TestParseTravelDate(t *testing.T) {
	if _, err := parseTravelDate("2026-10-01"); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}
	if _, err := parseTravelDate("01-10-2026"); err == nil {
		t.Fatalf("wrong layout should be rejected")
	}
	if _, err := parseTravelDate("2026-02-30"); err == nil {
		t.Fatalf("impossible calendar date should be rejected")
	}
	if _, err := parseTravelDate(""); err == nil {
		t.Fatalf("empty date should be rejected")
	}
}

func TestDedupeSeats(t *testing.T) {
	seats, hadDup := dedupeSeats([]uint32{4, 1, 4})
	if !hadDup {
		t.Fatalf("duplicate 4 should be reported")
	}
	if len(seats) != 2 || seats[0] != 4 || seats[1] != 1 {
		t.Fatalf("seats = %v, want [4 1] keeping first-seen order", seats)
	}

	seats, hadDup = dedupeSeats([]uint32{2, 3})
	if hadDup || len(seats) != 2 {
		t.Fatalf("clean input mangled: %v hadDup=%v", seats, hadDup)
	}
}

func TestDedupeSeatsKeepsInvalidValues(t *testing.T) {
	// Seat 0 must survive deduplication so the range check can reject
	// the request instead of it silently shrinking to fewer seats.
	seats, hadDup := dedupeSeats([]uint32{0, 5})
	if hadDup {
		t.Fatalf("no duplicates in input, hadDup should be false")
	}
	if len(seats) != 2 || seats[0] != 0 || seats[1] != 5 {
		t.Fatalf("seats = %v, want [0 5]", seats)
	}
}
