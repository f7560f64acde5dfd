package selection

import (
	"errors"
	"testing"
)

func TestNewSessionRejectsBadCount(t *testing.T) {
	if _, err := NewSession(0, 40, nil); err == nil {
		t.Fatalf("expected error for count 0")
	}
	if _, err := NewSession(11, 40, nil); err == nil {
		t.Fatalf("expected error for count above maximum")
	}
	if _, err := NewSession(10, 40, nil); err != nil {
		t.Fatalf("count at maximum should be accepted, got %v", err)
	}
}

func TestSelectTogglesSeat(t *testing.T) {
	s, err := NewSession(2, 40, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Select(7); err != nil {
		t.Fatalf("select 7: %v", err)
	}
	if got := s.Selected(); len(got) != 1 || got[0] != 7 {
		t.Fatalf("selected = %v, want [7]", got)
	}
	// Selecting the same seat again deselects it.
	if err := s.Select(7); err != nil {
		t.Fatalf("toggle 7: %v", err)
	}
	if got := s.Selected(); len(got) != 0 {
		t.Fatalf("selected = %v, want empty", got)
	}
}

func TestSelectTakenSeat(t *testing.T) {
	s, err := NewSession(2, 40, []uint32{3, 12})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Select(12); !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("expected ErrSeatUnavailable, got %v", err)
	}
	if got := s.Selected(); len(got) != 0 {
		t.Fatalf("selection should be unchanged, got %v", got)
	}
}

func TestSelectOutOfRange(t *testing.T) {
	s, err := NewSession(1, 40, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Select(0); !errors.Is(err, ErrSeatOutOfRange) {
		t.Fatalf("seat 0 should be out of range, got %v", err)
	}
	if err := s.Select(41); !errors.Is(err, ErrSeatOutOfRange) {
		t.Fatalf("seat 41 should be out of range, got %v", err)
	}
}

func TestSelectionFullLeavesSetUnchanged(t *testing.T) {
	s, err := NewSession(2, 40, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Select(1); err != nil {
		t.Fatalf("select 1: %v", err)
	}
	if err := s.Select(2); err != nil {
		t.Fatalf("select 2: %v", err)
	}
	if err := s.Select(3); !errors.Is(err, ErrSelectionFull) {
		t.Fatalf("expected ErrSelectionFull, got %v", err)
	}
	got := s.Selected()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("selection changed by rejected select: %v", got)
	}
}

func TestCompleteAndDeselect(t *testing.T) {
	s, err := NewSession(2, 40, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s.Complete() {
		t.Fatalf("empty selection must not be complete")
	}
	_ = s.Select(5)
	_ = s.Select(6)
	if !s.Complete() {
		t.Fatalf("selection of 2/2 should be complete")
	}
	s.Deselect(6)
	if s.Complete() {
		t.Fatalf("selection of 1/2 should not be complete")
	}
	s.Deselect(6) // no-op
	if got := s.Selected(); len(got) != 1 || got[0] != 5 {
		t.Fatalf("selected = %v, want [5]", got)
	}
}
