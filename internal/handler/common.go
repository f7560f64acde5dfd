package handler // handler defines http handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// travelDateLayout is the wire format for travel dates. A travel
// instance is (bus, date); everything seat-related is keyed on it.
const travelDateLayout = "2006-01-02"

// Error codes returned in the "code" field of error responses so that
// clients can distinguish failure kinds without parsing messages.
const (
	codeInvalidInput       = "INVALID_INPUT"
	codeNotFound           = "NOT_FOUND"
	codeSeatConflict       = "SEAT_CONFLICT"
	codeInvalidState       = "INVALID_STATE"
	codeAlreadyCompleted   = "ALREADY_COMPLETED"
	codeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64. The JWT middleware stores the claim with whatever numeric
// type the JSON decoder produced, so several representations are
// accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseTravelDate validates a YYYY-MM-DD travel date and returns it
// normalized. time.Parse rejects impossible calendar dates like
// 2025-02-30 outright.
func parseTravelDate(raw string) (string, error) {
	t, err := time.Parse(travelDateLayout, raw)
	if err != nil {
		return "", err
	}
	return t.Format(travelDateLayout), nil
}

// dedupeSeats returns the unique seat numbers of in, keeping first-seen
// order, and reports whether in contained duplicates. Every value is
// kept, including invalid ones like 0, so that the range validation can
// reject them explicitly instead of the request silently shrinking.
func dedupeSeats(in []uint32) ([]uint32, bool) {
	unique := make([]uint32, 0, len(in))
	seen := make(map[uint32]struct{}, len(in))
	hadDup := false
	for _, s := range in {
		if _, ok := seen[s]; ok {
			hadDup = true
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	return unique, hadDup
}
