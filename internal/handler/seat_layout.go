// Package handler exposes HTTP handlers for both authenticated and public
// endpoints. This file implements the seat map read model: for a bus and a
// travel date it derives which seats are taken from the active seat claims.
// The result is a snapshot — it may be stale by the time the client books,
// and that is fine because seat uniqueness is enforced by the allocator,
// never by this read.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/transitlk/bus-seat-reservation/internal/repository"
)

// seatsPerRow is the physical row width of the supported coach layout:
// four seats per row with the aisle after the second seat. Clients use
// the row grouping directly for display.
const seatsPerRow = 4

// SeatStatus is one entry of the seat map. Seats are numbered
// 1..totalSeats, left to right, row-major.
type SeatStatus struct {
	SeatNumber  uint32 `json:"seatNumber"`
	IsAvailable bool   `json:"isAvailable"`
}

// SeatMapHandler serves the per-travel-instance seat map.
type SeatMapHandler struct {
	BusRepo     *repository.BusRepo
	BookingRepo *repository.BookingRepo
}

// NewSeatMapHandler constructs a SeatMapHandler. Both repositories must
// be non-nil.
func NewSeatMapHandler(busRepo *repository.BusRepo, bookingRepo *repository.BookingRepo) *SeatMapHandler {
	if busRepo == nil || bookingRepo == nil {
		panic("nil repository passed to NewSeatMapHandler")
	}
	return &SeatMapHandler{BusRepo: busRepo, BookingRepo: bookingRepo}
}

// buildSeatMap produces the ordered seat list for a bus with totalSeats
// seats given the set of taken seat numbers. The returned slice always
// has exactly totalSeats entries; taken seat numbers outside the valid
// range are ignored.
func buildSeatMap(totalSeats uint32, taken []uint32) []SeatStatus {
	takenSet := make(map[uint32]bool, len(taken))
	for _, s := range taken {
		if s >= 1 && s <= totalSeats {
			takenSet[s] = true
		}
	}
	seats := make([]SeatStatus, totalSeats)
	for i := uint32(0); i < totalSeats; i++ {
		n := i + 1
		seats[i] = SeatStatus{SeatNumber: n, IsAvailable: !takenSet[n]}
	}
	return seats
}

// chunkRows groups a flat seat list into display rows of perRow seats.
// The final row may be shorter when totalSeats is not a multiple of
// perRow (e.g. a rear bench).
func chunkRows(seats []SeatStatus, perRow int) [][]SeatStatus {
	if perRow < 1 {
		perRow = 1
	}
	rows := make([][]SeatStatus, 0, (len(seats)+perRow-1)/perRow)
	for start := 0; start < len(seats); start += perRow {
		end := start + perRow
		if end > len(seats) {
			end = len(seats)
		}
		rows = append(rows, seats[start:end])
	}
	return rows
}

// GetSeatLayout handles GET /v1/buses/:id/seat-layout?date=YYYY-MM-DD.
// It returns every seat of the bus with its availability on the travel
// date, both as a flat ordered list and grouped into display rows.
// Unknown bus -> 404, malformed id or date -> 400.
func (h *SeatMapHandler) GetSeatLayout(c echo.Context) error {
	busID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || busID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id", "code": codeInvalidInput})
	}
	date, err := parseTravelDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid travel date, want YYYY-MM-DD", "code": codeInvalidInput})
	}
	ctx := c.Request().Context()
	bus, err := h.BusRepo.GetByID(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found", "code": codeNotFound})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
	}
	taken, err := h.BookingRepo.TakenSeats(ctx, busID, date)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
	}
	seats := buildSeatMap(bus.SeatCount, taken)
	return c.JSON(http.StatusOK, echo.Map{
		"bus_id":      bus.ID,
		"travel_date": date,
		"total_seats": bus.SeatCount,
		"seats":       seats,
		"rows":        chunkRows(seats, seatsPerRow),
	})
}
