package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/transitlk/bus-seat-reservation/internal/model"
	"github.com/transitlk/bus-seat-reservation/internal/queue"
	"github.com/transitlk/bus-seat-reservation/internal/repository"
	"github.com/transitlk/bus-seat-reservation/internal/selection"
	queue_publisher "github.com/transitlk/bus-seat-reservation/internal/service"
)

// BookingHandler is the allocation authority: it converts a proposed
// (bus, date, seats, passenger) into persisted booking rows with no
// duplicate seat assignment. All methods assume JWT authentication and
// role validation has already been performed by middleware. The
// critical seat-claim section runs inside a single transaction so there
// is no time-of-check/time-of-use gap; the unique key on seat claims is
// what actually decides races.
type BookingHandler struct {
	BusRepo     *repository.BusRepo
	BookingRepo *repository.BookingRepo
}

// NewBookingHandler constructs a BookingHandler with the provided
// repositories. All dependencies must be non-nil.
func NewBookingHandler(busRepo *repository.BusRepo, bookingRepo *repository.BookingRepo) *BookingHandler {
	if busRepo == nil || bookingRepo == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{BusRepo: busRepo, BookingRepo: bookingRepo}
}

type createBookingReq struct {
	BusID          uint64   `json:"busId"`
	TravelDate     string   `json:"travelDate"`
	Seats          []uint32 `json:"seats"`
	PassengerName  string   `json:"passengerName"`
	PassengerPhone string   `json:"passengerPhone"`
	PassengerEmail string   `json:"passengerEmail"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

type bookingResp struct {
	BookingID        uint64   `json:"bookingId"`
	BusID            uint64   `json:"busId"`
	TravelDate       string   `json:"travelDate"`
	Seats            []uint32 `json:"seats"`
	Status           string   `json:"status"`
	UnitPriceCents   uint32   `json:"unitPriceCents"`
	TotalAmountCents uint32   `json:"totalAmountCents"`
	BoardingToken    string   `json:"boardingToken"`
}

// CreateBooking handles POST /v1/bookings. It validates the request
// shape, re-checks seat availability under the seat-claim unique key
// within one transaction and creates the booking with a snapshotted
// unit price, a computed total and a freshly issued boarding token. A
// lost race on any seat rejects the whole request with a 409 naming the
// conflicting seats; nothing is partially allocated. Retries carrying
// the same idempotency key receive the original booking.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "code": codeInvalidInput})
	}
	if req.BusID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "busId is required", "code": codeInvalidInput})
	}
	date, err := parseTravelDate(req.TravelDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid travel date, want YYYY-MM-DD", "code": codeInvalidInput})
	}
	seats, hadDup := dedupeSeats(req.Seats)
	if hadDup {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate seat numbers in request", "code": codeInvalidInput})
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required", "code": codeInvalidInput})
	}
	if len(seats) > selection.MaxRequestedSeats {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "at most " + strconv.Itoa(selection.MaxRequestedSeats) + " seats per booking",
			"code":  codeInvalidInput,
		})
	}

	ctx := c.Request().Context()

	// Replays of a previous request are answered with the original
	// booking before touching any seat state.
	idemKey := strings.TrimSpace(req.IdempotencyKey)
	if idemKey != "" {
		handled, err := h.replayByIdempotencyKey(c, userID, idemKey)
		if handled {
			return err
		}
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
		}
	}

	bus, err := h.BusRepo.GetByID(ctx, req.BusID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found", "code": codeNotFound})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
	}
	// Deactivated buses are hidden from search; direct allocation must
	// refuse them too, existing bookings stay honored.
	if !bus.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bus is not in service", "code": codeInvalidState})
	}
	for _, s := range seats {
		if s < 1 || s > bus.SeatCount {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "seat " + strconv.FormatUint(uint64(s), 10) + " out of range 1.." + strconv.FormatUint(uint64(bus.SeatCount), 10),
				"code":  codeInvalidInput,
			})
		}
	}

	token, err := repository.NewBoardingToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue boarding token"})
	}
	rec := &repository.BookingRecord{
		BusID:            bus.ID,
		TravelDate:       date,
		UserID:           userID,
		PassengerName:    strings.TrimSpace(req.PassengerName),
		PassengerPhone:   strings.TrimSpace(req.PassengerPhone),
		PassengerEmail:   strings.ToLower(strings.TrimSpace(req.PassengerEmail)),
		UnitPriceCents:   bus.PriceCents, // snapshot: later price changes never touch this booking
		TotalAmountCents: bus.PriceCents * uint32(len(seats)),
		Status:           model.BookingConfirmed,
		BoardingToken:    token,
	}
	if idemKey != "" {
		rec.IdempotencyKey = &idemKey
	}

	tx, err := h.BookingRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to start transaction", "code": codeStorageUnavailable})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.BookingRepo.CreateTx(ctx, tx, rec); err != nil {
		// A concurrent retry with the same idempotency key can slip
		// past the pre-check; the unique key decides that race and the
		// loser replays the winner's booking.
		if errors.Is(err, repository.ErrBookingExists) && idemKey != "" {
			_ = tx.Rollback()
			if handled, rerr := h.replayByIdempotencyKey(c, userID, idemKey); handled {
				return rerr
			}
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to create booking", "code": codeStorageUnavailable})
	}
	if err := h.BookingRepo.ClaimSeatsTx(ctx, tx, rec.ID, bus.ID, date, seats); err != nil {
		if errors.Is(err, repository.ErrSeatTaken) {
			_ = tx.Rollback()
			return h.seatConflict(c, bus.ID, date, seats)
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to claim seats", "code": codeStorageUnavailable})
	}
	if err := h.BookingRepo.CreateSeatsBulkTx(ctx, tx, rec.ID, bus.ID, date, seats); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to record booking seats", "code": codeStorageUnavailable})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to commit transaction", "code": codeStorageUnavailable})
	}
	committed = true

	// Publish after commit; delivery failures must not fail the booking.
	go func(ev queue.BookingConfirmedEvent) {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishBookingConfirmed(pctx, ev)
	}(queue.BookingConfirmedEvent{
		BookingID:        rec.ID,
		UserID:           userID,
		BusID:            bus.ID,
		Registration:     bus.Registration,
		RouteName:        bus.RouteName,
		TravelDate:       date,
		Seats:            seats,
		TotalAmountCents: rec.TotalAmountCents,
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, toBookingResp(rec, seats))
}

// replayByIdempotencyKey answers a retried request with the booking the
// user originally created under the key. It reports handled=true when a
// response was written; handled=false with a nil error means no booking
// exists for the key and allocation should proceed.
func (h *BookingHandler) replayByIdempotencyKey(c echo.Context, userID uint64, key string) (bool, error) {
	ctx := c.Request().Context()
	prev, err := h.BookingRepo.GetByIdempotencyKey(ctx, userID, key)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return false, nil
		}
		return false, err
	}
	prevSeats, err := h.BookingRepo.SeatsByBooking(ctx, prev.ID)
	if err != nil {
		return false, err
	}
	return true, c.JSON(http.StatusOK, toBookingResp(prev, prevSeats))
}

// seatConflict reports which of the requested seats are actually
// claimed. The losing request learns exactly the seats it lost the
// race on, so the client can re-fetch the map and pick replacements.
func (h *BookingHandler) seatConflict(c echo.Context, busID uint64, date string, seats []uint32) error {
	taken, err := h.BookingRepo.ClaimedAmong(c.Request().Context(), busID, date, seats)
	if err != nil || len(taken) == 0 {
		// The winner's claims should be visible; fall back to the whole
		// request when the follow-up read fails.
		taken = seats
	}
	conflict := repository.NewSeatConflictError(taken)
	return c.JSON(http.StatusConflict, echo.Map{
		"error":             "some seats were just taken, please choose others",
		"code":              codeSeatConflict,
		"conflicting_seats": conflict.Seats,
	})
}

func toBookingResp(rec *repository.BookingRecord, seats []uint32) bookingResp {
	if seats == nil {
		seats = []uint32{}
	}
	return bookingResp{
		BookingID:        rec.ID,
		BusID:            rec.BusID,
		TravelDate:       rec.TravelDate,
		Seats:            seats,
		Status:           rec.Status,
		UnitPriceCents:   rec.UnitPriceCents,
		TotalAmountCents: rec.TotalAmountCents,
		BoardingToken:    rec.BoardingToken,
	}
}

// CancelBooking handles POST /v1/bookings/:id/cancel. It transitions a
// PENDING or CONFIRMED booking owned by the caller to CANCELLED and
// frees its seats for future allocation. The booking row remains for
// audit. 409 is returned when the booking is already completed or
// cancelled.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id", "code": codeInvalidInput})
	}
	ctx := c.Request().Context()
	tx, err := h.BookingRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to start transaction", "code": codeStorageUnavailable})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	freed, err := h.BookingRepo.CancelTx(ctx, tx, bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found", "code": codeNotFound})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrInvalidState):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not cancellable", "code": codeInvalidState})
		default:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to cancel booking", "code": codeStorageUnavailable})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to commit transaction", "code": codeStorageUnavailable})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{
		"ok":          true,
		"freed_seats": freed,
	})
}

// ListMyBookings handles GET /v1/my-bookings. It returns all bookings
// created by the current user with bus and seat details, newest first.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.BookingRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to load bookings", "code": codeStorageUnavailable})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// GetBooking handles GET /v1/bookings/:id for the owning passenger.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id", "code": codeInvalidInput})
	}
	detail, err := h.BookingRepo.GetDetailByIDForUser(c.Request().Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found", "code": codeNotFound})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to fetch booking", "code": codeStorageUnavailable})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"item": detail})
}
