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
	queue_publisher "github.com/transitlk/bus-seat-reservation/internal/service"
)

// BoardingHandler implements the conductor-side verification flow: a
// boarding token scanned from the passenger's ticket resolves to the
// booking it belongs to, and completion marks the booking as boarded.
// Both endpoints require the CONDUCTOR role, enforced by middleware.
type BoardingHandler struct {
	BookingRepo *repository.BookingRepo
}

// NewBoardingHandler constructs a BoardingHandler. The repository must
// be non-nil.
func NewBoardingHandler(bookingRepo *repository.BookingRepo) *BoardingHandler {
	if bookingRepo == nil {
		panic("nil repository passed to NewBoardingHandler")
	}
	return &BoardingHandler{BookingRepo: bookingRepo}
}

// ResolveToken handles GET /v1/boarding/:token. It looks up the booking
// behind a scanned boarding token and returns its full detail so the
// conductor can verify passenger, seats and travel date before
// completing. Resolution is a pure read: scanning the same token any
// number of times changes nothing.
func (h *BoardingHandler) ResolveToken(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing boarding token", "code": codeInvalidInput})
	}
	detail, err := h.BookingRepo.GetDetailByToken(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown boarding token", "code": codeNotFound})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item":        detail,
		"completable": detail.Status == model.BookingConfirmed,
	})
}

// CompleteBooking handles POST /v1/bookings/:id/complete. Exactly one
// completion succeeds per booking: the transition is a guarded update
// from CONFIRMED to COMPLETED, so a second scan of the same ticket gets
// a 409 with code ALREADY_COMPLETED no matter how the two requests
// interleave.
func (h *BoardingHandler) CompleteBooking(c echo.Context) error {
	conductorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id", "code": codeInvalidInput})
	}
	ctx := c.Request().Context()
	if err := h.BookingRepo.Complete(ctx, bookingID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found", "code": codeNotFound})
		case errors.Is(err, repository.ErrAlreadyCompleted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already completed", "code": codeAlreadyCompleted})
		case errors.Is(err, repository.ErrInvalidState):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not in a completable state", "code": codeInvalidState})
		default:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to complete booking", "code": codeStorageUnavailable})
		}
	}

	if rec, err := h.BookingRepo.GetByID(ctx, bookingID); err == nil {
		go func(ev queue.BookingCompletedEvent) {
			pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue_publisher.PublishBookingCompleted(pctx, ev)
		}(queue.BookingCompletedEvent{
			BookingID:   rec.ID,
			UserID:      rec.UserID,
			BusID:       rec.BusID,
			TravelDate:  rec.TravelDate,
			CompletedBy: conductorID,
			CompletedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":         true,
		"booking_id": bookingID,
		"status":     model.BookingCompleted,
	})
}
