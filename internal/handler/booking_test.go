package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/transitlk/bus-seat-reservation/internal/repository"
)

func busRows(seatCount uint32, active bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "owner_id", "registration_number", "service", "route_number", "route_name",
		"start_point", "end_point", "seat_count", "price_cents", "is_active", "created_at", "updated_at",
	}).AddRow(9, 5, "ND-4521", "AC", "138", "Colombo - Matara", "Colombo", "Matara", seatCount, 150000, active, now, now)
}

func newBookingContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(77))
	return c, rec
}

func TestCreateBookingRejectsSeatZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, owner_id, registration_number").
		WithArgs(uint64(9)).
		WillReturnRows(busRows(40, true))

	h := NewBookingHandler(repository.NewBusRepo(db), repository.NewBookingRepo(db))
	c, rec := newBookingContext(t, `{"busId":9,"travelDate":"2026-10-01","seats":[0,5]}`)
	if err := h.CreateBooking(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "INVALID_INPUT") {
		t.Fatalf("body should carry INVALID_INPUT, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "seat 0 out of range") {
		t.Fatalf("seat 0 must be rejected, not dropped: %s", rec.Body.String())
	}
}

func TestCreateBookingRejectsInactiveBus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, owner_id, registration_number").
		WithArgs(uint64(9)).
		WillReturnRows(busRows(40, false))

	h := NewBookingHandler(repository.NewBusRepo(db), repository.NewBookingRepo(db))
	c, rec := newBookingContext(t, `{"busId":9,"travelDate":"2026-10-01","seats":[3,4]}`)
	if err := h.CreateBooking(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "INVALID_STATE") {
		t.Fatalf("body should carry INVALID_STATE, got %s", rec.Body.String())
	}
}
