package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestClaimSeatsTxDuplicateSeat(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO seat_claims").
		WithArgs(uint64(9), "2026-10-01", uint32(3), uint64(1), uint64(9), "2026-10-01", uint32(7), uint64(1)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '9-2026-10-01-3'"})
	mock.ExpectRollback()

	repo := NewBookingRepo(db)
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = repo.ClaimSeatsTx(context.Background(), tx, 1, 9, "2026-10-01", []uint32{3, 7})
	if !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
	_ = tx.Rollback()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClaimSeatsTxOtherErrorPassedThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO seat_claims").WillReturnError(boom)
	mock.ExpectRollback()

	repo := NewBookingRepo(db)
	tx, _ := db.Begin()
	err = repo.ClaimSeatsTx(context.Background(), tx, 1, 9, "2026-10-01", []uint32{3})
	if !errors.Is(err, boom) {
		t.Fatalf("expected driver error passed through, got %v", err)
	}
	if errors.Is(err, ErrSeatTaken) {
		t.Fatalf("non-duplicate errors must not map to ErrSeatTaken")
	}
	_ = tx.Rollback()
}

func TestCreateTxDuplicateIdempotencyKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	// Two in-flight retries share an idempotency key; the second INSERT
	// dies on the unique key and must surface as ErrBookingExists so
	// the caller replays the original booking.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '77-retry-1' for key 'uq_user_idempotency'"})
	mock.ExpectRollback()

	repo := NewBookingRepo(db)
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	key := "retry-1"
	rec := &BookingRecord{BusID: 9, TravelDate: "2026-10-01", UserID: 77, Status: "CONFIRMED", IdempotencyKey: &key}
	err = repo.CreateTx(context.Background(), tx, rec)
	if !errors.Is(err, ErrBookingExists) {
		t.Fatalf("expected ErrBookingExists, got %v", err)
	}
	_ = tx.Rollback()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteFirstScanWins(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE bookings SET status = 'COMPLETED'").
		WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewBookingRepo(db)
	if err := repo.Complete(context.Background(), 42); err != nil {
		t.Fatalf("first completion should succeed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteSecondScanAlreadyCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	// The guarded update matches nothing, then the status re-read shows
	// another scan got there first.
	mock.ExpectExec("UPDATE bookings SET status = 'COMPLETED'").
		WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("COMPLETED"))

	repo := NewBookingRepo(db)
	err = repo.Complete(context.Background(), 42)
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestCompleteCancelledBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE bookings SET status = 'COMPLETED'").
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))

	repo := NewBookingRepo(db)
	err = repo.Complete(context.Background(), 7)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for cancelled booking, got %v", err)
	}
}

func TestCompleteUnknownBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE bookings SET status = 'COMPLETED'").
		WithArgs(uint64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM bookings").
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	repo := NewBookingRepo(db)
	err = repo.Complete(context.Background(), 404)
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestCancelTxFreesSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id, status FROM bookings").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).AddRow(77, "CONFIRMED"))
	mock.ExpectExec("UPDATE bookings SET status = 'CANCELLED'").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT seat_number FROM seat_claims").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(2).AddRow(3))
	mock.ExpectExec("DELETE FROM seat_claims").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	repo := NewBookingRepo(db)
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	freed, err := repo.CancelTx(context.Background(), tx, 5, 77)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(freed) != 2 || freed[0] != 2 || freed[1] != 3 {
		t.Fatalf("freed = %v, want [2 3]", freed)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelTxWrongOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id, status FROM bookings").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).AddRow(77, "CONFIRMED"))
	mock.ExpectRollback()

	repo := NewBookingRepo(db)
	tx, _ := db.Begin()
	_, err = repo.CancelTx(context.Background(), tx, 5, 88)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	_ = tx.Rollback()
}

func TestCancelTxCompletedBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id, status FROM bookings").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status"}).AddRow(77, "COMPLETED"))
	mock.ExpectRollback()

	repo := NewBookingRepo(db)
	tx, _ := db.Begin()
	_, err = repo.CancelTx(context.Background(), tx, 5, 77)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	_ = tx.Rollback()
}

func TestGetByIDScansIdempotencyKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{
		"id", "bus_id", "travel_date", "user_id",
		"passenger_name", "passenger_phone", "passenger_email",
		"unit_price_cents", "total_amount_cents", "status", "boarding_token", "idempotency_key",
		"created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT id, bus_id").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			1, 9, "2026-10-01", 77,
			"A. Perera", "0771234567", "a@example.com",
			150000, 300000, "CONFIRMED", "ab12cd34", nil,
			now, now,
		))

	repo := NewBookingRepo(db)
	rec, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.IdempotencyKey != nil {
		t.Fatalf("nil idempotency_key should scan to nil pointer")
	}
	if rec.TotalAmountCents != 300000 {
		t.Fatalf("total = %d, want 300000", rec.TotalAmountCents)
	}
}

func TestGetByTokenNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, bus_id").
		WithArgs("deadbeef").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewBookingRepo(db)
	_, err = repo.GetByToken(context.Background(), "deadbeef")
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

func TestNewBoardingToken(t *testing.T) {
	a, err := NewBoardingToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	b, err := NewBoardingToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("token length = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Fatalf("two tokens must differ")
	}
}
