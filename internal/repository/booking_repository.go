package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDupEntry is the MySQL error number raised when an INSERT violates
// a unique key. The allocator relies on it to detect lost seat races.
const mysqlDupEntry = 1062

// ErrSeatTaken signals that at least one requested seat already has an
// active claim. Callers should resolve the exact seat numbers with
// ClaimedAmong and report a SeatConflictError to the client.
var ErrSeatTaken = errors.New("seat already claimed")

// BookingRepo provides persistence for bookings, their seats and the
// per-travel-instance seat claims. A travel instance is the pair
// (bus_id, travel_date); the seat_claims table carries a unique key on
// (bus_id, travel_date, seat_number) which is the single authority for
// seat uniqueness. Booking rows are never deleted: cancellation flips
// the status and releases the claims while the booking and its
// booking_seats audit rows remain. All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying pool so handlers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// BookingRecord mirrors the schema of the bookings table. It is used
// internally by the repository when constructing or scanning rows.
// Business logic should use the model.Booking type instead.
type BookingRecord struct {
	ID               uint64
	BusID            uint64
	TravelDate       string
	UserID           uint64
	PassengerName    string
	PassengerPhone   string
	PassengerEmail   string
	UnitPriceCents   uint32
	TotalAmountCents uint32
	Status           string
	BoardingToken    string
	IdempotencyKey   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewBoardingToken returns a 32 character hex token generated from 16
// bytes of cryptographically secure random data. The token is stored on
// the booking and later encoded as a QR code; it carries no data and is
// unguessable by enumeration, which is all the boarding flow needs —
// the real authorization is the scan-time lookup against server state.
func NewBoardingToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ClaimSeatsTx inserts one seat_claims row per requested seat within the
// provided transaction. The unique key on (bus_id, travel_date,
// seat_number) makes this the atomic check-and-claim: when any seat is
// already held by an active booking the whole multi-row INSERT fails
// and ErrSeatTaken is returned, so the entire request is rejected with
// no partial allocation. The caller must roll back on error.
func (r *BookingRepo) ClaimSeatsTx(ctx context.Context, tx *sql.Tx, bookingID, busID uint64, travelDate string, seats []uint32) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_claims (bus_id, travel_date, seat_number, booking_id) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, busID, travelDate, s, bookingID)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return ErrSeatTaken
		}
		return err
	}
	return nil
}

// ClaimedAmong returns which of the given seats currently have an
// active claim for the travel instance. It runs on the pool, not a
// transaction, so after a lost race it sees the winner's committed
// claims regardless of isolation level. Used to name the conflicting
// seats in a SeatConflict response.
func (r *BookingRepo) ClaimedAmong(ctx context.Context, busID uint64, travelDate string, seats []uint32) ([]uint32, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	placeholders := make([]string, 0, len(seats))
	args := []interface{}{busID, travelDate}
	for _, s := range seats {
		placeholders = append(placeholders, "?")
		args = append(args, s)
	}
	q := `SELECT seat_number FROM seat_claims
	      WHERE bus_id = ? AND travel_date = ? AND seat_number IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []uint32
	for rows.Next() {
		var s uint32
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		taken = append(taken, s)
	}
	return taken, rows.Err()
}

// TakenSeats returns the seat numbers with an active claim for the
// travel instance, ascending. This is the read model behind the seat
// map; it requires no locking and may be stale by the time the caller
// acts on it — allocation re-checks under the unique key.
func (r *BookingRepo) TakenSeats(ctx context.Context, busID uint64, travelDate string) ([]uint32, error) {
	const q = `SELECT seat_number FROM seat_claims WHERE bus_id = ? AND travel_date = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, busID, travelDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	taken := make([]uint32, 0)
	for rows.Next() {
		var s uint32
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		taken = append(taken, s)
	}
	return taken, rows.Err()
}

// CreateTx inserts a new booking within the scope of an existing
// transaction. It populates the generated ID on the provided record and
// queries the row back to fill timestamps. The caller must commit or
// roll back the transaction. A duplicate-entry error maps to
// ErrBookingExists: two retries carrying the same idempotency key can
// both pass the handler's pre-check, and the unique key on
// (user_id, idempotency_key) decides the race here — the loser must
// replay the winner's booking, not report a storage failure.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *BookingRecord) error {
	const q = `INSERT INTO bookings
	           (bus_id, travel_date, user_id, passenger_name, passenger_phone, passenger_email,
	            unit_price_cents, total_amount_cents, status, boarding_token, idempotency_key)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		rec.BusID, rec.TravelDate, rec.UserID, rec.PassengerName, rec.PassengerPhone, rec.PassengerEmail,
		rec.UnitPriceCents, rec.TotalAmountCents, rec.Status, rec.BoardingToken, rec.IdempotencyKey,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return ErrBookingExists
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, rec.ID).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// CreateSeatsBulkTx inserts the booking_seats audit rows for a booking
// in a single statement. These rows record which seats the booking
// bought and survive cancellation. Passing an empty slice has no effect
// and returns nil.
func (r *BookingRepo) CreateSeatsBulkTx(ctx context.Context, tx *sql.Tx, bookingID, busID uint64, travelDate string, seats []uint32) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, bus_id, travel_date, seat_number) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, bookingID, busID, travelDate, s)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByIdempotencyKey returns the booking a user previously created
// with the given idempotency key, or ErrBookingNotFound. Allocation
// retries after a network failure hit this path and receive the
// original booking instead of a SeatConflict against themselves.
func (r *BookingRepo) GetByIdempotencyKey(ctx context.Context, userID uint64, key string) (*BookingRecord, error) {
	const q = `SELECT id, bus_id, DATE_FORMAT(travel_date, '%Y-%m-%d'), user_id,
	                  passenger_name, passenger_phone, passenger_email,
	                  unit_price_cents, total_amount_cents, status, boarding_token, idempotency_key,
	                  created_at, updated_at
	           FROM bookings WHERE user_id = ? AND idempotency_key = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID, key))
}

// GetByID returns a booking by primary key or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*BookingRecord, error) {
	const q = `SELECT id, bus_id, DATE_FORMAT(travel_date, '%Y-%m-%d'), user_id,
	                  passenger_name, passenger_phone, passenger_email,
	                  unit_price_cents, total_amount_cents, status, boarding_token, idempotency_key,
	                  created_at, updated_at
	           FROM bookings WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetByToken returns the booking carrying the given boarding token, or
// ErrBookingNotFound. Tokens are unique and issued exactly once, so
// re-scanning always resolves to the same booking.
func (r *BookingRepo) GetByToken(ctx context.Context, token string) (*BookingRecord, error) {
	const q = `SELECT id, bus_id, DATE_FORMAT(travel_date, '%Y-%m-%d'), user_id,
	                  passenger_name, passenger_phone, passenger_email,
	                  unit_price_cents, total_amount_cents, status, boarding_token, idempotency_key,
	                  created_at, updated_at
	           FROM bookings WHERE boarding_token = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, token))
}

func (r *BookingRepo) scanOne(row *sql.Row) (*BookingRecord, error) {
	var rec BookingRecord
	var key sql.NullString
	err := row.Scan(
		&rec.ID, &rec.BusID, &rec.TravelDate, &rec.UserID,
		&rec.PassengerName, &rec.PassengerPhone, &rec.PassengerEmail,
		&rec.UnitPriceCents, &rec.TotalAmountCents, &rec.Status, &rec.BoardingToken, &key,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if key.Valid {
		k := key.String
		rec.IdempotencyKey = &k
	}
	return &rec, nil
}

// SeatsByBooking returns the seat numbers bought under a booking in
// ascending order, read from the booking_seats audit rows so that
// cancelled bookings still list their seats.
func (r *BookingRepo) SeatsByBooking(ctx context.Context, bookingID uint64) ([]uint32, error) {
	const q = `SELECT seat_number FROM booking_seats WHERE booking_id = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []uint32
	for rows.Next() {
		var s uint32
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// CancelTx transitions a booking from PENDING or CONFIRMED to CANCELLED
// within the provided transaction and releases its seat claims so the
// seats become bookable again. It validates that the booking belongs to
// userID (ErrForbidden otherwise) and returns ErrInvalidState when the
// booking is already COMPLETED or CANCELLED. The freed seat numbers are
// returned for event publishing.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, bookingID, userID uint64) ([]uint32, error) {
	const sel = `SELECT user_id, status FROM bookings WHERE id = ? FOR UPDATE`
	var ownerID uint64
	var status string
	if err := tx.QueryRowContext(ctx, sel, bookingID).Scan(&ownerID, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrForbidden
	}
	if status != "PENDING" && status != "CONFIRMED" {
		return nil, ErrInvalidState
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED' WHERE id = ?`, bookingID); err != nil {
		return nil, err
	}
	// Collect the seats being freed before deleting the claims.
	rows, err := tx.QueryContext(ctx, `SELECT seat_number FROM seat_claims WHERE booking_id = ?`, bookingID)
	if err != nil {
		return nil, err
	}
	var seats []uint32
	for rows.Next() {
		var s uint32
		if scanErr := rows.Scan(&s); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		seats = append(seats, s)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seat_claims WHERE booking_id = ?`, bookingID); err != nil {
		return nil, err
	}
	return seats, nil
}

// Complete transitions a booking from CONFIRMED to COMPLETED. The
// guarded UPDATE makes the transition exactly-once under race: when two
// scans arrive concurrently only one statement matches the CONFIRMED
// row, and the loser re-reads the status to report ErrAlreadyCompleted
// (or ErrInvalidState for a cancelled booking, ErrBookingNotFound for
// an unknown id).
func (r *BookingRepo) Complete(ctx context.Context, bookingID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = 'COMPLETED' WHERE id = ? AND status = 'CONFIRMED'`, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, bookingID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		return err
	}
	switch status {
	case "COMPLETED":
		return ErrAlreadyCompleted
	default:
		return ErrInvalidState
	}
}

// HasActiveForBus reports whether any non-cancelled booking exists for
// the bus on today's date or later. Owners may not delete a bus that
// still carries such bookings.
func (r *BookingRepo) HasActiveForBus(ctx context.Context, busID uint64) (bool, error) {
	const q = `SELECT EXISTS(
	             SELECT 1 FROM bookings
	             WHERE bus_id = ? AND status IN ('PENDING','CONFIRMED') AND travel_date >= UTC_DATE()
	           )`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, busID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
