package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// BookingDetail joins a booking with the bus it travels on and the
// seats it holds. It is the shape returned to passengers listing their
// bookings and to conductors resolving a boarding token.
type BookingDetail struct {
	ID               uint64   `json:"booking_id"`
	BusID            uint64   `json:"bus_id"`
	TravelDate       string   `json:"travel_date"`
	Status           string   `json:"status"`
	PassengerName    string   `json:"passenger_name"`
	PassengerPhone   string   `json:"passenger_phone"`
	PassengerEmail   string   `json:"passenger_email"`
	UnitPriceCents   uint32   `json:"unit_price_cents"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	BoardingToken    string   `json:"boarding_token,omitempty"`
	Registration     string   `json:"registration_number"`
	Service          string   `json:"service"`
	RouteNumber      string   `json:"route_number"`
	RouteName        string   `json:"route_name"`
	StartPoint       string   `json:"start_point"`
	EndPoint         string   `json:"end_point"`
	Seats            []uint32 `json:"seats"`
}

const bookingDetailColumns = `b.id, b.bus_id, DATE_FORMAT(b.travel_date, '%Y-%m-%d'), b.status,
	       b.passenger_name, b.passenger_phone, b.passenger_email,
	       b.unit_price_cents, b.total_amount_cents, b.boarding_token,
	       bu.registration_number, bu.service, bu.route_number, bu.route_name, bu.start_point, bu.end_point`

func scanBookingDetail(scan func(dest ...interface{}) error) (*BookingDetail, error) {
	var d BookingDetail
	err := scan(
		&d.ID, &d.BusID, &d.TravelDate, &d.Status,
		&d.PassengerName, &d.PassengerPhone, &d.PassengerEmail,
		&d.UnitPriceCents, &d.TotalAmountCents, &d.BoardingToken,
		&d.Registration, &d.Service, &d.RouteNumber, &d.RouteName, &d.StartPoint, &d.EndPoint,
	)
	if err != nil {
		return nil, err
	}
	d.Seats = []uint32{}
	return &d, nil
}

// GetDetailByIDForUser returns a single booking with bus and seat
// details, restricted to the owning user. ErrBookingNotFound is
// returned when the row does not exist and ErrForbidden when it belongs
// to someone else.
func (r *BookingRepo) GetDetailByIDForUser(ctx context.Context, bookingID, userID uint64) (*BookingDetail, error) {
	q := `SELECT b.user_id, ` + bookingDetailColumns + `
	      FROM bookings b
	      JOIN buses bu ON bu.id = b.bus_id
	      WHERE b.id = ?`
	var ownerID uint64
	row := r.db.QueryRowContext(ctx, q, bookingID)
	var d BookingDetail
	err := row.Scan(
		&ownerID,
		&d.ID, &d.BusID, &d.TravelDate, &d.Status,
		&d.PassengerName, &d.PassengerPhone, &d.PassengerEmail,
		&d.UnitPriceCents, &d.TotalAmountCents, &d.BoardingToken,
		&d.Registration, &d.Service, &d.RouteNumber, &d.RouteName, &d.StartPoint, &d.EndPoint,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if ownerID != userID {
		return nil, ErrForbidden
	}
	d.Seats = []uint32{}
	seats, err := r.SeatsByBooking(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if seats != nil {
		d.Seats = seats
	}
	return &d, nil
}

// GetDetailByToken resolves a boarding token to its booking with bus
// and seat details. It is a pure read: resolving the same token twice
// returns identical details apart from the status field, which reflects
// any completion in between. ErrBookingNotFound is returned for an
// unknown token.
func (r *BookingRepo) GetDetailByToken(ctx context.Context, token string) (*BookingDetail, error) {
	q := `SELECT ` + bookingDetailColumns + `
	      FROM bookings b
	      JOIN buses bu ON bu.id = b.bus_id
	      WHERE b.boarding_token = ?`
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, q, token).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	seats, err := r.SeatsByBooking(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if seats != nil {
		d.Seats = seats
	}
	return d, nil
}

// ListByUser returns all bookings for the given user along with bus and
// seat details, newest first. When no bookings exist an empty slice is
// returned. Seats for all bookings are populated in a single query.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	q := `SELECT ` + bookingDetailColumns + `
	      FROM bookings b
	      JOIN buses bu ON bu.id = b.bus_id
	      WHERE b.user_id = ?
	      ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		d, err := scanBookingDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		index[d.ID] = len(details)
		details = append(details, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}
	// Populate seats for all bookings in one query.
	ids := make([]interface{}, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
	}
	seatQ := `SELECT booking_id, seat_number FROM booking_seats
	          WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY booking_id, seat_number`
	srows, err := r.db.QueryContext(ctx, seatQ, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var bid uint64
		var seat uint32
		if err := srows.Scan(&bid, &seat); err != nil {
			return nil, err
		}
		if idx, ok := index[bid]; ok {
			details[idx].Seats = append(details[idx].Seats, seat)
		}
	}
	return details, srows.Err()
}
