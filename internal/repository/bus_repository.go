// Package repository contains data access logic separated from HTTP handlers.
// This file defines repository methods for buses: CRUD for fleet owners and
// the availability search passengers use to find a bus for a trip.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/transitlk/bus-seat-reservation/internal/model"
)

// BusRepo encapsulates all database queries related to buses. It
// depends on a sql.DB connection which should be configured elsewhere.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo constructs a BusRepo with the provided DB handle. This
// function allows dependency injection of the database in tests and at
// startup.
func NewBusRepo(db *sql.DB) *BusRepo {
	return &BusRepo{db: db}
}

const busColumns = `id, owner_id, registration_number, service, route_number, route_name,
	start_point, end_point, seat_count, price_cents, is_active, created_at, updated_at`

func scanBus(scan func(dest ...interface{}) error) (*model.Bus, error) {
	var b model.Bus
	err := scan(
		&b.ID, &b.OwnerID, &b.Registration, &b.Service, &b.RouteNumber, &b.RouteName,
		&b.StartPoint, &b.EndPoint, &b.SeatCount, &b.PriceCents, &b.IsActive,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new bus into the database. On success the bus's ID
// field is populated with the auto-generated value and the timestamp
// fields are read back so that callers receive a fully populated record.
func (r *BusRepo) Create(ctx context.Context, b *model.Bus) error {
	const qInsert = `INSERT INTO buses
		(owner_id, registration_number, service, route_number, route_name,
		 start_point, end_point, seat_count, price_cents, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		b.OwnerID, b.Registration, b.Service, b.RouteNumber, b.RouteName,
		b.StartPoint, b.EndPoint, b.SeatCount, b.PriceCents, b.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const qSelect = `SELECT created_at, updated_at FROM buses WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID fetches a bus by its ID regardless of owner. It returns
// ErrBusNotFound if no row is found.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	q := `SELECT ` + busColumns + ` FROM buses WHERE id = ?`
	b, err := scanBus(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetByIDAndOwner fetches a bus by id but only if it belongs to the
// specified owner. If the bus doesn't exist or is owned by someone
// else, ErrBusNotFound is returned.
func (r *BusRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Bus, error) {
	q := `SELECT ` + busColumns + ` FROM buses WHERE id = ? AND owner_id = ?`
	b, err := scanBus(r.db.QueryRowContext(ctx, q, id, ownerID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListByOwner returns all buses belonging to an owner, newest first.
func (r *BusRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Bus, error) {
	q := `SELECT ` + busColumns + ` FROM buses WHERE owner_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Bus, 0)
	for rows.Next() {
		b, err := scanBus(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Update modifies the mutable fields of a bus owned by ownerID. The
// seat count is intentionally not updatable once a bus exists because
// seat numbers in bookings reference the 1..seat_count range.
// ErrBusNotFound is returned when the bus does not exist or belongs to
// another owner.
func (r *BusRepo) Update(ctx context.Context, ownerID uint64, b *model.Bus) error {
	const q = `UPDATE buses
	           SET registration_number = ?, service = ?, route_number = ?, route_name = ?,
	               start_point = ?, end_point = ?, price_cents = ?, is_active = ?
	           WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		b.Registration, b.Service, b.RouteNumber, b.RouteName,
		b.StartPoint, b.EndPoint, b.PriceCents, b.IsActive,
		b.ID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no change" from "not yours": re-check existence.
		if _, err := r.GetByIDAndOwner(ctx, b.ID, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a bus owned by ownerID. Callers must first verify
// that no active bookings reference the bus (BookingRepo.HasActiveForBus)
// and report ErrConflict otherwise. ErrBusNotFound is returned when
// nothing was deleted.
func (r *BusRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM buses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBusNotFound
	}
	return nil
}

// BusSearchQuery defines filters for the passenger-facing availability
// search. From and To match the route endpoints case-insensitively,
// TravelDate scopes the seat availability count, Service optionally
// restricts the service class and MinSeats drops buses without enough
// free seats for the requested party.
type BusSearchQuery struct {
	From       string
	To         string
	TravelDate string
	Service    string
	MinSeats   int
}

// AvailableBusRow is one search result: a bus plus how many of its
// seats remain unclaimed on the travel date. The availability figure is
// a snapshot and may be stale by booking time; the allocator re-checks.
type AvailableBusRow struct {
	ID             uint64 `json:"bus_id"`
	Registration   string `json:"registration_number"`
	Service        string `json:"service"`
	RouteNumber    string `json:"route_number"`
	RouteName      string `json:"route_name"`
	StartPoint     string `json:"start_point"`
	EndPoint       string `json:"end_point"`
	SeatCount      uint32 `json:"total_seats"`
	PriceCents     uint32 `json:"price_cents"`
	AvailableSeats uint32 `json:"available_seats"`
}

// SearchAvailable returns active buses serving the requested route with
// their remaining seat counts for the travel date, cheapest first.
func (r *BusRepo) SearchAvailable(ctx context.Context, q BusSearchQuery) ([]AvailableBusRow, error) {
	where := []string{"bu.is_active = 1"}
	args := []interface{}{q.TravelDate}

	if q.From != "" {
		where = append(where, "LOWER(bu.start_point) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.From)))
	}
	if q.To != "" {
		where = append(where, "LOWER(bu.end_point) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.To)))
	}
	if q.Service != "" {
		where = append(where, "bu.service = ?")
		args = append(args, q.Service)
	}

	minSeats := q.MinSeats
	if minSeats < 1 {
		minSeats = 1
	}
	args = append(args, minSeats)

	sqlQ := `SELECT bu.id, bu.registration_number, bu.service, bu.route_number, bu.route_name,
	                bu.start_point, bu.end_point, bu.seat_count, bu.price_cents,
	                bu.seat_count - COUNT(sc.id) AS available_seats
	         FROM buses bu
	         LEFT JOIN seat_claims sc ON sc.bus_id = bu.id AND sc.travel_date = ?
	         WHERE ` + strings.Join(where, " AND ") + `
	         GROUP BY bu.id, bu.registration_number, bu.service, bu.route_number, bu.route_name,
	                  bu.start_point, bu.end_point, bu.seat_count, bu.price_cents
	         HAVING available_seats >= ?
	         ORDER BY bu.price_cents ASC, bu.id ASC`

	rows, err := r.db.QueryContext(ctx, sqlQ, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AvailableBusRow, 0)
	for rows.Next() {
		var d AvailableBusRow
		if err := rows.Scan(
			&d.ID, &d.Registration, &d.Service, &d.RouteNumber, &d.RouteName,
			&d.StartPoint, &d.EndPoint, &d.SeatCount, &d.PriceCents, &d.AvailableSeats,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
