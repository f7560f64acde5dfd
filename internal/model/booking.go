package model

import "time"

// Booking statuses. Transitions are monotonic: PENDING -> CONFIRMED ->
// COMPLETED, or PENDING/CONFIRMED -> CANCELLED. Nothing leaves COMPLETED
// or CANCELLED. A booking is "active" (its seats count as taken) while it
// is not CANCELLED.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
)

// Booking records a passenger's purchase of one or more seats on a bus
// for a specific travel date. It is created by the allocator with status
// CONFIRMED and is mutated only by boarding completion or cancellation;
// rows are never deleted so cancelled bookings remain for audit.
//
// Fields:
//  ID              – primary key identifier, server assigned.
//  BusID           – bus being travelled on.
//  TravelDate      – calendar date of travel (YYYY-MM-DD); together with
//                    BusID it forms the travel instance that scopes seat
//                    uniqueness.
//  UserID          – owning account.
//  PassengerName   – denormalized contact for walk-up bookings.
//  PassengerPhone  – contact phone number.
//  PassengerEmail  – contact email address.
//  UnitPriceCents  – per-seat fare snapshotted at booking time; later
//                    price changes on the bus never alter this.
//  TotalAmountCents – UnitPriceCents multiplied by the seat count.
//  Status          – one of the Booking* constants above.
//  BoardingToken   – opaque token encoded as a QR code; resolves to this
//                    booking at boarding time.
//  IdempotencyKey  – client generated key making allocation retries safe.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
	ID               uint64    // bookings.id
	BusID            uint64    // bookings.bus_id
	TravelDate       string    // bookings.travel_date
	UserID           uint64    // bookings.user_id
	PassengerName    string    // bookings.passenger_name
	PassengerPhone   string    // bookings.passenger_phone
	PassengerEmail   string    // bookings.passenger_email
	UnitPriceCents   uint32    // bookings.unit_price_cents
	TotalAmountCents uint32    // bookings.total_amount_cents
	Status           string    // bookings.status
	BoardingToken    string    // bookings.boarding_token
	IdempotencyKey   string    // bookings.idempotency_key
	CreatedAt        time.Time // bookings.created_at
	UpdatedAt        time.Time // bookings.updated_at
}

// BookingSeat links a booking to one seat of its travel instance. The
// rows are audit records: they are written once at allocation and kept
// even after cancellation. Seat uniqueness among active bookings is
// enforced separately through the seat_claims table.
//
// Fields:
//  ID         – primary key identifier.
//  BookingID  – reference to the booking.
//  BusID      – bus of the travel instance.
//  TravelDate – date of the travel instance.
//  SeatNumber – 1-based seat index on the bus.
//  CreatedAt  – creation timestamp.
type BookingSeat struct {
	ID         uint64    // booking_seats.id
	BookingID  uint64    // booking_seats.booking_id
	BusID      uint64    // booking_seats.bus_id
	TravelDate string    // booking_seats.travel_date
	SeatNumber uint32    // booking_seats.seat_number
	CreatedAt  time.Time // booking_seats.created_at
}
