// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published after a booking transaction commits.
// It carries enough context for downstream consumers to log, notify, or
// feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	UserID           uint64   `json:"user_id"`
	BusID            uint64   `json:"bus_id"`
	Registration     string   `json:"registration"`
	RouteName        string   `json:"route_name"`
	TravelDate       string   `json:"travel_date"`
	Seats            []uint32 `json:"seats"`
	TotalAmountCents uint32   `json:"total_amount_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

// BookingCompletedEvent is published when a conductor marks a booking as
// boarded. Completion happens at most once per booking, so consumers may
// treat each event as a distinct boarding.
type BookingCompletedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	BusID       uint64 `json:"bus_id"`
	TravelDate  string `json:"travel_date"`
	CompletedBy uint64 `json:"completed_by"`
	CompletedAt string `json:"completed_at"`
}
