package model

import "time"

// Service class codes carried on a bus. They mirror the values stored in
// the buses.service column and the codes used by the mobile clients.
const (
	ServiceNormal     = "N"  // standard comfort
	ServiceSemiLuxury = "S"  // enhanced comfort
	ServiceLuxury     = "AC" // air conditioned
	ServiceSuperLux   = "XL" // premium
)

// Bus describes a vehicle operating a fixed route. A bus is the venue
// for bookings: all seat availability is scoped to (bus, travel date).
// Buses are owned by fleet operators and are immutable for the duration
// of a booking transaction; price changes never touch existing bookings
// because the unit price is snapshotted onto each booking row.
//
// Fields:
//  ID           – primary key identifier.
//  OwnerID      – user who operates this bus.
//  Registration – vehicle registration code, unique per fleet.
//  Service      – service class (N, S, AC, XL).
//  RouteNumber  – route designation such as "138".
//  RouteName    – human readable route name.
//  StartPoint   – origin city of the route.
//  EndPoint     – destination city of the route.
//  SeatCount    – total number of seats; seats are numbered 1..SeatCount.
//  PriceCents   – current per-seat fare in cents.
//  IsActive     – whether the bus is in service.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Bus struct {
	ID           uint64    // buses.id
	OwnerID      uint64    // buses.owner_id
	Registration string    // buses.registration_number
	Service      string    // buses.service
	RouteNumber  string    // buses.route_number
	RouteName    string    // buses.route_name
	StartPoint   string    // buses.start_point
	EndPoint     string    // buses.end_point
	SeatCount    uint32    // buses.seat_count
	PriceCents   uint32    // buses.price_cents
	IsActive     bool      // buses.is_active
	CreatedAt    time.Time // buses.created_at
	UpdatedAt    time.Time // buses.updated_at
}

// ValidService reports whether s is one of the known service class codes.
func ValidService(s string) bool {
	switch s {
	case ServiceNormal, ServiceSemiLuxury, ServiceLuxury, ServiceSuperLux:
		return true
	}
	return false
}
