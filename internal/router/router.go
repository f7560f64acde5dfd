package router // route registration for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/transitlk/bus-seat-reservation/internal/config"
	"github.com/transitlk/bus-seat-reservation/internal/handler"
	"github.com/transitlk/bus-seat-reservation/internal/middleware"
	"github.com/transitlk/bus-seat-reservation/internal/model"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Search   *handler.SearchHandler
	SeatMap  *handler.SeatMapHandler
	Booking  *handler.BookingHandler
	Boarding *handler.BoardingHandler
	OwnerBus *handler.OwnerBusHandler
}

// Register mounts all routes on the Echo instance.
//
// Route groups and their protection:
//
//	/healthz              liveness, unauthenticated
//	/v1/auth/*            register/login/refresh/logout, unauthenticated
//	/v1/buses/search      public browse, Redis response cache
//	/v1/buses/:id/seat-layout  public seat map, never cached
//	/v1/* (passenger)     JWT, any role
//	/v1/boarding, /v1/bookings/:id/complete  JWT + CONDUCTOR
//	/v1/owner/*           JWT + OWNER
//
// The rate limiter wraps every /v1 route; the allocator is the main
// thing it protects.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Session endpoints.
	authG := e.Group("/v1/auth", rl)
	authG.POST("/register", h.Auth.Register)
	authG.POST("/login", h.Auth.Login)
	authG.POST("/refresh", h.Auth.Refresh)
	authG.POST("/refresh-access", h.Auth.RefreshAccess)
	authG.POST("/logout", h.Auth.Logout)

	// Public browse. Both reads are advisory snapshots, so a short-TTL
	// cache is safe: the allocator re-validates every seat.
	e.GET("/v1/buses/search", h.Search.SearchBuses, rl, cache)
	e.GET("/v1/buses/:id/seat-layout", h.SeatMap.GetSeatLayout, rl, cache)

	// Passenger endpoints: any authenticated role may book.
	jwt := middleware.JWTAuth(cfg.JWTSecret)
	passenger := e.Group("/v1", rl, jwt,
		middleware.RequireRole(model.RolePassenger, model.RoleConductor, model.RoleOwner))
	passenger.GET("/me", h.Auth.Me)
	passenger.POST("/bookings", h.Booking.CreateBooking)
	passenger.GET("/bookings/:id", h.Booking.GetBooking)
	passenger.POST("/bookings/:id/cancel", h.Booking.CancelBooking)
	passenger.GET("/my-bookings", h.Booking.ListMyBookings)

	// Conductor endpoints: boarding verification and completion.
	conductor := e.Group("/v1", rl, jwt, middleware.RequireRole(model.RoleConductor))
	conductor.GET("/boarding/:token", h.Boarding.ResolveToken)
	conductor.POST("/bookings/:id/complete", h.Boarding.CompleteBooking)

	// Fleet management.
	owner := e.Group("/v1/owner", rl, jwt, middleware.RequireRole(model.RoleOwner))
	owner.POST("/buses", h.OwnerBus.CreateBus)
	owner.GET("/buses", h.OwnerBus.ListBuses)
	owner.PUT("/buses/:id", h.OwnerBus.UpdateBus)
	owner.DELETE("/buses/:id", h.OwnerBus.DeleteBus)
}
