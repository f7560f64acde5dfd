package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/transitlk/bus-seat-reservation/internal/config"
	"github.com/transitlk/bus-seat-reservation/internal/database"
	"github.com/transitlk/bus-seat-reservation/internal/handler"
	"github.com/transitlk/bus-seat-reservation/internal/queue"
	"github.com/transitlk/bus-seat-reservation/internal/repository"
	"github.com/transitlk/bus-seat-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// nil when Redis is unreachable; rate limiting and caching degrade
	// to pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	busRepo := repository.NewBusRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Search:   handler.NewSearchHandler(busRepo),
		SeatMap:  handler.NewSeatMapHandler(busRepo, bookingRepo),
		Booking:  handler.NewBookingHandler(busRepo, bookingRepo),
		Boarding: handler.NewBoardingHandler(bookingRepo),
		OwnerBus: handler.NewOwnerBusHandler(busRepo, bookingRepo),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	router.Register(e, h, cfg, rdb)

	// Event consumer runs for the life of the process and reconnects on
	// broker failures.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
