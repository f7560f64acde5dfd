package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/transitlk/bus-seat-reservation/internal/model"
	"github.com/transitlk/bus-seat-reservation/internal/repository"
)

// SearchHandler serves the passenger-facing bus availability search.
type SearchHandler struct {
	BusRepo *repository.BusRepo
}

// NewSearchHandler constructs a SearchHandler. The repository must be
// non-nil.
func NewSearchHandler(busRepo *repository.BusRepo) *SearchHandler {
	if busRepo == nil {
		panic("nil repository passed to NewSearchHandler")
	}
	return &SearchHandler{BusRepo: busRepo}
}

// SearchBuses handles GET /v1/buses/search?from=&to=&date=&service=&seats=.
// Only date is required; the rest narrow the result. Each hit includes
// the remaining seat count for the travel date so clients can show
// availability before opening the seat map.
func (h *SearchHandler) SearchBuses(c echo.Context) error {
	date, err := parseTravelDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid travel date, want YYYY-MM-DD", "code": codeInvalidInput})
	}
	q := repository.BusSearchQuery{
		From:       strings.TrimSpace(c.QueryParam("from")),
		To:         strings.TrimSpace(c.QueryParam("to")),
		TravelDate: date,
	}
	if svc := strings.ToUpper(strings.TrimSpace(c.QueryParam("service"))); svc != "" {
		if !model.ValidService(svc) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown service class", "code": codeInvalidInput})
		}
		q.Service = svc
	}
	if raw := c.QueryParam("seats"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must be a positive integer", "code": codeInvalidInput})
		}
		q.MinSeats = n
	}
	items, err := h.BusRepo.SearchAvailable(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "search failed", "code": codeStorageUnavailable})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"travel_date": date,
		"items":       items,
	})
}
