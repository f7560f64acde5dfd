package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/transitlk/bus-seat-reservation/internal/model"
	"github.com/transitlk/bus-seat-reservation/internal/repository"
)

// OwnerBusHandler exposes fleet management for bus owners: create,
// list, update, deactivate and delete buses. All routes require the
// OWNER role, enforced by middleware; ownership of individual buses is
// re-checked per query so one owner can never touch another's fleet.
type OwnerBusHandler struct {
	BusRepo     *repository.BusRepo
	BookingRepo *repository.BookingRepo
}

// NewOwnerBusHandler constructs an OwnerBusHandler. Both repositories
// must be non-nil.
func NewOwnerBusHandler(busRepo *repository.BusRepo, bookingRepo *repository.BookingRepo) *OwnerBusHandler {
	if busRepo == nil || bookingRepo == nil {
		panic("nil repository passed to NewOwnerBusHandler")
	}
	return &OwnerBusHandler{BusRepo: busRepo, BookingRepo: bookingRepo}
}

type busReq struct {
	Registration string `json:"registrationNumber"`
	Service      string `json:"service"`
	RouteNumber  string `json:"routeNumber"`
	RouteName    string `json:"routeName"`
	StartPoint   string `json:"startPoint"`
	EndPoint     string `json:"endPoint"`
	SeatCount    uint32 `json:"seatCount"`
	PriceCents   uint32 `json:"priceCents"`
	IsActive     *bool  `json:"isActive"`
}

type busResp struct {
	ID           uint64    `json:"busId"`
	Registration string    `json:"registrationNumber"`
	Service      string    `json:"service"`
	RouteNumber  string    `json:"routeNumber"`
	RouteName    string    `json:"routeName"`
	StartPoint   string    `json:"startPoint"`
	EndPoint     string    `json:"endPoint"`
	SeatCount    uint32    `json:"seatCount"`
	PriceCents   uint32    `json:"priceCents"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toBusResp(b *model.Bus) busResp {
	return busResp{
		ID:           b.ID,
		Registration: b.Registration,
		Service:      b.Service,
		RouteNumber:  b.RouteNumber,
		RouteName:    b.RouteName,
		StartPoint:   b.StartPoint,
		EndPoint:     b.EndPoint,
		SeatCount:    b.SeatCount,
		PriceCents:   b.PriceCents,
		IsActive:     b.IsActive,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// maxSeatCount bounds bus sizes to something physically plausible;
// anything above it is almost certainly a client bug.
const maxSeatCount = 100

func (req *busReq) validate(requireSeats bool) string {
	if strings.TrimSpace(req.Registration) == "" {
		return "registrationNumber is required"
	}
	if !model.ValidService(strings.ToUpper(strings.TrimSpace(req.Service))) {
		return "unknown service class"
	}
	if strings.TrimSpace(req.RouteName) == "" {
		return "routeName is required"
	}
	if strings.TrimSpace(req.StartPoint) == "" || strings.TrimSpace(req.EndPoint) == "" {
		return "startPoint and endPoint are required"
	}
	if requireSeats && (req.SeatCount < 1 || req.SeatCount > maxSeatCount) {
		return "seatCount must be between 1 and " + strconv.Itoa(maxSeatCount)
	}
	if req.PriceCents == 0 {
		return "priceCents must be positive"
	}
	return ""
}

// CreateBus handles POST /v1/owner/buses.
func (h *OwnerBusHandler) CreateBus(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req busReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "code": codeInvalidInput})
	}
	if msg := req.validate(true); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": codeInvalidInput})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	b := &model.Bus{
		OwnerID:      ownerID,
		Registration: strings.ToUpper(strings.TrimSpace(req.Registration)),
		Service:      strings.ToUpper(strings.TrimSpace(req.Service)),
		RouteNumber:  strings.TrimSpace(req.RouteNumber),
		RouteName:    strings.TrimSpace(req.RouteName),
		StartPoint:   strings.TrimSpace(req.StartPoint),
		EndPoint:     strings.TrimSpace(req.EndPoint),
		SeatCount:    req.SeatCount,
		PriceCents:   req.PriceCents,
		IsActive:     active,
	}
	if err := h.BusRepo.Create(c.Request().Context(), b); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to create bus", "code": codeStorageUnavailable})
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": toBusResp(b)})
}

// ListBuses handles GET /v1/owner/buses.
func (h *OwnerBusHandler) ListBuses(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	buses, err := h.BusRepo.ListByOwner(c.Request().Context(), ownerID)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to list buses", "code": codeStorageUnavailable})
	}
	items := make([]busResp, 0, len(buses))
	for i := range buses {
		items = append(items, toBusResp(&buses[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdateBus handles PUT /v1/owner/buses/:id. The seat count is fixed at
// creation; requests that try to change it are rejected because booked
// seat numbers reference the original range.
func (h *OwnerBusHandler) UpdateBus(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || busID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id", "code": codeInvalidInput})
	}
	var req busReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "code": codeInvalidInput})
	}
	if msg := req.validate(false); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": codeInvalidInput})
	}
	ctx := c.Request().Context()
	existing, err := h.BusRepo.GetByIDAndOwner(ctx, busID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found", "code": codeNotFound})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
	}
	if req.SeatCount != 0 && req.SeatCount != existing.SeatCount {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatCount cannot be changed", "code": codeInvalidInput})
	}
	existing.Registration = strings.ToUpper(strings.TrimSpace(req.Registration))
	existing.Service = strings.ToUpper(strings.TrimSpace(req.Service))
	existing.RouteNumber = strings.TrimSpace(req.RouteNumber)
	existing.RouteName = strings.TrimSpace(req.RouteName)
	existing.StartPoint = strings.TrimSpace(req.StartPoint)
	existing.EndPoint = strings.TrimSpace(req.EndPoint)
	existing.PriceCents = req.PriceCents
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := h.BusRepo.Update(ctx, ownerID, existing); err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found", "code": codeNotFound})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to update bus", "code": codeStorageUnavailable})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": toBusResp(existing)})
}

// DeleteBus handles DELETE /v1/owner/buses/:id. A bus with active
// bookings cannot be deleted; owners should deactivate it instead so
// already sold seats stay honored.
func (h *OwnerBusHandler) DeleteBus(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	busID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || busID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id", "code": codeInvalidInput})
	}
	ctx := c.Request().Context()
	if _, err := h.BusRepo.GetByIDAndOwner(ctx, busID, ownerID); err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found", "code": codeNotFound})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
	}
	active, err := h.BookingRepo.HasActiveForBus(ctx, busID)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database error", "code": codeStorageUnavailable})
	}
	if active {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bus has active bookings, deactivate it instead", "code": codeInvalidState})
	}
	if err := h.BusRepo.Delete(ctx, busID, ownerID); err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found", "code": codeNotFound})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "failed to delete bus", "code": codeStorageUnavailable})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
