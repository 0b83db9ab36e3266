package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/seatmap"
)

// BookingHandler exposes the ledger over HTTP.
type BookingHandler struct {
	Ledger  *booking.Ledger
	Catalog Catalog
	Log     *zap.Logger
}

func NewBookingHandler(ledger *booking.Ledger, cat Catalog, log *zap.Logger) *BookingHandler {
	if ledger == nil || cat.Movies == nil || cat.Theaters == nil || cat.Shows == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: ledger, Catalog: cat, Log: log}
}

type seatMapResp struct {
	ShowID string           `json:"show_id"`
	Seats  [][]seatmap.Seat `json:"seats"`
	Price  decimal.Decimal  `json:"price"`
}

// SeatMap returns the occupancy grid of a show.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	show, grid, err := h.Ledger.SeatMap(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, seatMapResp{ShowID: show.ID, Seats: grid, Price: show.Price})
}

type createBookingReq struct {
	ShowID string   `json:"show_id"`
	Seats  []string `json:"seats"`
}

func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ShowID == "" {
		return badRequest(c, "show_id required")
	}
	b, err := h.Ledger.Create(c.Request().Context(), middleware.Identity(c), req.ShowID, req.Seats)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	if _, err := h.Ledger.Cancel(c.Request().Context(), middleware.Identity(c), c.Param("id")); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled successfully"})
}

// Mine lists the caller's bookings joined with show, movie and theater.
func (h *BookingHandler) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	bs, err := h.Ledger.ListMine(ctx, middleware.Identity(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	j := newJoiner(h.Catalog)
	out := make([]model.BookingDetail, 0, len(bs))
	for _, b := range bs {
		out = append(out, j.detail(ctx, b))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one booking to its owner or an admin.
func (h *BookingHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := h.Ledger.Get(ctx, middleware.Identity(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, newJoiner(h.Catalog).detail(ctx, *b))
}

// joiner memoizes catalog lookups for one response. Missing or failing
// lookups leave the field nil.
type joiner struct {
	cat      Catalog
	shows    map[string]*model.Show
	movies   map[string]*model.Movie
	theaters map[string]*model.Theater
}

func newJoiner(cat Catalog) *joiner {
	return &joiner{
		cat:      cat,
		shows:    map[string]*model.Show{},
		movies:   map[string]*model.Movie{},
		theaters: map[string]*model.Theater{},
	}
}

func (j *joiner) detail(ctx context.Context, b model.Booking) model.BookingDetail {
	d := model.BookingDetail{Booking: b}
	d.Show = lookup(ctx, j.shows, b.ShowID, j.cat.Shows.GetByID)
	if d.Show != nil {
		d.Movie = lookup(ctx, j.movies, d.Show.MovieID, j.cat.Movies.GetByID)
		d.Theater = lookup(ctx, j.theaters, d.Show.TheaterID, j.cat.Theaters.GetByID)
	}
	return d
}

func lookup[T any](ctx context.Context, memo map[string]*T, id string, get func(context.Context, string) (*T, error)) *T {
	if v, ok := memo[id]; ok {
		return v
	}
	v, err := get(ctx, id)
	if err != nil {
		v = nil
	}
	memo[id] = v
	return v
}
