package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/seatmap"
)

// AdminHandler serves catalog management and reporting for admins.
type AdminHandler struct {
	Catalog
	Ledger   *booking.Ledger
	Bookings Summarizer
	Log      *zap.Logger
}

func NewAdminHandler(cat Catalog, ledger *booking.Ledger, bookings Summarizer, log *zap.Logger) *AdminHandler {
	if cat.Movies == nil || cat.Theaters == nil || cat.Shows == nil || ledger == nil || bookings == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Catalog: cat, Ledger: ledger, Bookings: bookings, Log: log}
}

type movieReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Duration    int    `json:"duration"`
	Rating      string `json:"rating"`
	PosterURL   string `json:"poster_url"`
	BackdropURL string `json:"backdrop_url"`
	ReleaseDate string `json:"release_date"`
}

func (r movieReq) validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return errors.New("title required")
	case r.Duration <= 0:
		return errors.New("duration must be positive")
	}
	if r.ReleaseDate != "" {
		if _, err := time.Parse(time.DateOnly, r.ReleaseDate); err != nil {
			return errors.New("release_date must be YYYY-MM-DD")
		}
	}
	return nil
}

func (r movieReq) apply(m *model.Movie) {
	m.Title = strings.TrimSpace(r.Title)
	m.Description = r.Description
	m.Genre = r.Genre
	m.Duration = r.Duration
	m.Rating = r.Rating
	m.PosterURL = r.PosterURL
	m.BackdropURL = r.BackdropURL
	m.ReleaseDate = r.ReleaseDate
}

func (h *AdminHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := req.validate(); err != nil {
		return badRequest(c, err.Error())
	}
	m := &model.Movie{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	req.apply(m)
	if err := h.Movies.Create(c.Request().Context(), m); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *AdminHandler) UpdateMovie(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := req.validate(); err != nil {
		return badRequest(c, err.Error())
	}
	m := &model.Movie{ID: c.Param("id")}
	req.apply(m)
	if err := h.Movies.Update(c.Request().Context(), m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "movie")
		}
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *AdminHandler) DeleteMovie(c echo.Context) error {
	return h.remove(c, "movie", h.Movies.Delete)
}

type theaterReq struct {
	Name     string         `json:"name"`
	Location string         `json:"location"`
	Screens  []model.Screen `json:"screens"`
}

// screens normalizes row labels, validates every layout and derives
// total_seats from it.
func (r theaterReq) screens() ([]model.Screen, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, errors.New("name required")
	}
	if len(r.Screens) == 0 {
		return nil, errors.New("at least one screen required")
	}
	seen := make(map[int]bool, len(r.Screens))
	out := make([]model.Screen, 0, len(r.Screens))
	for _, s := range r.Screens {
		if s.ScreenNumber <= 0 {
			return nil, errors.New("screen_number must be positive")
		}
		if seen[s.ScreenNumber] {
			return nil, fmt.Errorf("duplicate screen_number %d", s.ScreenNumber)
		}
		seen[s.ScreenNumber] = true
		rows := make([]string, len(s.Layout.Rows))
		for i, row := range s.Layout.Rows {
			rows[i] = seatmap.NormalizeRow(row)
		}
		s.Layout.Rows = rows
		if err := seatmap.Validate(s.Layout); err != nil {
			return nil, fmt.Errorf("screen %d: %w", s.ScreenNumber, err)
		}
		s.TotalSeats = len(s.Layout.Rows) * s.Layout.SeatsPerRow
		out = append(out, s)
	}
	return out, nil
}

func (h *AdminHandler) CreateTheater(c echo.Context) error {
	var req theaterReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	screens, err := req.screens()
	if err != nil {
		return badRequest(c, err.Error())
	}
	t := &model.Theater{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		Location:  req.Location,
		Screens:   screens,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Theaters.Create(c.Request().Context(), t); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// UpdateTheater replaces the theater including its screens. A screen that
// existing shows still reference cannot be dropped.
func (h *AdminHandler) UpdateTheater(c echo.Context) error {
	var req theaterReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	screens, err := req.screens()
	if err != nil {
		return badRequest(c, err.Error())
	}
	t := &model.Theater{ID: c.Param("id"), Name: strings.TrimSpace(req.Name), Location: req.Location, Screens: screens}

	ctx := c.Request().Context()
	shows, err := h.Shows.List(ctx, model.ShowFilter{TheaterID: t.ID})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	for _, s := range shows {
		if _, ok := t.Screen(s.ScreenNumber); !ok {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": fmt.Sprintf("screen %d is used by show %s", s.ScreenNumber, s.ID),
			})
		}
	}
	if err := h.Theaters.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "theater")
		}
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *AdminHandler) DeleteTheater(c echo.Context) error {
	return h.remove(c, "theater", h.Theaters.Delete)
}

type showReq struct {
	MovieID      string          `json:"movie_id"`
	TheaterID    string          `json:"theater_id"`
	ScreenNumber int             `json:"screen_number"`
	Date         string          `json:"date"`
	StartTime    string          `json:"start_time"`
	EndTime      string          `json:"end_time"`
	Price        decimal.Decimal `json:"price"`
}

// show checks the request against the catalog and returns the show it
// describes. The returned error is meant for the client.
func (h *AdminHandler) show(c echo.Context, req showReq) (*model.Show, error) {
	if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
		return nil, errors.New("date must be YYYY-MM-DD")
	}
	for _, v := range []string{req.StartTime, req.EndTime} {
		if _, err := time.Parse("15:04", v); err != nil {
			return nil, errors.New("start_time and end_time must be HH:MM")
		}
	}
	if !req.Price.IsPositive() {
		return nil, errors.New("price must be positive")
	}
	ctx := c.Request().Context()
	if _, err := h.Movies.GetByID(ctx, req.MovieID); err != nil {
		return nil, errors.New("movie not found")
	}
	t, err := h.Theaters.GetByID(ctx, req.TheaterID)
	if err != nil {
		return nil, errors.New("theater not found")
	}
	if _, ok := t.Screen(req.ScreenNumber); !ok {
		return nil, fmt.Errorf("theater has no screen %d", req.ScreenNumber)
	}
	return &model.Show{
		MovieID:      req.MovieID,
		TheaterID:    req.TheaterID,
		ScreenNumber: req.ScreenNumber,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Price:        req.Price,
	}, nil
}

func (h *AdminHandler) CreateShow(c echo.Context) error {
	var req showReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	s, err := h.show(c, req)
	if err != nil {
		return badRequest(c, err.Error())
	}
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()
	if err := h.Shows.Create(c.Request().Context(), s); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// UpdateShow edits a show. Moving it off its screen while it has active
// bookings is refused, since the seats would no longer exist.
func (h *AdminHandler) UpdateShow(c echo.Context) error {
	var req showReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx := c.Request().Context()
	cur, err := h.Shows.GetByID(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "show")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	s, err := h.show(c, req)
	if err != nil {
		return badRequest(c, err.Error())
	}
	s.ID = cur.ID
	if s.TheaterID != cur.TheaterID || s.ScreenNumber != cur.ScreenNumber {
		_, grid, err := h.Ledger.SeatMap(ctx, cur.ID)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		if anyBooked(grid) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "show has active bookings"})
		}
	}
	if err := h.Shows.Update(ctx, s); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "show")
		}
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

func anyBooked(grid [][]seatmap.Seat) bool {
	for _, row := range grid {
		for _, s := range row {
			if s.Status == seatmap.StatusBooked {
				return true
			}
		}
	}
	return false
}

func (h *AdminHandler) DeleteShow(c echo.Context) error {
	return h.remove(c, "show", h.Shows.Delete)
}

func (h *AdminHandler) remove(c echo.Context, what string, del func(ctx context.Context, id string) error) error {
	err := del(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": strings.ToUpper(what[:1]) + what[1:] + " deleted successfully"})
	case errors.Is(err, repository.ErrNotFound):
		return notFound(c, what)
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": what + " is still referenced"})
	}
	return respondError(c, h.Log, err)
}

// ListBookings returns every booking, newest first.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	bs, err := h.Ledger.ListAll(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, bs)
}

type analyticsResp struct {
	model.BookingSummary
	TotalMovies   int `json:"total_movies"`
	TotalTheaters int `json:"total_theaters"`
	TotalShows    int `json:"total_shows"`
}

func (h *AdminHandler) Analytics(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		resp analyticsResp
		err  error
	)
	if resp.BookingSummary, err = h.Bookings.Summary(ctx); err != nil {
		return respondError(c, h.Log, err)
	}
	if resp.TotalMovies, err = h.Movies.Count(ctx); err != nil {
		return respondError(c, h.Log, err)
	}
	if resp.TotalTheaters, err = h.Theaters.Count(ctx); err != nil {
		return respondError(c, h.Log, err)
	}
	if resp.TotalShows, err = h.Shows.Count(ctx); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}
