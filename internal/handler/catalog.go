package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// CatalogHandler serves the public, read-only catalog.
type CatalogHandler struct {
	Catalog
	Log *zap.Logger
}

func NewCatalogHandler(cat Catalog, log *zap.Logger) *CatalogHandler {
	if cat.Movies == nil || cat.Theaters == nil || cat.Shows == nil {
		panic("nil store passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: cat, Log: log}
}

func (h *CatalogHandler) ListMovies(c echo.Context) error {
	movies, err := h.Movies.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, movies)
}

func (h *CatalogHandler) GetMovie(c echo.Context) error {
	m, err := h.Movies.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "movie")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *CatalogHandler) ListTheaters(c echo.Context) error {
	ts, err := h.Theaters.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ts)
}

func (h *CatalogHandler) GetTheater(c echo.Context) error {
	t, err := h.Theaters.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "theater")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// ListShows filters by the optional movie_id, theater_id and date query
// parameters.
func (h *CatalogHandler) ListShows(c echo.Context) error {
	f := model.ShowFilter{
		MovieID:   c.QueryParam("movie_id"),
		TheaterID: c.QueryParam("theater_id"),
		Date:      c.QueryParam("date"),
	}
	if f.Date != "" {
		if _, err := time.Parse(time.DateOnly, f.Date); err != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
	}
	shows, err := h.Shows.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, shows)
}

func (h *CatalogHandler) GetShow(c echo.Context) error {
	s, err := h.Shows.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "show")
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}
