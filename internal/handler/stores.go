package handler

import (
	"context"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// MovieStore is satisfied by repository.MovieRepo and memory.MovieStore.
type MovieStore interface {
	List(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id string) (*model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
	Update(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type TheaterStore interface {
	List(ctx context.Context) ([]model.Theater, error)
	GetByID(ctx context.Context, id string) (*model.Theater, error)
	Create(ctx context.Context, t *model.Theater) error
	Update(ctx context.Context, t *model.Theater) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type ShowStore interface {
	List(ctx context.Context, f model.ShowFilter) ([]model.Show, error)
	GetByID(ctx context.Context, id string) (*model.Show, error)
	Create(ctx context.Context, s *model.Show) error
	Update(ctx context.Context, s *model.Show) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Summarizer aggregates bookings for the admin dashboard.
type Summarizer interface {
	Summary(ctx context.Context) (model.BookingSummary, error)
}

// Catalog groups the stores the catalog and admin handlers share.
type Catalog struct {
	Movies   MovieStore
	Theaters TheaterStore
	Shows    ShowStore
}
