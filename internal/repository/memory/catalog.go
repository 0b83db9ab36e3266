// Package memory provides in-process stores with the same contracts as
// the MySQL repositories. They back tests and the --memory serve mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// MovieStore keeps movies in a map.
type MovieStore struct {
	mu     sync.RWMutex
	movies map[string]model.Movie
}

func NewMovieStore() *MovieStore {
	return &MovieStore{movies: make(map[string]model.Movie)}
}

func (s *MovieStore) List(ctx context.Context) ([]model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *MovieStore) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *MovieStore) Create(ctx context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[m.ID] = *m
	return nil
}

func (s *MovieStore) Update(ctx context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.movies[m.ID]
	if !ok {
		return repository.ErrNotFound
	}
	m.CreatedAt = old.CreatedAt
	s.movies[m.ID] = *m
	return nil
}

func (s *MovieStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.movies, id)
	return nil
}

func (s *MovieStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movies), nil
}

// TheaterStore keeps theaters in a map. Screens are copied on the way
// in and out so callers cannot mutate stored layouts.
type TheaterStore struct {
	mu       sync.RWMutex
	theaters map[string]model.Theater
}

func NewTheaterStore() *TheaterStore {
	return &TheaterStore{theaters: make(map[string]model.Theater)}
}

func copyTheater(t model.Theater) model.Theater {
	screens := make([]model.Screen, len(t.Screens))
	for i, sc := range t.Screens {
		rows := make([]string, len(sc.Layout.Rows))
		copy(rows, sc.Layout.Rows)
		sc.Layout.Rows = rows
		screens[i] = sc
	}
	t.Screens = screens
	return t
}

func (s *TheaterStore) List(ctx context.Context) ([]model.Theater, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Theater, 0, len(s.theaters))
	for _, t := range s.theaters {
		out = append(out, copyTheater(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *TheaterStore) GetByID(ctx context.Context, id string) (*model.Theater, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.theaters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := copyTheater(t)
	return &cp, nil
}

func (s *TheaterStore) Create(ctx context.Context, t *model.Theater) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.theaters[t.ID] = copyTheater(*t)
	return nil
}

func (s *TheaterStore) Update(ctx context.Context, t *model.Theater) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.theaters[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	t.CreatedAt = old.CreatedAt
	s.theaters[t.ID] = copyTheater(*t)
	return nil
}

func (s *TheaterStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.theaters[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.theaters, id)
	return nil
}

func (s *TheaterStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.theaters), nil
}

// ShowStore keeps shows in a map.
type ShowStore struct {
	mu    sync.RWMutex
	shows map[string]model.Show
}

func NewShowStore() *ShowStore {
	return &ShowStore{shows: make(map[string]model.Show)}
}

func (s *ShowStore) List(ctx context.Context, f model.ShowFilter) ([]model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Show, 0)
	for _, sh := range s.shows {
		if f.MovieID != "" && sh.MovieID != f.MovieID {
			continue
		}
		if f.TheaterID != "" && sh.TheaterID != f.TheaterID {
			continue
		}
		if f.Date != "" && sh.Date != f.Date {
			continue
		}
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *ShowStore) GetByID(ctx context.Context, id string) (*model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sh, nil
}

func (s *ShowStore) Create(ctx context.Context, sh *model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows[sh.ID] = *sh
	return nil
}

func (s *ShowStore) Update(ctx context.Context, sh *model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.shows[sh.ID]
	if !ok {
		return repository.ErrNotFound
	}
	sh.CreatedAt = old.CreatedAt
	s.shows[sh.ID] = *sh
	return nil
}

func (s *ShowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.shows, id)
	return nil
}

func (s *ShowStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shows), nil
}
