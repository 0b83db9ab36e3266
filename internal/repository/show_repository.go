package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ShowRepo manages persistence for shows. Dates and times are stored as
// the strings clients send (YYYY-MM-DD, HH:MM) so listings sort lexically.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

const showCols = `id, movie_id, theater_id, screen_number, show_date, start_time, end_time, price, created_at`

func scanShow(sc interface{ Scan(...any) error }) (model.Show, error) {
	var s model.Show
	err := sc.Scan(&s.ID, &s.MovieID, &s.TheaterID, &s.ScreenNumber, &s.Date, &s.StartTime, &s.EndTime, &s.Price, &s.CreatedAt)
	return s, err
}

// List returns shows matching the filter ordered by date then start time.
func (r *ShowRepo) List(ctx context.Context, f model.ShowFilter) ([]model.Show, error) {
	var (
		where []string
		args  []any
	)
	if f.MovieID != "" {
		where = append(where, "movie_id = ?")
		args = append(args, f.MovieID)
	}
	if f.TheaterID != "" {
		where = append(where, "theater_id = ?")
		args = append(args, f.TheaterID)
	}
	if f.Date != "" {
		where = append(where, "show_date = ?")
		args = append(args, f.Date)
	}
	q := `SELECT ` + showCols + ` FROM shows`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY show_date, start_time, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Show, 0)
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByID retrieves a show by its ID. It returns ErrNotFound if there is
// no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	s, err := scanShow(r.db.QueryRowContext(ctx, `SELECT `+showCols+` FROM shows WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	const q = `INSERT INTO shows (` + showCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.MovieID, s.TheaterID, s.ScreenNumber, s.Date, s.StartTime, s.EndTime, s.Price, s.CreatedAt)
	return err
}

func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	const q = `UPDATE shows SET movie_id = ?, theater_id = ?, screen_number = ?, show_date = ?, start_time = ?, end_time = ?, price = ?
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, s.MovieID, s.TheaterID, s.ScreenNumber, s.Date, s.StartTime, s.EndTime, s.Price, s.ID); err != nil {
		return err
	}
	cur, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	s.CreatedAt = cur.CreatedAt
	return nil
}

// Delete removes a show. Shows that still have bookings cannot be
// deleted and yield ErrConflict.
func (r *ShowRepo) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "shows", id)
}

func (r *ShowRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, "shows")
}
