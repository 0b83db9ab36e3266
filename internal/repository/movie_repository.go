package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// MovieRepo manages the movies table.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieCols = `id, title, description, genre, duration, rating, poster_url, backdrop_url, release_date, created_at`

func scanMovie(sc interface{ Scan(...any) error }) (model.Movie, error) {
	var m model.Movie
	err := sc.Scan(&m.ID, &m.Title, &m.Description, &m.Genre, &m.Duration, &m.Rating,
		&m.PosterURL, &m.BackdropURL, &m.ReleaseDate, &m.CreatedAt)
	return m, err
}

// List returns all movies ordered by title.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+movieCols+` FROM movies ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MovieRepo) GetByID(ctx context.Context, id string) (*model.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx, `SELECT `+movieCols+` FROM movies WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (` + movieCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.Title, m.Description, m.Genre, m.Duration, m.Rating,
		m.PosterURL, m.BackdropURL, m.ReleaseDate, m.CreatedAt)
	return err
}

// Update overwrites every editable column. CreatedAt is left untouched.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, description = ?, genre = ?, duration = ?, rating = ?,
	           poster_url = ?, backdrop_url = ?, release_date = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, m.Title, m.Description, m.Genre, m.Duration, m.Rating,
		m.PosterURL, m.BackdropURL, m.ReleaseDate, m.ID); err != nil {
		return err
	}
	// rows affected is 0 for an unchanged row, so re-read to tell that
	// apart from a missing one
	cur, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	m.CreatedAt = cur.CreatedAt
	return nil
}

func (r *MovieRepo) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "movies", id)
}

func (r *MovieRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, "movies")
}

func deleteByID(ctx context.Context, db *sql.DB, table, id string) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		if mysqlCode(err) == errRowReferenced {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func countRows(ctx context.Context, db *sql.DB, table string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}
