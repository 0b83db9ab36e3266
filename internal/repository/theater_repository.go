package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// TheaterRepo manages theaters and their screens. Screens live in
// theater_screens with the row labels stored as a JSON array.
type TheaterRepo struct {
	db *sql.DB
}

func NewTheaterRepo(db *sql.DB) *TheaterRepo { return &TheaterRepo{db: db} }

func (r *TheaterRepo) List(ctx context.Context) ([]model.Theater, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, location, created_at FROM theaters ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Theater, 0)
	index := map[string]int{}
	for rows.Next() {
		var t model.Theater
		if err := rows.Scan(&t.ID, &t.Name, &t.Location, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Screens = []model.Screen{}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	srows, err := r.db.QueryContext(ctx, `SELECT theater_id, screen_number, total_seats, seat_rows, seats_per_row
	                                      FROM theater_screens ORDER BY theater_id, screen_number`)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		theaterID, sc, err := scanScreen(srows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[theaterID]; ok {
			out[i].Screens = append(out[i].Screens, sc)
		}
	}
	return out, srows.Err()
}

func scanScreen(sc interface{ Scan(...any) error }) (string, model.Screen, error) {
	var (
		theaterID string
		s         model.Screen
		rowsJSON  []byte
	)
	if err := sc.Scan(&theaterID, &s.ScreenNumber, &s.TotalSeats, &rowsJSON, &s.Layout.SeatsPerRow); err != nil {
		return "", s, err
	}
	if err := json.Unmarshal(rowsJSON, &s.Layout.Rows); err != nil {
		return "", s, fmt.Errorf("decode seat_rows for %s/%d: %w", theaterID, s.ScreenNumber, err)
	}
	return theaterID, s, nil
}

func (r *TheaterRepo) GetByID(ctx context.Context, id string) (*model.Theater, error) {
	var t model.Theater
	err := r.db.QueryRowContext(ctx, `SELECT id, name, location, created_at FROM theaters WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Location, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT theater_id, screen_number, total_seats, seat_rows, seats_per_row
	                                     FROM theater_screens WHERE theater_id = ? ORDER BY screen_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t.Screens = []model.Screen{}
	for rows.Next() {
		_, sc, err := scanScreen(rows)
		if err != nil {
			return nil, err
		}
		t.Screens = append(t.Screens, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &t, nil
}

func insertScreensTx(ctx context.Context, tx *sql.Tx, t *model.Theater) error {
	for _, s := range t.Screens {
		rowsJSON, err := json.Marshal(s.Layout.Rows)
		if err != nil {
			return err
		}
		const q = `INSERT INTO theater_screens (theater_id, screen_number, total_seats, seat_rows, seats_per_row) VALUES (?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, q, t.ID, s.ScreenNumber, s.TotalSeats, rowsJSON, s.Layout.SeatsPerRow); err != nil {
			return err
		}
	}
	return nil
}

func (r *TheaterRepo) Create(ctx context.Context, t *model.Theater) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `INSERT INTO theaters (id, name, location, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Location, t.CreatedAt); err != nil {
		return err
	}
	if err := insertScreensTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

// Update replaces the theater's name, location and full screen list.
func (r *TheaterRepo) Update(ctx context.Context, t *model.Theater) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var createdAt sql.NullTime
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM theaters WHERE id = ? FOR UPDATE`, t.ID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE theaters SET name = ?, location = ? WHERE id = ?`, t.Name, t.Location, t.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM theater_screens WHERE theater_id = ?`, t.ID); err != nil {
		return err
	}
	if err := insertScreensTx(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	t.CreatedAt = createdAt.Time
	return nil
}

func (r *TheaterRepo) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "theaters", id)
}

func (r *TheaterRepo) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, "theaters")
}
