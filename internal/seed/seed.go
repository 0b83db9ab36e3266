// Package seed loads the demo catalog: an admin and a test account, four
// movies, two theaters and a week of shows.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

type (
	userCreator    interface{ Create(context.Context, *model.User) error }
	movieCreator   interface{ Create(context.Context, *model.Movie) error }
	theaterCreator interface{ Create(context.Context, *model.Theater) error }
	showCreator    interface{ Create(context.Context, *model.Show) error }
)

// Stores receives the seeded records. Clearing existing data is the
// caller's job.
type Stores struct {
	Users    userCreator
	Movies   movieCreator
	Theaters theaterCreator
	Shows    showCreator
}

// Options controls the generated data.
type Options struct {
	// Today is the first show date; zero means the current UTC day.
	Today      time.Time
	BcryptCost int
	Log        *zap.Logger
}

// Result counts what was inserted.
type Result struct {
	Users    int
	Movies   int
	Theaters int
	Shows    int
}

// Days of shows generated from Options.Today.
const Days = 7

var accounts = []struct {
	email, name, password, role string
}{
	{"admin@cinebook.com", "Admin User", "admin123", model.RoleAdmin},
	{"user@test.com", "Test User", "password123", model.RoleUser},
}

var movies = []model.Movie{
	{
		Title:       "Quantum Nexus",
		Description: "A thrilling sci-fi adventure that explores parallel dimensions and the consequences of quantum entanglement. A team of scientists must prevent a catastrophic collapse of reality itself.",
		Genre:       "Sci-Fi",
		Duration:    142,
		Rating:      "PG-13",
		PosterURL:   "https://images.unsplash.com/photo-1679573105903-724c7c2f9074",
		BackdropURL: "https://images.unsplash.com/photo-1653045474061-075ba29db54f",
		ReleaseDate: "2025-01-15",
	},
	{
		Title:       "Velocity Rush",
		Description: "High-octane action meets street racing in this adrenaline-fueled thriller. A former champion returns to settle old scores in the underground racing scene.",
		Genre:       "Action",
		Duration:    128,
		Rating:      "PG-13",
		PosterURL:   "https://images.unsplash.com/photo-1551651031-12f795db9e1",
		BackdropURL: "https://images.unsplash.com/photo-1653045474061-075ba29db54f",
		ReleaseDate: "2025-02-01",
	},
	{
		Title:       "Crimson Shadows",
		Description: "A psychological thriller about a detective haunted by unsolved cases. As reality blurs, she must confront her darkest fears to uncover the truth.",
		Genre:       "Thriller",
		Duration:    115,
		Rating:      "R",
		PosterURL:   "https://images.unsplash.com/photo-1696479670605-aeeb206e1fcb",
		BackdropURL: "https://images.unsplash.com/photo-1696479670605-aeeb206e1fcb",
		ReleaseDate: "2025-01-22",
	},
	{
		Title:       "Starbound Heroes",
		Description: "An epic space adventure where unlikely heroes band together to save the galaxy from an ancient cosmic threat. Friendship, courage, and destiny collide.",
		Genre:       "Adventure",
		Duration:    156,
		Rating:      "PG",
		PosterURL:   "https://images.pexels.com/photos/8104843/pexels-photo-8104843.jpeg",
		BackdropURL: "https://images.unsplash.com/photo-1653045474061-075ba29db54f",
		ReleaseDate: "2025-03-05",
	},
}

func screen(number int, rows ...string) model.Screen {
	return model.Screen{
		ScreenNumber: number,
		TotalSeats:   len(rows) * 10,
		Layout:       model.SeatLayout{Rows: rows, SeatsPerRow: 10},
	}
}

var theaters = []model.Theater{
	{
		Name:     "Grand Cinema Plaza",
		Location: "Downtown, Main Street",
		Screens:  []model.Screen{screen(1, "A", "B", "C", "D", "E"), screen(2, "A", "B", "C", "D")},
	},
	{
		Name:     "Starlight Theater",
		Location: "Westside, Oak Avenue",
		Screens:  []model.Screen{screen(1, "A", "B", "C", "D", "E", "F")},
	},
}

var slots = []struct {
	start, end string
	price      decimal.Decimal
}{
	{"14:00", "16:30", decimal.RequireFromString("12.50")},
	{"18:00", "20:30", decimal.RequireFromString("15.00")},
}

// Run inserts the demo data. Shows run on screen 1 of every theater for
// the first two movies, twice a day.
func Run(ctx context.Context, st Stores, opt Options) (Result, error) {
	log := logger.OrNop(opt.Log).Named("seed")
	now := time.Now().UTC()
	today := opt.Today
	if today.IsZero() {
		today = now
	}
	var res Result

	for _, a := range accounts {
		hash, err := utils.HashPassword(a.password, opt.BcryptCost)
		if err != nil {
			return res, fmt.Errorf("hash %s: %w", a.email, err)
		}
		u := &model.User{ID: uuid.NewString(), Email: a.email, Name: a.name, PasswordHash: hash, Role: a.role, CreatedAt: now}
		if err := st.Users.Create(ctx, u); err != nil {
			return res, fmt.Errorf("create user %s: %w", a.email, err)
		}
		res.Users++
		log.Info("account created", zap.String("email", a.email), zap.String("role", a.role))
	}

	ms := make([]model.Movie, len(movies))
	for i, m := range movies {
		m.ID = uuid.NewString()
		m.CreatedAt = now
		if err := st.Movies.Create(ctx, &m); err != nil {
			return res, fmt.Errorf("create movie %q: %w", m.Title, err)
		}
		ms[i] = m
		res.Movies++
	}

	ts := make([]model.Theater, len(theaters))
	for i, t := range theaters {
		t.ID = uuid.NewString()
		t.CreatedAt = now
		t.Screens = append([]model.Screen(nil), t.Screens...)
		if err := st.Theaters.Create(ctx, &t); err != nil {
			return res, fmt.Errorf("create theater %q: %w", t.Name, err)
		}
		ts[i] = t
		res.Theaters++
	}

	for d := 0; d < Days; d++ {
		date := today.AddDate(0, 0, d).Format(time.DateOnly)
		for _, m := range ms[:2] {
			for _, t := range ts {
				for _, sl := range slots {
					sh := &model.Show{
						ID:           uuid.NewString(),
						MovieID:      m.ID,
						TheaterID:    t.ID,
						ScreenNumber: 1,
						Date:         date,
						StartTime:    sl.start,
						EndTime:      sl.end,
						Price:        sl.price,
						CreatedAt:    now,
					}
					if err := st.Shows.Create(ctx, sh); err != nil {
						return res, fmt.Errorf("create show %s %s: %w", date, sl.start, err)
					}
					res.Shows++
				}
			}
		}
	}

	log.Info("seed complete",
		zap.Int("users", res.Users),
		zap.Int("movies", res.Movies),
		zap.Int("theaters", res.Theaters),
		zap.Int("shows", res.Shows),
	)
	return res, nil
}
