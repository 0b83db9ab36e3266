package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/payment"
	"github.com/iliyamo/cinema-booking/internal/realtime"
	"github.com/iliyamo/cinema-booking/internal/repository/memory"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

const jwtSecret = "handler-test-secret"

type stubGateway struct {
	webhook payment.WebhookResult
}

func (g *stubGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (payment.Session, error) {
	return payment.Session{ID: "cs_" + req.BookingID, URL: "https://pay.example/cs_" + req.BookingID}, nil
}

func (g *stubGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	return false, nil
}

func (g *stubGateway) ParseWebhook(payload []byte, signature string) (payment.WebhookResult, error) {
	if signature != "ok" {
		return payment.WebhookResult{}, payment.ErrInvalidWebhook
	}
	return g.webhook, nil
}

type app struct {
	e       *echo.Echo
	hub     *realtime.Hub
	ledger  *booking.Ledger
	gateway *stubGateway
	users   *memory.UserStore
	tokens  map[string]string
}

func newApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()

	cat := handler.Catalog{
		Movies:   memory.NewMovieStore(),
		Theaters: memory.NewTheaterStore(),
		Shows:    memory.NewShowStore(),
	}
	require.NoError(t, cat.Movies.Create(ctx, &model.Movie{ID: "m1", Title: "The Quantum Paradox", Duration: 148}))
	require.NoError(t, cat.Theaters.Create(ctx, &model.Theater{
		ID: "t1", Name: "Grand Cinema Plaza", Location: "Downtown",
		Screens: []model.Screen{{ScreenNumber: 1, TotalSeats: 6, Layout: model.SeatLayout{Rows: []string{"A", "B"}, SeatsPerRow: 3}}},
	}))
	require.NoError(t, cat.Shows.Create(ctx, &model.Show{
		ID: "s1", MovieID: "m1", TheaterID: "t1", ScreenNumber: 1,
		Date: "2025-01-15", StartTime: "14:00", EndTime: "16:30",
		Price: decimal.RequireFromString("12.50"),
	}))

	users := memory.NewUserStore()
	tokens := map[string]string{}
	for _, u := range []model.User{
		{ID: "u1", Email: "u1@test.com", Name: "One", Role: model.RoleUser},
		{ID: "u2", Email: "u2@test.com", Name: "Two", Role: model.RoleUser},
		{ID: "admin", Email: "admin@test.com", Name: "Admin", Role: model.RoleAdmin},
	} {
		hash, err := utils.HashPassword("password123", bcrypt.MinCost)
		require.NoError(t, err)
		u.PasswordHash = hash
		require.NoError(t, users.Create(ctx, &u))
		at, err := utils.NewAccessToken(jwtSecret, u.ID, u.Role, time.Hour)
		require.NoError(t, err)
		tokens[u.ID] = at.Token
	}

	bookings := memory.NewBookingStore()
	hub := realtime.NewHub(8, nil)
	t.Cleanup(hub.Close)
	ledger := booking.NewLedger(booking.Deps{
		Shows:    cat.Shows,
		Theaters: cat.Theaters,
		Store:    bookings,
		Notifier: hub,
	})
	gw := &stubGateway{}
	payments := payment.NewService(gw, ledger, memory.NewPaymentStore(), "usd", nil)

	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 60, BcryptCost: bcrypt.MinCost}
	noLimit := middleware.NewTokenBucket(config.RateLimitConfig{}, nil, nil)
	noCache := middleware.NewRedisCache(config.CacheConfig{}, nil, nil)

	e := router.New([]string{"*"}, nil)
	router.RegisterRoutes(e, nil)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, nil), jwtSecret, noLimit)
	router.RegisterCatalog(e, handler.NewCatalogHandler(cat, nil), noCache)
	router.RegisterBookings(e, handler.NewBookingHandler(ledger, cat, nil), jwtSecret, noLimit)
	router.RegisterPayments(e, handler.NewPaymentHandler(payments, nil), jwtSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(cat, ledger, bookings, nil), jwtSecret)
	router.RegisterRealtime(e, handler.NewSeatStream(hub, cat.Shows, handler.SeatStreamConfig{
		WriteTimeout: time.Second,
		PingInterval: time.Second,
	}, nil))

	return &app{e: e, hub: hub, ledger: ledger, gateway: gw, users: users, tokens: tokens}
}

// do sends a request as user (empty for anonymous) and returns the recorder.
func (a *app) do(t *testing.T, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.tokens[user])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
