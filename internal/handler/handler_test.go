package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/payment"
	"github.com/iliyamo/cinema-booking/internal/realtime"
)

type seatMapBody struct {
	ShowID string `json:"show_id"`
	Seats  [][]struct {
		SeatNumber string `json:"seat_number"`
		Status     string `json:"status"`
	} `json:"seats"`
	Price float64 `json:"price"`
}

type bookingBody struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	ShowID      string   `json:"show_id"`
	Seats       []string `json:"seats"`
	TotalAmount float64  `json:"total_amount"`
	Status      string   `json:"status"`
	Show        *struct {
		ID string `json:"id"`
	} `json:"show"`
	Movie *struct {
		Title string `json:"title"`
	} `json:"movie"`
	Theater *struct {
		Name string `json:"name"`
	} `json:"theater"`
}

type errorBody struct {
	Error string `json:"error"`
	Seat  string `json:"seat"`
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBookingFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/api/shows/s1/seats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sm := decode[seatMapBody](t, rec)
	assert.Equal(t, "s1", sm.ShowID)
	assert.Equal(t, 12.5, sm.Price)
	require.Len(t, sm.Seats, 2)
	require.Len(t, sm.Seats[0], 3)
	assert.Equal(t, "A1", sm.Seats[0][0].SeatNumber)
	assert.Equal(t, "available", sm.Seats[0][0].Status)

	rec = a.do(t, http.MethodPost, "/api/bookings", "u1", map[string]any{"show_id": "s1", "seats": []string{"A1", "A2"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[bookingBody](t, rec)
	assert.Equal(t, "u1", b.UserID)
	assert.Equal(t, 25.0, b.TotalAmount)
	assert.Equal(t, "pending", b.Status)
	assert.Equal(t, []string{"A1", "A2"}, b.Seats)

	rec = a.do(t, http.MethodPost, "/api/bookings", "u2", map[string]any{"show_id": "s1", "seats": []string{"A3", "A2"}})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "A2", decode[errorBody](t, rec).Seat)

	rec = a.do(t, http.MethodGet, "/api/shows/s1/seats", "", nil)
	sm = decode[seatMapBody](t, rec)
	assert.Equal(t, "booked", sm.Seats[0][1].Status)
	assert.Equal(t, "available", sm.Seats[0][2].Status)

	rec = a.do(t, http.MethodGet, "/api/bookings/my", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]bookingBody](t, rec)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Movie)
	require.NotNil(t, mine[0].Theater)
	assert.Equal(t, "The Quantum Paradox", mine[0].Movie.Title)
	assert.Equal(t, "Grand Cinema Plaza", mine[0].Theater.Name)

	rec = a.do(t, http.MethodGet, "/api/bookings/"+b.ID, "u2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/bookings/"+b.ID, "admin", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/bookings/"+b.ID+"/cancel", "u2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/bookings/"+b.ID+"/cancel", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Booking cancelled successfully"}`, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/api/bookings/"+b.ID+"/cancel", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/bookings", "u2", map[string]any{"show_id": "s1", "seats": []string{"A3", "A2"}})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBookingValidation(t *testing.T) {
	a := newApp(t)
	cases := []struct {
		name string
		user string
		body map[string]any
		code int
	}{
		{"anonymous", "", map[string]any{"show_id": "s1", "seats": []string{"A1"}}, http.StatusUnauthorized},
		{"unknown show", "u1", map[string]any{"show_id": "nope", "seats": []string{"A1"}}, http.StatusNotFound},
		{"no seats", "u1", map[string]any{"show_id": "s1", "seats": []string{}}, http.StatusBadRequest},
		{"missing show id", "u1", map[string]any{"seats": []string{"A1"}}, http.StatusBadRequest},
		{"seat outside layout", "u1", map[string]any{"show_id": "s1", "seats": []string{"Z9"}}, http.StatusBadRequest},
		{"duplicate seat", "u1", map[string]any{"show_id": "s1", "seats": []string{"A1", "a1"}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/api/bookings", tc.user, tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	rec := a.do(t, http.MethodGet, "/api/shows/missing/seats", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/shows?date=15-01-2025", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "New@Example.com", "password": "secret1", "name": "New",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	type userBody struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	type authBody struct {
		AccessToken string   `json:"access_token"`
		TokenType   string   `json:"token_type"`
		User        userBody `json:"user"`
	}
	reg := decode[authBody](t, rec)
	assert.Equal(t, "bearer", reg.TokenType)
	assert.Equal(t, "new@example.com", reg.User.Email)
	assert.Equal(t, model.RoleUser, reg.User.Role)
	require.NotEmpty(t, reg.AccessToken)

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "secret1", "name": "Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "123", "name": "Short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "long@example.com", "password": strings.Repeat("p", 73), "name": "Long",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authBody](t, rec)

	a.tokens["new"] = login.AccessToken
	rec = a.do(t, http.MethodGet, "/api/auth/me", "new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[userBody](t, rec)
	assert.Equal(t, reg.User, me)
	assert.NotContains(t, rec.Body.String(), "access_token")
}

func TestAdmin(t *testing.T) {
	a := newApp(t)

	movie := map[string]any{"title": "Midnight Echo", "duration": 112, "genre": "Thriller"}
	rec := a.do(t, http.MethodPost, "/api/admin/movies", "u1", movie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/admin/movies", "admin", movie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/admin/theaters", "admin", map[string]any{
		"name": "Broken", "location": "Nowhere",
		"screens": []map[string]any{{"screen_number": 1, "seat_layout": map[string]any{"rows": []string{}, "seats_per_row": 5}}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/admin/theaters", "admin", map[string]any{
		"name": "Lowercase", "location": "Uptown",
		"screens": []map[string]any{{"screen_number": 1, "seat_layout": map[string]any{"rows": []string{"a", " b"}, "seats_per_row": 2}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	theater := decode[model.Theater](t, rec)
	require.Len(t, theater.Screens, 1)
	assert.Equal(t, []string{"A", "B"}, theater.Screens[0].Layout.Rows)
	assert.Equal(t, 4, theater.Screens[0].TotalSeats)

	rec = a.do(t, http.MethodPost, "/api/admin/shows", "admin", map[string]any{
		"movie_id": "m1", "theater_id": theater.ID, "screen_number": 1,
		"date": "2025-01-16", "start_time": "18:00", "end_time": "20:30", "price": 15,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	show := decode[model.Show](t, rec)

	rec = a.do(t, http.MethodGet, "/api/shows/"+show.ID+"/seats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A1", decode[seatMapBody](t, rec).Seats[0][0].SeatNumber)
	rec = a.do(t, http.MethodPost, "/api/bookings", "u2", map[string]any{"show_id": show.ID, "seats": []string{"a1"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/admin/shows", "admin", map[string]any{
		"movie_id": "m1", "theater_id": "t1", "screen_number": 9,
		"date": "2025-01-16", "start_time": "18:00", "end_time": "20:30", "price": 15,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/bookings", "u1", map[string]any{"show_id": "s1", "seats": []string{"B1"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/admin/shows/missing", "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/admin/bookings", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bookingBody](t, rec), 2)

	rec = a.do(t, http.MethodGet, "/api/admin/analytics", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"total_bookings": 2,
		"confirmed_bookings": 0,
		"total_revenue": 0,
		"total_movies": 2,
		"total_theaters": 2,
		"total_shows": 2
	}`, rec.Body.String())
}

func TestPaymentFlow(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/api/bookings", "u1", map[string]any{"show_id": "s1", "seats": []string{"A1", "A2"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	b := decode[bookingBody](t, rec)

	rec = a.do(t, http.MethodPost, "/api/payments/checkout?booking_id="+b.ID+"&origin_url=javascript:alert(1)", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/payments/checkout?booking_id="+b.ID+"&origin_url=https://app.example", "u2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/payments/checkout?booking_id="+b.ID+"&origin_url=https://app.example", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decode[struct {
		URL       string `json:"url"`
		SessionID string `json:"session_id"`
	}](t, rec)
	assert.Equal(t, "cs_"+b.ID, sess.SessionID)

	a.gateway.webhook = payment.WebhookResult{SessionID: sess.SessionID, Paid: true}
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "forged")
	rr := httptest.NewRecorder()
	a.e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/webhook/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "ok")
	rr = httptest.NewRecorder()
	a.e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"success"}`, rr.Body.String())

	rec = a.do(t, http.MethodGet, "/api/bookings/"+b.ID, "u1", nil)
	assert.Equal(t, "confirmed", decode[bookingBody](t, rec).Status)

	rec = a.do(t, http.MethodGet, "/api/payments/status/"+sess.SessionID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tx := decode[model.PaymentTransaction](t, rec)
	assert.Equal(t, model.PaymentPaid, tx.PaymentStatus)
}

func TestSeatStream(t *testing.T) {
	a := newApp(t)
	srv := httptest.NewServer(a.e)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws/seats/unknown", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/seats/s1", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.hub.Viewers("s1") == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := a.do(t, http.MethodPost, "/api/bookings", "u1", map[string]any{"show_id": "s1", "seats": []string{"A1", "A2"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	b := decode[bookingBody](t, rec)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.SeatUpdate([]string{"A1", "A2"}, "booked"), ev)

	rec = a.do(t, http.MethodPost, "/api/bookings/"+b.ID+"/cancel", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.SeatUpdate([]string{"A1", "A2"}, "available"), ev)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return a.hub.Viewers("s1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
