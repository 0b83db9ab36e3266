package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/realtime"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

const maxInboundBytes = 512

type showGetter interface {
	GetByID(ctx context.Context, id string) (*model.Show, error)
}

// SeatStream pushes seat_update events of one show to a websocket.
type SeatStream struct {
	hub          *realtime.Hub
	shows        showGetter
	writeTimeout time.Duration
	pingInterval time.Duration
	upgrader     websocket.Upgrader
	log          *zap.Logger
}

// SeatStreamConfig tunes the socket. Origins lists allowed browser
// origins; "*" or an empty list allows any.
type SeatStreamConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	Origins      []string
}

func NewSeatStream(hub *realtime.Hub, shows showGetter, cfg SeatStreamConfig, log *zap.Logger) *SeatStream {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	s := &SeatStream{
		hub:          hub,
		shows:        shows,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		log:          logger.OrNop(log).Named("ws"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.Origins),
	}
	return s
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := map[string]bool{}
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && allowed[u.Scheme+"://"+u.Host]
	}
}

// Serve upgrades GET /ws/seats/:show_id. Unknown shows get a 404 before
// the upgrade.
func (s *SeatStream) Serve(c echo.Context) error {
	showID := c.Param("show_id")
	if _, err := s.shows.GetByID(c.Request().Context(), showID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "show")
		}
		return respondError(c, s.log, err)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		s.log.Debug("upgrade failed", zap.Error(err))
		return nil
	}
	sub := s.hub.Subscribe(showID)
	defer s.hub.Unsubscribe(sub)

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, sub, done)
	return nil
}

// readPump discards client messages and keeps the read deadline moving on
// pongs. It closes done when the peer goes away.
func (s *SeatStream) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	pongWait := 2 * s.pingInterval
	conn.SetReadLimit(maxInboundBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *SeatStream) writePump(conn *websocket.Conn, sub *realtime.Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case ev, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if !ok {
				// evicted or shutting down; the client reconnects and refetches
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "resync"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug("write failed", zap.String("show_id", sub.ShowID()), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
