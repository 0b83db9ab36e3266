package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/payment"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/realtime"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/repository/memory"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/seed"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var inMemory, consume bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the seat stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), inMemory, consume)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep all data in process memory, seeded with the demo catalog")
	cmd.Flags().BoolVar(&consume, "consume", false, "also run the booking event consumer")
	return cmd
}

// stores is the persistence a server runs on, MySQL or memory.
type stores struct {
	catalog  handler.Catalog
	users    handler.UserStore
	bookings interface {
		booking.Store
		handler.Summarizer
	}
	payments payment.Transactions
	db       handler.Pinger
}

func serve(parent context.Context, inMemory, consume bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		cfg config.Config
		log *zap.Logger
		st  stores
		err error
	)
	if inMemory {
		if cfg, err = config.LoadMemory(); err != nil {
			return err
		}
		if log, err = newLogger(cfg); err != nil {
			return err
		}
		st = memoryStores()
		if _, err := seed.Run(ctx, seed.Stores{
			Users: st.users, Movies: st.catalog.Movies, Theaters: st.catalog.Theaters, Shows: st.catalog.Shows,
		}, seed.Options{BcryptCost: cfg.BcryptCost, Log: log}); err != nil {
			return err
		}
	} else {
		c, l, db, err := bootstrap()
		if err != nil {
			return err
		}
		cfg, log = c, l
		defer db.Close()
		st = stores{
			catalog: handler.Catalog{
				Movies:   repository.NewMovieRepo(db),
				Theaters: repository.NewTheaterRepo(db),
				Shows:    repository.NewShowRepo(db),
			},
			users:    repository.NewUserRepo(db),
			bookings: repository.NewBookingRepo(db),
			payments: repository.NewPaymentRepo(db),
			db:       db,
		}
	}
	defer func() { _ = log.Sync() }()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
		log.Info("redis connected")
	} else {
		log.Warn("redis unavailable, rate limiting and response cache disabled")
	}

	hub := realtime.NewHub(cfg.HubBuffer, log)
	deps := booking.Deps{
		Shows:    st.catalog.Shows,
		Theaters: st.catalog.Theaters,
		Store:    st.bookings,
		Locker:   newLocker(cfg, rdb, log),
		Notifier: hub,
		Log:      log,
	}
	if cfg.Broker.URL != "" {
		pub := queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange, log)
		defer pub.Close()
		deps.Events = pub
	}
	ledger := booking.NewLedger(deps)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)

	e := router.New(cfg.CORSOrigins, log)
	router.RegisterRoutes(e, st.db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, log), cfg.JWTSecret, limiter)
	router.RegisterCatalog(e, handler.NewCatalogHandler(st.catalog, log), cache)
	router.RegisterBookings(e, handler.NewBookingHandler(ledger, st.catalog, log), cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(st.catalog, ledger, st.bookings, log), cfg.JWTSecret)
	router.RegisterRealtime(e, handler.NewSeatStream(hub, st.catalog.Shows, handler.SeatStreamConfig{
		WriteTimeout: cfg.WSWriteTimeout,
		PingInterval: cfg.WSPingInterval,
		Origins:      cfg.CORSOrigins,
	}, log))
	if cfg.Payment.StripeKey != "" {
		gw := payment.NewStripeGateway(cfg.Payment.StripeKey, cfg.Payment.WebhookSecret)
		svc := payment.NewService(gw, ledger, st.payments, cfg.Payment.Currency, log)
		router.RegisterPayments(e, handler.NewPaymentHandler(svc, log), cfg.JWTSecret)
	} else {
		log.Warn("STRIPE_API_KEY not set, payment routes disabled")
	}

	if consume && cfg.Broker.URL != "" {
		c := queue.NewConsumer(consumerConfig(cfg), log)
		go func() {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("consumer stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.Bool("memory", inMemory))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// closing the hub ends every stream with a resync message
	hub.Close()
	if err := e.Shutdown(sctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		return err
	}
	return nil
}

func memoryStores() stores {
	bookings := memory.NewBookingStore()
	return stores{
		catalog: handler.Catalog{
			Movies:   memory.NewMovieStore(),
			Theaters: memory.NewTheaterStore(),
			Shows:    memory.NewShowStore(),
		},
		users:    memory.NewUserStore(),
		bookings: bookings,
		payments: memory.NewPaymentStore(),
	}
}

// newLocker picks the per-show lock. The redis backend needs a live
// client and falls back to the in-process lock without one.
func newLocker(cfg config.Config, rdb *redis.Client, log *zap.Logger) booking.Locker {
	if cfg.LockBackend == "redis" {
		if rdb != nil {
			return booking.NewRedisLocker(rdb, "cinema:lock:", cfg.LockTTL, cfg.LockRetry, log)
		}
		log.Warn("LOCK_BACKEND=redis but redis is unavailable, using local locks")
	}
	return booking.NewLocalLocker()
}

func consumerConfig(cfg config.Config) queue.ConsumerConfig {
	return queue.ConsumerConfig{
		URL:      cfg.Broker.URL,
		Exchange: cfg.Broker.Exchange,
		Queue:    cfg.Broker.Queue,
		LogDir:   cfg.Broker.LogDir,
	}
}
