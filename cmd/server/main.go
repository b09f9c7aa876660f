package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/covoit/internal/config"
	"github.com/vedran77/covoit/internal/database"
	"github.com/vedran77/covoit/internal/jobs"
	"github.com/vedran77/covoit/internal/repository"
	"github.com/vedran77/covoit/internal/repository/memory"
	postgresrepo "github.com/vedran77/covoit/internal/repository/postgres"
	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/internal/transport/http/handlers"
	"github.com/vedran77/covoit/internal/transport/valkey"
	"github.com/vedran77/covoit/internal/transport/ws"
	"github.com/vedran77/covoit/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type repos struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	trips    repository.TripRepository
	reviews  repository.ReviewRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	lg, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatalf("server stopped: %v", err)
	}
	lg.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *logger.Logger) error {
	// Repositories
	r, closeStore, err := openStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Services
	authService := service.NewAuthService(r.users, cfg.JWT.Secret, cfg.JWT.TTL, lg)
	store := service.NewMessageStore(r.messages, r.users, cfg.Chat.MaxBodyLength)
	index := service.NewConversationIndex(r.messages)
	contacts := service.NewContactResolver(r.users, r.trips, store, cfg.Chat.Greeting)
	dmService := service.NewDMService(store, index, contacts, r.users, lg)
	tripService := service.NewTripService(r.trips, r.users)
	reviewService := service.NewReviewService(r.reviews, r.trips, r.users, lg)

	if err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Realtime
	hub := ws.NewHub(lg)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	var publisher service.Publisher = ws.NewHubPublisher(hub)
	if cfg.Valkey.Addr != "" {
		client, err := valkey.Connect(cfg.Valkey.Addr)
		if err != nil {
			return err
		}
		defer client.Close()

		// Every instance publishes to valkey and relays its subscription into
		// the local hub, so each event reaches a socket exactly once.
		publisher = valkey.NewPublisher(client)
		relay := valkey.NewRelay(client, hub, lg)
		g.Go(func() error { return relay.Run(ctx) })
		lg.Info("valkey fan-out enabled", "addr", cfg.Valkey.Addr)
	}

	notifier := service.NewDeliveryNotifier(lg, cfg.Notify.Timeout, publisher)
	dmService.SetNotifier(notifier)
	defer notifier.Wait()

	// Jobs
	reconciler := jobs.NewRatingReconciler(reviewService, lg, 5*time.Minute)
	if err := reconciler.Schedule(cfg.Jobs.RatingSchedule); err != nil {
		return fmt.Errorf("scheduling rating job: %w", err)
	}
	reconciler.Start()
	defer reconciler.Stop()

	// HTTP
	router := handlers.Router{
		Auth:    handlers.NewAuthHandler(authService, lg),
		DM:      handlers.NewDMHandler(dmService, lg),
		Trips:   handlers.NewTripHandler(tripService, lg),
		Reviews: handlers.NewReviewHandler(reviewService, lg),
		WS:      ws.ServeWS(hub, authService, contacts, lg),
		Tokens:  authService,
		Log:     lg,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		lg.Info("starting server", "addr", srv.Addr, "env", cfg.Server.Environment, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		lg.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, lg *logger.Logger) (repos, func(), error) {
	if cfg.Store.Driver == "memory" {
		lg.Warn("using in-memory store, data is lost on restart")
		s := memory.NewStore()
		return repos{
			users:    s.Users(),
			messages: s.Messages(),
			trips:    s.Trips(),
			reviews:  s.Reviews(),
		}, func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DB, lg)
	if err != nil {
		return repos{}, nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return repos{}, nil, err
	}
	lg.Info("connected to database", "host", cfg.DB.Host, "name", cfg.DB.Name)

	return postgresRepos(pool), pool.Close, nil
}

func postgresRepos(pool *pgxpool.Pool) repos {
	return repos{
		users:    postgresrepo.NewUserRepo(pool),
		messages: postgresrepo.NewMessageRepo(pool),
		trips:    postgresrepo.NewTripRepo(pool),
		reviews:  postgresrepo.NewReviewRepo(pool),
	}
}
