// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/auth"
	"github.com/DOYOUNG-0314/kissingyou/internal/cache"
	"github.com/DOYOUNG-0314/kissingyou/internal/config"
	"github.com/DOYOUNG-0314/kissingyou/internal/database"
	"github.com/DOYOUNG-0314/kissingyou/internal/game"
	"github.com/DOYOUNG-0314/kissingyou/internal/handlers"
	"github.com/DOYOUNG-0314/kissingyou/internal/judge"
	"github.com/DOYOUNG-0314/kissingyou/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := run(logger); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run serves until a signal arrives or the listener fails.
func run(logger *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if cfg.JWTPrivateKeyPath != "" {
		err = auth.InitFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.TokenExpire)
	} else {
		logger.Warn("no JWT key files configured; tokens will not survive a restart")
		err = auth.Init(cfg.TokenExpire)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var users handlers.UserDirectory
	if url := cfg.PostgresURL(); url != "" {
		pool, err := database.ConnectDB(ctx, url, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		users = database.NewUsers(pool)
	} else {
		logger.Warn("PG_HOST not set; accounts are kept in memory")
		users = database.NewMemoryUsers()
	}

	oracle := judge.NewRandomOracle(cfg.OracleSuccessRate, 0)
	oracle.Latency = cfg.OracleLatency
	keywords, err := game.NewKeywordPool(game.DefaultKeywords, 0)
	if err != nil {
		return fmt.Errorf("failed to build keyword pool: %w", err)
	}

	gs := handlers.NewGameServer(users, oracle, keywords, logger)
	gs.DefaultRules = cfg.Rules
	gs.PublicBaseURL = cfg.PublicBaseURL

	if cfg.RedisAddr != "" {
		publisher, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB, cfg.EventQueue)
		if err != nil {
			return err
		}
		defer publisher.Close()
		gs.Publisher = publisher
		logger.Infof("publishing session actions to redis list %q", publisher.QueueName)
	}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("POST /user/create", handlers.CreateUserHandler(gs))
	mux.HandleFunc("POST /user/login", handlers.LoginHandler(gs))
	mux.HandleFunc("POST /user/claim", handlers.ClaimGuestHandler(gs))

	// room endpoints
	mux.HandleFunc("POST /room/create", handlers.CreateRoomHandler(gs))
	mux.HandleFunc("GET /room/list", handlers.ListRoomsHandler(gs))
	mux.HandleFunc("GET /room/qr/{roomID}", handlers.RoomQRHandler(gs))
	mux.HandleFunc("/room/ws/{roomID}", handlers.RoomWSHandler(gs))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(mux,
			middleware.LogMiddleware(logger),
			middleware.RecoverMiddleware(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		gs.Shutdown()
		return err
	})

	return g.Wait()
}
