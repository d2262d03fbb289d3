package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pongarena/internal/cache"
	"pongarena/internal/config"
	"pongarena/internal/matchmaking"
	"pongarena/internal/repository"
	"pongarena/internal/service"
	"pongarena/internal/transport/rest"
	"pongarena/internal/transport/ws"

	"github.com/decred/slog"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// @title pongarena API
// @version 1.0
// @description Remote Pong matchmaking, sessions and match history.
// @BasePath /v1
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	backend := slog.NewBackend(os.Stderr)
	level, ok := slog.LevelFromString(cfg.LogLevel)
	if !ok {
		level = slog.LevelInfo
	}
	logger := func(subsystem string) slog.Logger {
		l := backend.Logger(subsystem)
		l.SetLevel(level)
		return l
	}
	log := logger("SRVR")

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	log.Info("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	log.Info("Connected to Redis")

	// Repositories and caches
	matchRepo := repository.NewMatchRepo(db)
	tournamentRepo := repository.NewTournamentRepo(db)
	sessionCache := cache.NewSessionCache(rdb, cfg.SessionMetaTTL)
	leaderboard := cache.NewLeaderboardCache(rdb)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.TokenTTL)
	matchSvc := service.NewMatchService(sessionCache, leaderboard, matchRepo, tournamentRepo,
		logger("SRVC"), cfg.ReportTimeout)

	sessCfg := cfg.Game.SessionConfig()
	sessCfg.Log = logger("SESS")

	gameCtx, stopGames := context.WithCancel(context.Background())
	defer stopGames()
	mm := matchmaking.New(gameCtx, sessCfg, logger("MTCH"), matchSvc.HandleFinished)
	matchSvc.SetMatchmaker(mm)

	wsHub := ws.NewHub(logger("WSRV"))

	router := rest.NewRouter(&rest.Container{
		AuthService:  authSvc,
		MatchService: matchSvc,
		Matchmaker:   mm,
		WSHub:        wsHub,
		Log:          logger("REST"),
		WSLog:        logger("WSRV"),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on :%s (tick %dHz, broadcast %dHz, grace %s)",
			cfg.Port, cfg.Game.TickHz, cfg.Game.BroadcastHz, cfg.Game.ReconnectGrace)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// sessions tell their players before the sockets go
	stopGames()
	mm.Wait()
	wsHub.Shutdown()
	matchSvc.Wait()

	log.Info("Server exited")
	return nil
}
