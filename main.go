package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/pavilionlive/auctioneer/internal/auction"
	"github.com/pavilionlive/auctioneer/internal/auth"
	"github.com/pavilionlive/auctioneer/internal/cache"
	"github.com/pavilionlive/auctioneer/internal/catalog"
	"github.com/pavilionlive/auctioneer/internal/config"
	"github.com/pavilionlive/auctioneer/internal/database"
	"github.com/pavilionlive/auctioneer/internal/handlers"
	"github.com/pavilionlive/auctioneer/internal/middleware"
	"github.com/pavilionlive/auctioneer/internal/scoring"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
		logrus.SetLevel(level)
	}

	// init db connection
	database.ConnectDB(cfg.DatabaseURL)
	defer database.DB.Close()

	// init redis action queue; optional
	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.Warnf("redis unavailable, action audit queue disabled: %v", err)
		}
	}

	// init guest session keys
	auth.Init(cfg.TokenExpireTime)

	// load the master player pool
	ctx, cancelLoad := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := catalog.Load(ctx)
	cancelLoad()
	if err != nil {
		logger.Fatalf("failed to load player pool: %v", err)
	}
	logger.Infof("Loaded %d players into the auction pool", len(pool))

	// external squad evaluator; nil falls back to the heuristic
	var evaluator scoring.Evaluator
	if cfg.ScoringAPIURL != "" {
		evaluator = scoring.NewClient(cfg.ScoringAPIURL)
		logger.Infof("Squad evaluation via %s", cfg.ScoringAPIURL)
	} else {
		logger.Info("No scoring API configured, using heuristic evaluation")
	}

	rooms := auction.NewRoomStore(clockwork.NewRealClock(), database.NewStore(), evaluator)
	rooms.StartJanitor()
	defer rooms.StopJanitor()

	server := handlers.NewAuctionServer(rooms, pool)

	// init routers
	mux := http.NewServeMux()
	mux.HandleFunc("/", handlers.PingHandler)
	mux.HandleFunc("/health", handlers.HealthHandler(server))
	mux.HandleFunc("/rooms", handlers.RoomsHandler(server))
	mux.HandleFunc("/ws", handlers.AuctionWSHandler(logger, server))

	httpServer := &http.Server{
		Handler:     middleware.LogMiddleware(logger)(mux),
		ReadTimeout: time.Second * 10,
	}

	l, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Port))
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- httpServer.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
