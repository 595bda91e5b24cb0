// cmd/recommender/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"car-recommender/internal/common/config"
	"car-recommender/internal/common/database"
	"car-recommender/internal/common/logger"
	"car-recommender/internal/common/observability"
	"car-recommender/internal/console"
	"car-recommender/internal/history"
	"car-recommender/internal/recommender"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: configs/config.yaml)")
	question := flag.String("q", "", "Ask a single question and exit")
	userID := flag.String("user", "", "User id sent with every request (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *userID != "" {
		cfg.Recommender.UserID = *userID
	}

	// zap writes to stderr, stdout is reserved for the conversation.
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("observability disabled", map[string]interface{}{"error": err})
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rcfg := recommender.LoadConfig(cfg.Recommender)
	client := recommender.NewClient(rcfg, log)

	opts := []recommender.SessionOption{
		recommender.WithLogger(log),
		recommender.WithTelemetry(obs),
	}
	consoleOpts := console.Options{
		Health: client,
		UserID: rcfg.UserID,
		Logger: log,
	}

	if cfg.History.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		defer redis.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redis.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("history disabled, redis unavailable", map[string]interface{}{"error": err})
		} else {
			store := history.NewStore(redis, cfg.History, log)
			opts = append(opts, recommender.WithRecorder(store))
			consoleOpts.History = store
		}
	}

	session := recommender.NewSession(client, rcfg.UserID, opts...)
	c := console.New(session, os.Stdout, consoleOpts)

	if *question != "" {
		st := c.Ask(ctx, *question)
		if st.Phase() != recommender.PhaseResult {
			os.Exit(1)
		}
		return
	}

	fmt.Println("Car recommender. Type :help for commands.")
	if err := c.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		log.Error("input failed", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
