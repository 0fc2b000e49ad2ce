package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/calum/gatehouse/internal/mailer"
	"github.com/calum/gatehouse/internal/tasks"
	"github.com/calum/gatehouse/pkg/config"
	"github.com/calum/gatehouse/pkg/queue"
	"github.com/calum/gatehouse/pkg/util"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting gatehouse worker")

	srv := queue.NewServer(&cfg.Redis, 10)

	handler := tasks.NewHandler(logger, mailer.NewSMTPMailer(&cfg.SMTP))

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}

	logger.Info("worker stopped")
}
