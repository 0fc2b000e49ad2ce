package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calum/gatehouse/internal/api"
	"github.com/calum/gatehouse/internal/auth"
	"github.com/calum/gatehouse/internal/database"
	"github.com/calum/gatehouse/internal/directory"
	"github.com/calum/gatehouse/internal/federation"
	"github.com/calum/gatehouse/internal/notify"
	"github.com/calum/gatehouse/pkg/config"
	"github.com/calum/gatehouse/pkg/queue"
	"github.com/calum/gatehouse/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	logger.Info("starting gatehouse server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	asynqClient := queue.NewClient(&cfg.Redis)

	// Federation clients; providers without credentials are left out
	// of the registry and their endpoints return 404.
	var clients []federation.Client
	if cfg.OAuth.Google.Configured() {
		google, err := federation.NewGoogleClient(context.Background(),
			cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret, cfg.OAuth.Google.RedirectURL)
		if err != nil {
			logger.Error("failed to init google client", "error", err)
			os.Exit(1)
		}
		clients = append(clients, google)
	}
	if cfg.OAuth.GitHub.Configured() {
		github, err := federation.NewGitHubClient(
			cfg.OAuth.GitHub.ClientID, cfg.OAuth.GitHub.ClientSecret, cfg.OAuth.GitHub.RedirectURL)
		if err != nil {
			logger.Error("failed to init github client", "error", err)
			os.Exit(1)
		}
		clients = append(clients, github)
	}
	providers := federation.NewRegistry(clients...)

	store := directory.NewStore(db)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())

	authRouter := auth.NewRouter(auth.RouterConfig{
		Users:             store,
		Orgs:              store,
		Notifier:          notify.NewQueueNotifier(asynqClient),
		Credentials:       auth.NewBcryptVerifier(),
		Tokens:            jwtService,
		PublicURL:         cfg.Server.PublicURL,
		RequireActivation: cfg.Auth.RequireActivation,
	})

	router := api.NewRouter(api.RouterConfig{
		DB:         db,
		Redis:      redisClient,
		Logger:     logger,
		JWTService: jwtService,
		AuthRouter: authRouter,
		Providers:  providers,
		Directory:  store,
		Activator:  store,
		RateLimit:  cfg.RateLimit,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	asynqClient.Close()
	redisClient.Close()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
