package main

import (
	"chatmate-api/internal/api"
	"chatmate-api/internal/api/controllers"
	"chatmate-api/internal/config"
	"chatmate-api/internal/logger"
	"chatmate-api/internal/repository"
	"chatmate-api/internal/services"
	"chatmate-api/internal/stores"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.LogEvent(logrus.DebugLevel, "No .env file loaded", logrus.Fields{"error": err.Error()})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatalf("Invalid configuration: %v", err)
	}

	logOut, err := logger.Configure(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logger.Logger.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Quota.Location()
	clock := repository.Clock(func() time.Time { return time.Now().In(loc) })

	st, err := stores.Open(ctx, cfg, logOut, clock)
	if err != nil {
		logger.Logger.Fatalf("Failed to open stores: %v", err)
	}
	defer st.Close()

	// Initialize services
	var requestLogService services.RequestLogService
	if st.DB != nil {
		requestLogService = services.NewRequestLogService(repository.NewRequestLogRepository(st.DB))
	}
	auditLogService := services.NewAuditLogService(st.AuditLogs, clock)

	var authService services.AuthService
	switch cfg.Auth.Mode {
	case config.AuthJWT:
		authService = services.NewJWTAuthService(cfg.Auth.JWTSecret, st.Users)
	default:
		authService = services.NewFirebaseAuthService(cfg.Firebase.ProjectID, st.Users)
	}

	genaiClient, err := services.NewGeminiClient(ctx, cfg.Gemini.APIKey)
	if err != nil {
		logger.Logger.Fatalf("Failed to create Gemini client: %v", err)
	}
	generator := services.NewGeminiGenerator(genaiClient, cfg.Gemini)

	policy := services.NewUsagePolicy(&cfg.Quota)
	chatService := services.NewChatService(st.Chats, st.Usage, policy, generator, clock, services.ChatOptions{
		Enforcement:   cfg.Quota.Enforcement,
		HistoryWindow: cfg.Gemini.HistoryWindow,
	})
	usageService := services.NewUsageService(st.Usage, policy, clock, auditLogService)
	resetService := services.NewResetService(st.Usage, clock, auditLogService)

	router := api.SetupRoutes(api.Dependencies{
		AuthService:       authService,
		ChatService:       chatService,
		UsageService:      usageService,
		ResetService:      resetService,
		RequestLogService: requestLogService,
		AuditLogService:   auditLogService,
		Health:            controllers.NewHealthController(config.Version, st.Checks),
		AdminKeyHash:      cfg.Auth.AdminKeyHash,
		Clock:             clock,
	})

	if cfg.ResetSchedulerEnabled {
		go services.NewResetScheduler(resetService, clock).Run(ctx)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Admin-Key",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Create server with timeouts
	srv := &http.Server{
		Handler:      corsMiddleware.Handler(router),
		Addr:         ":" + cfg.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogEvent(logrus.ErrorLevel, "Graceful shutdown failed", logrus.Fields{"error": err.Error()})
		}
	}()

	logger.LogEvent(logrus.InfoLevel, "Server starting", logrus.Fields{
		"port":           cfg.Port,
		"document_store": cfg.DocumentStore,
		"quota_store":    cfg.QuotaStore,
		"auth_mode":      cfg.Auth.Mode,
		"enforcement":    cfg.Quota.Enforcement,
		"timezone":       loc.String(),
	})
	if cfg.Quota.Enforcement == config.HardEnforcement {
		logger.LogEvent(logrus.InfoLevel, "Hard quota enforcement enabled", nil)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Logger.Fatalf("Server failed: %v", err)
	}
	logger.LogEvent(logrus.InfoLevel, "Server stopped", nil)
}
