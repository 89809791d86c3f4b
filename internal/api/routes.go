package api

import (
	"chatmate-api/internal/api/controllers"
	"chatmate-api/internal/api/handlers"
	"chatmate-api/internal/middleware"
	"chatmate-api/internal/repository"
	"chatmate-api/internal/services"
	"net/http"

	"github.com/gorilla/mux"
)

// Dependencies are the shared services the router is built from. The request
// and audit log services are nil when no relational store is configured, and
// their routes are then not registered.
type Dependencies struct {
	AuthService       services.AuthService
	ChatService       services.ChatService
	UsageService      services.UsageService
	ResetService      services.ResetService
	RequestLogService services.RequestLogService
	AuditLogService   services.AuditLogService
	Health            *controllers.HealthController
	AdminKeyHash      string
	Clock             repository.Clock
}

func SetupRoutes(deps Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	validate := handlers.NewValidator()

	chatHandler := handlers.NewChatHandler(deps.ChatService, validate, deps.Clock)
	usageHandler := handlers.NewUsageHandler(deps.UsageService)
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	adminHandler := handlers.NewAdminHandler(deps.ResetService, deps.UsageService, validate)

	// Public routes
	router.HandleFunc("/", deps.Health.Root).Methods(http.MethodGet)
	router.HandleFunc("/health", deps.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", deps.Health.Ready).Methods(http.MethodGet)

	// Authenticated routes
	userRouter := router.NewRoute().Subrouter()
	userRouter.Use(middleware.AuthMiddleware(deps.AuthService))
	if deps.RequestLogService != nil {
		userRouter.Use(middleware.NewRequestLogger(deps.RequestLogService).LogRequest)
	}

	userRouter.HandleFunc("/auth/verify", authHandler.Verify).Methods(http.MethodPost)
	userRouter.HandleFunc("/chat/message", chatHandler.SendMessage).Methods(http.MethodPost)
	userRouter.HandleFunc("/chat/history", chatHandler.GetHistory).Methods(http.MethodGet)
	userRouter.HandleFunc("/chat/{chat_id}/messages", chatHandler.GetMessages).Methods(http.MethodGet)
	userRouter.HandleFunc("/usage/status", usageHandler.GetStatus).Methods(http.MethodGet)
	if deps.RequestLogService != nil {
		requestLogHandler := handlers.NewRequestLogHandler(deps.RequestLogService)
		userRouter.HandleFunc("/usage/activity", requestLogHandler.GetUserLogs).Methods(http.MethodGet)
	}

	// Operator routes
	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminMiddleware(deps.AdminKeyHash))

	adminRouter.HandleFunc("/usage/reset", adminHandler.ResetUsage).Methods(http.MethodPost)
	adminRouter.HandleFunc("/users/{user_id}/tier", adminHandler.SetTier).Methods(http.MethodPut)
	if deps.AuditLogService != nil {
		auditLogHandler := handlers.NewAuditLogHandler(deps.AuditLogService)
		adminRouter.HandleFunc("/audit-logs", auditLogHandler.ListAuditLogs).Methods(http.MethodGet)
	}

	return router
}
