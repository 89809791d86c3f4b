// Command reset runs the daily usage sweep once and exits. It is meant for
// an external scheduler when RESET_SCHEDULER_ENABLED is off in the API.
package main

import (
	"chatmate-api/internal/config"
	"chatmate-api/internal/logger"
	"chatmate-api/internal/repository"
	"chatmate-api/internal/services"
	"chatmate-api/internal/stores"
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	actor := flag.String("actor", "cron", "actor recorded in logs and the audit trail")
	timeout := flag.Duration("timeout", 10*time.Minute, "maximum duration of the sweep")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatalf("Invalid configuration: %v", err)
	}
	logOut, err := logger.Configure(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logger.Logger.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	loc := cfg.Quota.Location()
	clock := repository.Clock(func() time.Time { return time.Now().In(loc) })

	st, err := stores.Open(ctx, cfg, logOut, clock)
	if err != nil {
		logger.Logger.Fatalf("Failed to open stores: %v", err)
	}
	defer st.Close()

	audit := services.NewAuditLogService(st.AuditLogs, clock)

	result, err := services.NewResetService(st.Usage, clock, audit).ResetDaily(ctx, *actor)
	if err != nil {
		st.Close()
		os.Exit(1)
	}
	logger.LogEvent(logrus.InfoLevel, "Reset complete", logrus.Fields{
		"reset_count": result.ResetCount,
		"date":        result.Date,
	})
}
