//go:build integration

package database

import (
	"chatmate-api/internal/config"
	"chatmate-api/internal/models"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBMigratesOnce(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	cfg := config.DatabaseConfig{URL: url, MaxOpenConns: 5, MaxIdleConns: 5}

	db, err := InitDB(cfg, io.Discard, "error")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))

	var count int64
	require.NoError(t, db.Model(&models.MigrationRecord{}).Count(&count).Error)
	assert.Equal(t, int64(len(GetMigrations())), count)

	for _, table := range []string{"usage_records", "users", "chats", "messages", "request_logs", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
