package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestMigrationNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range GetMigrations() {
		assert.False(t, seen[m.Name], "duplicate migration %s", m.Name)
		assert.NotNil(t, m.Run, m.Name)
		seen[m.Name] = true
	}
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, gormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("info"))
	assert.Equal(t, gormlogger.Error, gormLogLevel("error"))
}
