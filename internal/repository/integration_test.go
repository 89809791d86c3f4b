//go:build integration

package repository

import (
	"chatmate-api/internal/models"
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Run with: DATABASE_URL=... FIRESTORE_EMULATOR_HOST=localhost:8080 go test -tags integration ./internal/repository/

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UsageRecord{}, &models.Chat{}, &models.Message{}))
	return db
}

func TestPostgresUsageRepository(t *testing.T) {
	db := openTestDB(t)

	runUsageRepositoryContract(t, func(t *testing.T, clock *testClock) UsageRepository {
		require.NoError(t, db.Exec("TRUNCATE usage_records").Error)
		return NewPostgresUsageRepository(db, WithClock(clock.Now), WithBatchSize(5))
	})
}

func openTestFirestore(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "chatmate-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func clearCollection(t *testing.T, client *firestore.Client, name string) {
	t.Helper()
	ctx := context.Background()
	iter := client.Collection(name).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return
		}
		require.NoError(t, err)
		_, err = snap.Ref.Delete(ctx)
		require.NoError(t, err)
	}
}

func TestFirestoreUsageRepository(t *testing.T) {
	client := openTestFirestore(t)

	runUsageRepositoryContract(t, func(t *testing.T, clock *testClock) UsageRepository {
		clearCollection(t, client, usersCollection)
		return NewFirestoreUsageRepository(client, WithClock(clock.Now), WithBatchSize(5))
	})
}

func TestFirestoreUsageSecondSweepSameDay(t *testing.T) {
	client := openTestFirestore(t)
	ctx := context.Background()

	for _, tt := range []struct {
		name   string
		create func(t *testing.T, clock *testClock, userID string)
	}{
		{"profile first", func(t *testing.T, clock *testClock, userID string) {
			users := NewFirestoreUserRepository(client, WithClock(clock.Now))
			require.NoError(t, users.Upsert(ctx, &models.User{ID: userID, Email: userID + "@example.com", LastLoginAt: clock.Now()}))
		}},
		{"tier first", func(t *testing.T, clock *testClock, userID string) {
			usage := NewFirestoreUsageRepository(client, WithClock(clock.Now))
			require.NoError(t, usage.SetPremium(ctx, userID, false))
		}},
		{"legacy document", func(t *testing.T, clock *testClock, userID string) {
			_, err := client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]interface{}{"email": "old@example.com"})
			require.NoError(t, err)
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			clearCollection(t, client, usersCollection)
			clock := newTestClock()
			repo := NewFirestoreUsageRepository(client, WithClock(clock.Now))

			// The day's first sweep has already run when the user shows up.
			_, err := repo.ResetAllUsage(ctx)
			require.NoError(t, err)

			tt.create(t, clock, "late")
			for i := 0; i < 3; i++ {
				require.NoError(t, repo.IncrementUsage(ctx, "late"))
			}

			count, err := repo.ResetAllUsage(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, count)

			rec, err := repo.GetUsage(ctx, "late")
			require.NoError(t, err)
			assert.Equal(t, int64(3), rec.DailyUsage)
			assert.Equal(t, "2026-05-10", rec.LastResetDate)
		})
	}
}

func TestFirestoreChatRepository(t *testing.T) {
	client := openTestFirestore(t)
	clearCollection(t, client, chatsCollection)
	clearCollection(t, client, messagesCollection)

	runChatRepositoryContract(t, NewFirestoreChatRepository(client))
}

func TestPostgresChatRepository(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("TRUNCATE messages, chats").Error)

	runChatRepositoryContract(t, NewChatRepository(db))
}
