package stores

import (
	"chatmate-api/internal/api/controllers"
	"chatmate-api/internal/config"
	"chatmate-api/internal/database"
	"chatmate-api/internal/repository"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/firestore"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// Stores holds the repositories picked by DOCUMENT_STORE and QUOTA_STORE
// together with the clients behind them.
type Stores struct {
	Usage repository.UsageRepository
	Chats repository.ChatRepository
	Users repository.UserRepository

	// AuditLogs is kept in Postgres when configured, in memory otherwise.
	AuditLogs repository.AuditLogRepository

	// DB is nil unless Postgres is configured.
	DB     *gorm.DB
	Checks map[string]controllers.Check

	closers []func() error
}

// Close releases the clients in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// Open connects the configured backends. Clients are shared: one Firestore
// client serves both stores when both use it.
func Open(ctx context.Context, cfg *config.Config, logOut io.Writer, clock repository.Clock) (*Stores, error) {
	s := &Stores{Checks: make(map[string]controllers.Check)}

	var fsClient *firestore.Client
	if cfg.UsesBackend(config.BackendFirestore) {
		var opts []option.ClientOption
		if cfg.Firebase.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		}
		client, err := firestore.NewClient(ctx, cfg.Firebase.ProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client: %v", err)
		}
		fsClient = client
		s.closers = append(s.closers, client.Close)
		s.Checks["firestore"] = firestoreCheck(client)
	}

	// Request and audit logs go to Postgres whenever a DATABASE_URL is set,
	// even when neither store uses it.
	if cfg.UsesBackend(config.BackendPostgres) || cfg.Database.URL != "" {
		db, err := database.InitDB(cfg.Database, logOut, cfg.LogLevel)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.DB = db
		if sqlDB, err := db.DB(); err == nil {
			s.closers = append(s.closers, sqlDB.Close)
		}
		s.Checks["postgres"] = database.Ping(db)
	}

	usageOpts := []repository.UsageOption{repository.WithClock(clock)}

	switch cfg.QuotaStore {
	case config.BackendFirestore:
		s.Usage = repository.NewFirestoreUsageRepository(fsClient, usageOpts...)
	case config.BackendPostgres:
		s.Usage = repository.NewPostgresUsageRepository(s.DB, usageOpts...)
	case config.BackendRedis:
		client, err := repository.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		s.Checks["redis"] = redisCheck(client)
		usageOpts = append(usageOpts, repository.WithKeyPrefix(cfg.Redis.KeyPrefix))
		s.Usage = repository.NewRedisUsageRepository(client, usageOpts...)
	default:
		s.Usage = repository.NewMemoryUsageRepository(usageOpts...)
	}

	if s.DB != nil {
		s.AuditLogs = repository.NewAuditLogRepository(s.DB)
	} else {
		s.AuditLogs = repository.NewMemoryAuditLogRepository()
	}

	switch cfg.DocumentStore {
	case config.BackendFirestore:
		s.Chats = repository.NewFirestoreChatRepository(fsClient)
		s.Users = repository.NewFirestoreUserRepository(fsClient, repository.WithClock(clock))
	case config.BackendPostgres:
		s.Chats = repository.NewChatRepository(s.DB)
		s.Users = repository.NewUserRepository(s.DB)
	default:
		s.Chats = repository.NewMemoryChatRepository()
		s.Users = repository.NewMemoryUserRepository()
	}

	return s, nil
}

func firestoreCheck(client *firestore.Client) controllers.Check {
	return func(ctx context.Context) error {
		_, err := client.Collections(ctx).Next()
		if err == iterator.Done {
			return nil
		}
		return err
	}
}

func redisCheck(client *goredis.Client) controllers.Check {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
