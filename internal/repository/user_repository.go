package repository

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	// Upsert records a login: it creates the profile or refreshes email,
	// display name and last login time.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "last_login_at", "updated_at"}),
	}).Create(user)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to upsert user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get user by ID")
	}

	return &user, nil
}

type firestoreUserRepository struct {
	client *firestore.Client
	opts   usageOptions
}

// NewFirestoreUserRepository writes profile fields into users/{uid}, merging
// with the usage fields kept in the same document. WithClock sets the day a
// newly created document starts counting on.
func NewFirestoreUserRepository(client *firestore.Client, opts ...UsageOption) UserRepository {
	return &firestoreUserRepository{client: client, opts: newUsageOptions(opts)}
}

type userDoc struct {
	Email       string    `firestore:"email"`
	DisplayName string    `firestore:"displayName"`
	LastLoginAt time.Time `firestore:"lastLoginAt"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func (r *firestoreUserRepository) Upsert(ctx context.Context, user *models.User) error {
	ref := r.client.Collection(usersCollection).Doc(user.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		fields := map[string]interface{}{
			"email":       user.Email,
			"displayName": user.DisplayName,
			"lastLoginAt": user.LastLoginAt,
			"updatedAt":   firestore.ServerTimestamp,
		}
		if snap == nil || !snap.Exists() {
			fields["createdAt"] = firestore.ServerTimestamp
			fields["dailyUsage"] = 0
			fields["isPremium"] = false
			fields["lastResetDate"] = r.opts.today()
		} else if created, err := snap.DataAt("createdAt"); err != nil || created == nil {
			fields["createdAt"] = firestore.ServerTimestamp
		}
		return tx.Set(ref, fields, firestore.MergeAll)
	})
	if err != nil {
		return errors.Wrap(err, "failed to upsert user")
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	snap, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get user by ID")
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode user")
	}
	return &models.User{
		ID:          id,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		LastLoginAt: doc.LastLoginAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]models.User)}
}

func (r *memoryUserRepository) Upsert(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored, ok := r.users[user.ID]
	if !ok {
		stored = models.User{ID: user.ID, CreatedAt: now}
	}
	stored.Email = user.Email
	stored.DisplayName = user.DisplayName
	stored.LastLoginAt = user.LastLoginAt
	stored.UpdatedAt = now
	r.users[user.ID] = stored
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &user, nil
}
