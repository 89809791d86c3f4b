package repository

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	// GetChat returns errors.ErrNotFound when the chat does not exist.
	GetChat(ctx context.Context, chatID string) (*models.Chat, error)
	TouchChat(ctx context.Context, chatID string, at time.Time) error
	// ListChats returns the user's chats, most recently updated first.
	ListChats(ctx context.Context, userID string, limit int) ([]models.Chat, error)
	AddMessages(ctx context.Context, messages ...*models.Message) error
	// ListMessages returns the latest limit messages of a chat, oldest first.
	ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		return errors.Wrap(err, "failed to create chat")
	}
	return nil
}

func (r *chatRepository) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat
	result := r.db.WithContext(ctx).First(&chat, "id = ?", chatID)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get chat")
	}
	return &chat, nil
}

func (r *chatRepository) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("updated_at", at)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update chat")
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (r *chatRepository) ListChats(ctx context.Context, userID string, limit int) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Limit(limit).
		Find(&chats).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chats")
	}
	return chats, nil
}

func (r *chatRepository) AddMessages(ctx context.Context, messages ...*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(messages).Error; err != nil {
		return errors.Wrap(err, "failed to add messages")
	}
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("timestamp desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	slices.Reverse(messages)
	return messages, nil
}

type memoryChatRepository struct {
	mu       sync.RWMutex
	chats    map[string]models.Chat
	messages map[string][]models.Message
}

func NewMemoryChatRepository() ChatRepository {
	return &memoryChatRepository{
		chats:    make(map[string]models.Chat),
		messages: make(map[string][]models.Message),
	}
}

func (r *memoryChatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chats[chat.ID]; ok {
		return errors.ErrAlreadyExists
	}
	r.chats[chat.ID] = *chat
	return nil
}

func (r *memoryChatRepository) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &chat, nil
}

func (r *memoryChatRepository) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return errors.ErrNotFound
	}
	chat.UpdatedAt = at
	r.chats[chatID] = chat
	return nil
}

func (r *memoryChatRepository) ListChats(ctx context.Context, userID string, limit int) ([]models.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Chat
	for _, chat := range r.chats {
		if chat.UserID == userID {
			out = append(out, chat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryChatRepository) AddMessages(ctx context.Context, messages ...*models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range messages {
		r.messages[m.ChatID] = append(r.messages[m.ChatID], *m)
	}
	return nil
}

func (r *memoryChatRepository) ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.messages[chatID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}
