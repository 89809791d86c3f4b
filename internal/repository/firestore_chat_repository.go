package repository

import (
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

type chatDoc struct {
	UserID    string    `firestore:"userId"`
	Title     string    `firestore:"title"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type messageDoc struct {
	ChatID    string    `firestore:"chatId"`
	UserID    string    `firestore:"userId"`
	Sender    string    `firestore:"sender"`
	Content   string    `firestore:"content"`
	Tone      string    `firestore:"tone"`
	Timestamp time.Time `firestore:"timestamp"`
}

type firestoreChatRepository struct {
	client *firestore.Client
}

// NewFirestoreChatRepository keeps chats and messages in two top-level
// collections. ListMessages needs a composite index on (chatId, timestamp desc).
func NewFirestoreChatRepository(client *firestore.Client) ChatRepository {
	return &firestoreChatRepository{client: client}
}

func (r *firestoreChatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	_, err := r.client.Collection(chatsCollection).Doc(chat.ID).Create(ctx, chatDoc{
		UserID:    chat.UserID,
		Title:     chat.Title,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.ErrAlreadyExists
		}
		return errors.Wrap(err, "failed to create chat")
	}
	return nil
}

func (r *firestoreChatRepository) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	snap, err := r.client.Collection(chatsCollection).Doc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get chat")
	}

	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode chat")
	}
	return doc.toModel(chatID), nil
}

func (r *firestoreChatRepository) TouchChat(ctx context.Context, chatID string, at time.Time) error {
	_, err := r.client.Collection(chatsCollection).Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "updatedAt", Value: at},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.ErrNotFound
		}
		return errors.Wrap(err, "failed to update chat")
	}
	return nil
}

func (r *firestoreChatRepository) ListChats(ctx context.Context, userID string, limit int) ([]models.Chat, error) {
	q := r.client.Collection(chatsCollection).
		Where("userId", "==", userID).
		OrderBy("updatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []models.Chat
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to list chats")
		}

		var doc chatDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode chat")
		}
		out = append(out, *doc.toModel(snap.Ref.ID))
	}
	return out, nil
}

// AddMessages writes all messages in one transaction so a question is never
// stored without its reply.
func (r *firestoreChatRepository) AddMessages(ctx context.Context, messages ...*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	col := r.client.Collection(messagesCollection)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, m := range messages {
			doc := messageDoc{
				ChatID:    m.ChatID,
				UserID:    m.UserID,
				Sender:    string(m.Sender),
				Content:   m.Content,
				Tone:      string(m.Tone),
				Timestamp: m.Timestamp,
			}
			if err := tx.Create(col.Doc(m.ID), doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to add messages")
	}
	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	q := r.client.Collection(messagesCollection).
		Where("chatId", "==", chatID).
		OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []models.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to list messages")
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to decode message")
		}
		out = append(out, models.Message{
			ID:        snap.Ref.ID,
			ChatID:    doc.ChatID,
			UserID:    doc.UserID,
			Sender:    models.Sender(doc.Sender),
			Content:   doc.Content,
			Tone:      models.Tone(doc.Tone),
			Timestamp: doc.Timestamp,
		})
	}
	slices.Reverse(out)
	return out, nil
}

func (d chatDoc) toModel(id string) *models.Chat {
	return &models.Chat{
		ID:        id,
		UserID:    d.UserID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
