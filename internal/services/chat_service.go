package services

import (
	"chatmate-api/internal/config"
	"chatmate-api/internal/logger"
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"chatmate-api/internal/repository"
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MaxContentRunes = 4000

	maxChatsListed     = 50
	defaultMessagePage = 50
	maxMessagePage     = 200

	emptyReplyText   = "I couldn't generate a response. Please try again."
	generatorErrText = "I'm having trouble connecting right now. Please try again in a moment."
)

type SendMessageInput struct {
	UserID  string
	ChatID  string
	Content string
	Tone    models.Tone
}

type SendMessageResult struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`

	// Degraded is set when Content is an apology rather than a model reply.
	// Degraded replies are neither charged nor stored.
	Degraded  bool  `json:"-"`
	Limit     int64 `json:"-"`
	Remaining int64 `json:"-"`
}

// QuotaExceededError is returned when the user has no messages left today.
// It matches errors.ErrQuotaExceeded.
type QuotaExceededError struct {
	Limit     int64
	Usage     int64
	IsPremium bool
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded: %d/%d", e.Usage, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == errors.ErrQuotaExceeded
}

// UserMessage is the text shown to the client.
func (e *QuotaExceededError) UserMessage() string {
	msg := fmt.Sprintf("Daily message limit (%d) reached.", e.Limit)
	if e.IsPremium {
		return msg + " Please try again tomorrow."
	}
	return msg + " Upgrade to premium for more messages!"
}

type ChatService interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error)
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	GetMessages(ctx context.Context, userID, chatID string, limit int) ([]models.Message, error)
}

type ChatOptions struct {
	Enforcement   config.Enforcement
	HistoryWindow int
	// WriteTimeout bounds the usage increment and the history writes, which
	// run detached from the request context.
	WriteTimeout time.Duration
}

type chatService struct {
	chats     repository.ChatRepository
	usage     repository.UsageRepository
	policy    *UsagePolicy
	generator Generator
	clock     repository.Clock
	opts      ChatOptions
}

func NewChatService(
	chats repository.ChatRepository,
	usage repository.UsageRepository,
	policy *UsagePolicy,
	generator Generator,
	clock repository.Clock,
	opts ChatOptions,
) ChatService {
	if opts.Enforcement == "" {
		opts.Enforcement = config.SoftEnforcement
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &chatService{
		chats:     chats,
		usage:     usage,
		policy:    policy,
		generator: generator,
		clock:     clock,
		opts:      opts,
	}
}

func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	tone, err := validateMessage(in)
	if err != nil {
		return nil, err
	}
	received := s.clock().UTC()

	rec, err := s.usage.GetUsage(ctx, in.UserID)
	if err != nil {
		logger.LogEvent(logrus.WarnLevel, "Usage read failed, admitting as new user", logrus.Fields{
			"user_id": in.UserID,
			"error":   err.Error(),
		})
		rec = nil
	}
	unknown := rec == nil
	var decision Decision
	if unknown {
		rec = &models.UsageRecord{UserID: in.UserID}
		decision = s.policy.EvaluateUnknown()
	} else {
		decision = s.policy.Evaluate(rec.DailyUsage, rec.IsPremium)
		if !decision.Allowed {
			return nil, s.denied(in.UserID, decision.Usage, rec.IsPremium, decision.Limit)
		}
	}

	chat, history, err := s.resolveChat(ctx, in.UserID, in.ChatID)
	if err != nil {
		return nil, err
	}

	hard := s.opts.Enforcement == config.HardEnforcement
	if hard && unknown {
		// Unknown users are admitted regardless of the limit, so the slot is
		// taken unconditionally.
		if err := s.usage.IncrementUsage(ctx, in.UserID); err != nil {
			return nil, errors.Unavailable(err, "failed to reserve usage")
		}
	} else if hard {
		ok, err := s.usage.IncrementUsageIfBelow(ctx, in.UserID, decision.Limit)
		if err != nil {
			return nil, errors.Unavailable(err, "failed to reserve usage")
		}
		if !ok {
			return nil, s.denied(in.UserID, max(decision.Usage, decision.Limit), rec.IsPremium, decision.Limit)
		}
	}

	reply, genErr := s.generator.Generate(ctx, GenerateRequest{
		Tone:      tone,
		History:   history,
		Content:   in.Content,
		IsPremium: rec.IsPremium,
	})

	// From here on the work is done and must be accounted even if the
	// caller goes away.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WriteTimeout)
	defer cancel()

	if genErr != nil || reply == "" {
		return s.degraded(wctx, in, chat, genErr, hard, decision), nil
	}

	if !hard {
		if err := s.usage.IncrementUsage(wctx, in.UserID); err != nil {
			return nil, errors.Unavailable(err, "failed to record usage")
		}
	}

	userMsg := &models.Message{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Sender:    models.SenderUser,
		Content:   in.Content,
		Tone:      tone,
		Timestamp: received,
	}
	aiMsg := &models.Message{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Sender:    models.SenderAI,
		Content:   reply,
		Tone:      tone,
		Timestamp: s.clock().UTC(),
	}
	if !aiMsg.Timestamp.After(userMsg.Timestamp) {
		aiMsg.Timestamp = userMsg.Timestamp.Add(time.Millisecond)
	}

	chatID := s.persist(wctx, in, chat, userMsg, aiMsg)

	return &SendMessageResult{
		MessageID: aiMsg.ID,
		ChatID:    chatID,
		Content:   reply,
		Timestamp: aiMsg.Timestamp.Format(time.RFC3339),
		Limit:     decision.Limit,
		Remaining: max(0, decision.Remaining-1),
	}, nil
}

func validateMessage(in SendMessageInput) (models.Tone, error) {
	if in.UserID == "" {
		return "", errors.Invalid("user id is required")
	}
	n := utf8.RuneCountInString(in.Content)
	if n == 0 {
		return "", errors.Invalid("content is required")
	}
	if n > MaxContentRunes {
		return "", errors.Invalid(fmt.Sprintf("content exceeds %d characters", MaxContentRunes))
	}
	tone, err := models.ParseTone(string(in.Tone))
	if err != nil {
		return "", errors.Invalid(err.Error())
	}
	return tone, nil
}

func (s *chatService) denied(userID string, usage int64, isPremium bool, limit int64) error {
	logger.LogEvent(logrus.InfoLevel, "Daily quota exceeded", logrus.Fields{
		"user_id":    userID,
		"usage":      usage,
		"limit":      limit,
		"is_premium": isPremium,
	})
	return &QuotaExceededError{Limit: limit, Usage: usage, IsPremium: isPremium}
}

// resolveChat returns the chat the message belongs to, nil for a new chat,
// and its recent history.
func (s *chatService) resolveChat(ctx context.Context, userID, chatID string) (*models.Chat, []models.Message, error) {
	if chatID == "" {
		return nil, nil, nil
	}

	chat, err := s.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, nil, err
	}

	if s.opts.HistoryWindow <= 0 {
		return chat, nil, nil
	}

	history, err := s.chats.ListMessages(ctx, chat.ID, s.opts.HistoryWindow)
	if err != nil {
		logger.LogEvent(logrus.WarnLevel, "Failed to load chat history", logrus.Fields{
			"chat_id": chat.ID,
			"error":   err.Error(),
		})
		history = nil
	}
	return chat, history, nil
}

func (s *chatService) ownedChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, errors.ErrNotFound
	}
	return chat, nil
}

func (s *chatService) degraded(ctx context.Context, in SendMessageInput, chat *models.Chat, genErr error, refund bool, d Decision) *SendMessageResult {
	text := emptyReplyText
	fields := logrus.Fields{"user_id": in.UserID}
	if genErr != nil {
		text = generatorErrText
		fields["error"] = genErr.Error()
	}
	logger.LogEvent(logrus.WarnLevel, "Generation failed, returning apology", fields)

	remaining := d.Remaining
	if refund {
		if err := s.usage.DecrementUsage(ctx, in.UserID); err != nil {
			logger.LogEvent(logrus.ErrorLevel, "Failed to refund reserved usage", logrus.Fields{
				"user_id": in.UserID,
				"error":   err.Error(),
			})
			remaining = max(0, remaining-1)
		}
	}

	// A new conversation still gets an id; nothing is stored under it.
	chatID := in.ChatID
	if chat != nil {
		chatID = chat.ID
	}
	if chatID == "" {
		chatID = uuid.NewString()
	}
	return &SendMessageResult{
		MessageID: uuid.NewString(),
		ChatID:    chatID,
		Content:   text,
		Timestamp: s.clock().UTC().Format(time.RFC3339),
		Degraded:  true,
		Limit:     d.Limit,
		Remaining: remaining,
	}
}

// persist stores both sides of the turn. Failures are logged only: the user
// already has the reply and has been charged for it.
func (s *chatService) persist(ctx context.Context, in SendMessageInput, chat *models.Chat, userMsg, aiMsg *models.Message) string {
	logFail := func(msg string, chatID string, err error) {
		logger.LogEvent(logrus.ErrorLevel, msg, logrus.Fields{
			"user_id": in.UserID,
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}

	if chat == nil {
		chat = &models.Chat{
			ID:        uuid.NewString(),
			UserID:    in.UserID,
			Title:     models.ChatTitle(in.Content),
			CreatedAt: userMsg.Timestamp,
			UpdatedAt: aiMsg.Timestamp,
		}
		if err := s.chats.CreateChat(ctx, chat); err != nil {
			logFail("Failed to create chat", chat.ID, err)
			return chat.ID
		}
	} else if err := s.chats.TouchChat(ctx, chat.ID, aiMsg.Timestamp); err != nil {
		logFail("Failed to update chat", chat.ID, err)
	}

	userMsg.ChatID = chat.ID
	aiMsg.ChatID = chat.ID
	if err := s.chats.AddMessages(ctx, userMsg, aiMsg); err != nil {
		logFail("Failed to save messages", chat.ID, err)
	}
	return chat.ID
}

func (s *chatService) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	chats, err := s.chats.ListChats(ctx, userID, maxChatsListed)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []models.Chat{}
	}
	return chats, nil
}

func (s *chatService) GetMessages(ctx context.Context, userID, chatID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultMessagePage
	}
	limit = min(limit, maxMessagePage)

	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	messages, err := s.chats.ListMessages(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}
