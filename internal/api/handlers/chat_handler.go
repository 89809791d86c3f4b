package handlers

import (
	"chatmate-api/internal/middleware"
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"chatmate-api/internal/repository"
	"chatmate-api/internal/services"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type ChatHandler struct {
	chatService services.ChatService
	validate    *validator.Validate
	clock       repository.Clock
}

func NewChatHandler(chatService services.ChatService, validate *validator.Validate, clock repository.Clock) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		validate:    validate,
		clock:       clock,
	}
}

type sendMessageRequest struct {
	ChatID  string `json:"chat_id" validate:"omitempty,max=64"`
	Content string `json:"content" validate:"required,min=1,max=4000"`
	Tone    string `json:"tone" validate:"omitempty,oneof=friendly professional tutor"`
}

type rateLimitResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Limit     int64  `json:"limit"`
	Usage     int64  `json:"usage"`
	IsPremium bool   `json:"is_premium"`
}

type chatListResponse struct {
	Chats []models.Chat `json:"chats"`
	Total int           `json:"total"`
}

type messageListResponse struct {
	Messages []models.Message `json:"messages"`
	Total    int              `json:"total"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := services.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req sendMessageRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	res, err := h.chatService.SendMessage(r.Context(), services.SendMessageInput{
		UserID:  identity.UserID,
		ChatID:  req.ChatID,
		Content: req.Content,
		Tone:    models.Tone(req.Tone),
	})

	reset := models.NextMidnight(h.clock())

	var quotaErr *services.QuotaExceededError
	if errors.As(err, &quotaErr) {
		middleware.SetRateLimitHeaders(w, quotaErr.Limit, 0, reset)
		respondWithJSON(w, http.StatusTooManyRequests, rateLimitResponse{
			Error:     "rate_limit_exceeded",
			Message:   quotaErr.UserMessage(),
			Limit:     quotaErr.Limit,
			Usage:     quotaErr.Usage,
			IsPremium: quotaErr.IsPremium,
		})
		return
	}
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	middleware.SetRateLimitHeaders(w, res.Limit, res.Remaining, reset)
	respondWithJSON(w, http.StatusOK, res)
}

func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	identity, ok := services.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chats, err := h.chatService.ListChats(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, chatListResponse{Chats: chats, Total: len(chats)})
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := services.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID := mux.Vars(r)["chat_id"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.chatService.GetMessages(r.Context(), identity.UserID, chatID, limit)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, messageListResponse{Messages: messages, Total: len(messages)})
}
