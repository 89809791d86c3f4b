package handlers

import (
	"chatmate-api/internal/middleware"
	"chatmate-api/internal/services"
	"net/http"
)

type UsageHandler struct {
	usageService services.UsageService
}

func NewUsageHandler(usageService services.UsageService) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
	}
}

func (h *UsageHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := services.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.usageService.GetStatus(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	middleware.SetRateLimitHeaders(w, status.DailyLimit, status.RemainingMessages, status.ResetsAt)
	respondWithJSON(w, http.StatusOK, status)
}
