package handlers

import (
	"chatmate-api/internal/logger"
	"chatmate-api/internal/services"
	"net/http"

	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Verify confirms the bearer token, which AuthMiddleware already checked,
// and records the login.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := services.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.authService.RecordLogin(r.Context(), identity); err != nil {
		logger.LogEvent(logrus.WarnLevel, "Failed to record login", logrus.Fields{
			"user_id": identity.UserID,
			"error":   err.Error(),
		})
	}

	respondWithJSON(w, http.StatusOK, verifyResponse{
		Valid:  true,
		UserID: identity.UserID,
		Email:  identity.Email,
	})
}
