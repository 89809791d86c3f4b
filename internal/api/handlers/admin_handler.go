package handlers

import (
	"chatmate-api/internal/services"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const adminActor = "admin"

type AdminHandler struct {
	resetService services.ResetService
	usageService services.UsageService
	validate     *validator.Validate
}

func NewAdminHandler(resetService services.ResetService, usageService services.UsageService, validate *validator.Validate) *AdminHandler {
	return &AdminHandler{
		resetService: resetService,
		usageService: usageService,
		validate:     validate,
	}
}

type setTierRequest struct {
	IsPremium *bool `json:"is_premium" validate:"required"`
}

func (h *AdminHandler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	res, err := h.resetService.ResetDaily(r.Context(), adminActor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) SetTier(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req setTierRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	status, err := h.usageService.SetTier(r.Context(), adminActor, userID, *req.IsPremium)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}
