package handlers

import (
	"chatmate-api/internal/repository"
	"chatmate-api/internal/services"
	"net/http"
	"strconv"
)

type AuditLogHandler struct {
	auditLogService services.AuditLogService
}

func NewAuditLogHandler(auditLogService services.AuditLogService) *AuditLogHandler {
	return &AuditLogHandler{auditLogService: auditLogService}
}

// ListAuditLogs serves GET /admin/audit-logs?action=&user_id=&before=&limit=.
func (h *AuditLogHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := repository.AuditQuery{
		Action:   query.Get("action"),
		EntityID: query.Get("user_id"),
	}

	if v := query.Get("before"); v != "" {
		before, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "before must be an audit entry id")
			return
		}
		q.BeforeID = uint(before)
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}

	page, err := h.auditLogService.List(r.Context(), q)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}
