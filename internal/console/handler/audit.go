package handler

import (
	"context"
	"net/http"

	"github.com/spf13/cast"
	"github.com/xela07ax/restguard/internal/audit"
	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

type AuditReader interface {
	FetchLogs(ctx context.Context, outcome string, limit int) ([]audit.AccessEvent, error)
	Stats(ctx context.Context) (*domain.AccessStats, error)
}

type AuditHandler struct {
	service AuditReader
	logger  *zap.Logger
}

func NewAuditHandler(s AuditReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: s, logger: logger}
}

// GetLogs возвращает последние решения шлюза
// GET /v1/audit?outcome=blocked_forbidden&limit=50
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outcome := q.Get("outcome")
	switch domain.Outcome(outcome) {
	case "", domain.OutcomeAllowed, domain.OutcomeAllowedSanitized,
		domain.OutcomeBlockedUnauthenticated, domain.OutcomeBlockedForbidden:
	default:
		writeError(w, http.StatusBadRequest, "unknown outcome")
		return
	}

	logs, err := h.service.FetchLogs(r.Context(), outcome, cast.ToInt(q.Get("limit")))
	if err != nil {
		h.logger.Error("audit read failed", zap.Error(err))
		http.Error(w, "Failed to fetch audit logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// GetStats: GET /v1/audit/stats
func (h *AuditHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("audit stats failed", zap.Error(err))
		http.Error(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
