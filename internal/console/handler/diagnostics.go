package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/restguard/internal/console/service"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/infra/auth"
	"go.uber.org/zap"
)

type Diagnostics interface {
	Nonce(id *domain.Identity) string
	Test(ctx context.Context, id *domain.Identity, nonce string, scenario domain.Scenario) (domain.TestResult, error)
}

type DiagnosticsHandler struct {
	service Diagnostics
	logger  *zap.Logger
}

func NewDiagnosticsHandler(s Diagnostics, logger *zap.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{service: s, logger: logger}
}

type testRequest struct {
	Nonce    string          `json:"nonce"`
	Scenario domain.Scenario `json:"scenario"`
}

// Nonce: GET /v1/protection/nonce
func (h *DiagnosticsHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"nonce": h.service.Nonce(auth.IdentityFromContext(r.Context()))})
}

// Test: POST /v1/protection/test: результат симуляции без запроса к WordPress.
func (h *DiagnosticsHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res, err := h.service.Test(r.Context(), auth.IdentityFromContext(r.Context()), req.Nonce, req.Scenario)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidNonce):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrUnknownScenario):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("protection test failed", zap.Error(err))
			http.Error(w, "Failed to run test", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}
