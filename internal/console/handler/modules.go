package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/modules"
	"go.uber.org/zap"
)

type ModuleManager interface {
	States(ctx context.Context) ([]domain.ModuleState, error)
	Enable(ctx context.Context, id string) (domain.Settings, error)
	Disable(ctx context.Context, id string) (domain.Settings, error)
}

type ModulesHandler struct {
	manager ModuleManager
	logger  *zap.Logger
}

func NewModulesHandler(m ModuleManager, logger *zap.Logger) *ModulesHandler {
	return &ModulesHandler{manager: m, logger: logger}
}

// List: GET /v1/modules
func (h *ModulesHandler) List(w http.ResponseWriter, r *http.Request) {
	states, err := h.manager.States(r.Context())
	if err != nil {
		h.logger.Error("modules read failed", zap.Error(err))
		http.Error(w, "Failed to load modules", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

// Enable: POST /v1/modules/{id}/enable
func (h *ModulesHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.manager.Enable)
}

// Disable: POST /v1/modules/{id}/disable
func (h *ModulesHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.manager.Disable)
}

func (h *ModulesHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (domain.Settings, error)) {
	id := chi.URLParam(r, "id")
	if _, err := fn(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, modules.ErrUnknownModule):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, modules.ErrModuleLocked):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("module toggle failed", zap.String("module", id), zap.Error(err))
			http.Error(w, "Failed to update module", http.StatusInternalServerError)
		}
		return
	}
	h.List(w, r)
}
