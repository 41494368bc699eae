package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"
	"github.com/xela07ax/restguard/internal/domain"
	"github.com/xela07ax/restguard/internal/updater"
	"go.uber.org/zap"
)

type UpdateChecker interface {
	CurrentVersion() string
	Configured(ctx context.Context) bool
	Check(ctx context.Context, bypassCache bool) *domain.UpdateInfo
	PluginInfo(ctx context.Context) (*domain.PluginInfo, error)
	ReleaseByTag(ctx context.Context, tag string) (*domain.Release, error)
	ClearCache(ctx context.Context) error
}

type UpdatesHandler struct {
	updater UpdateChecker
	logger  *zap.Logger
}

func NewUpdatesHandler(u UpdateChecker, logger *zap.Logger) *UpdatesHandler {
	return &UpdatesHandler{updater: u, logger: logger}
}

type updateStatus struct {
	CurrentVersion string             `json:"current_version"`
	Configured     bool               `json:"configured"`
	Update         *domain.UpdateInfo `json:"update"`
}

// Check: GET /v1/updates[?force=1]
func (h *UpdatesHandler) Check(w http.ResponseWriter, r *http.Request) {
	force := cast.ToBool(r.URL.Query().Get("force"))
	writeJSON(w, http.StatusOK, updateStatus{
		CurrentVersion: h.updater.CurrentVersion(),
		Configured:     h.updater.Configured(r.Context()),
		Update:         h.updater.Check(r.Context(), force),
	})
}

// Info: GET /v1/updates/info
func (h *UpdatesHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.updater.PluginInfo(r.Context())
	if err != nil {
		if errors.Is(err, updater.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Warn("release details unavailable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "release details unavailable")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Release: GET /v1/updates/release/{tag}, конкретный релиз мимо кэша (откат, сверка).
func (h *UpdatesHandler) Release(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	rel, err := h.updater.ReleaseByTag(r.Context(), tag)
	if err != nil {
		if errors.Is(err, updater.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Warn("release lookup failed", zap.String("tag", tag), zap.Error(err))
		writeError(w, http.StatusBadGateway, "release unavailable")
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// ClearCache: POST /v1/updates/cache/clear
func (h *UpdatesHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.updater.ClearCache(r.Context()); err != nil {
		if errors.Is(err, updater.ErrNotConfigured) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("release cache clear failed", zap.Error(err))
		http.Error(w, "Failed to clear cache", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
