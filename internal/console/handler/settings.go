package handler

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/xela07ax/restguard/internal/console/service"
	"github.com/xela07ax/restguard/internal/domain"
	"go.uber.org/zap"
)

type SettingsService interface {
	Get(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, raw map[string]any) (domain.Settings, error)
}

type SettingsHandler struct {
	service SettingsService
	logger  *zap.Logger
}

func NewSettingsHandler(s SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{service: s, logger: logger}
}

// Get: GET /v1/settings (токен замаскирован)
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("settings read failed", zap.Error(err))
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, service.Masked(st))
}

// Update: PUT /v1/settings. Принимает JSON или обычную форму.
// Некорректные значения исправляются молча, в ответе то, что сохранено.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	raw, err := readForm(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	st, err := h.service.Update(r.Context(), raw)
	if err != nil {
		h.logger.Error("settings update failed", zap.Error(err))
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, service.Masked(st))
}

func readForm(r *http.Request) (map[string]any, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		raw := make(map[string]any, len(r.PostForm))
		for k := range r.PostForm {
			raw[k] = r.PostForm.Get(k)
		}
		return raw, nil
	}

	raw := map[string]any{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
