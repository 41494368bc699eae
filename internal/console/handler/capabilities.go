package handler

import (
	"context"
	"net/http"
)

type CapabilityLister interface {
	List(ctx context.Context) []string
	Refresh(ctx context.Context) []string
}

type CapabilitiesHandler struct {
	service CapabilityLister
}

func NewCapabilitiesHandler(s CapabilityLister) *CapabilitiesHandler {
	return &CapabilitiesHandler{service: s}
}

// List: GET /v1/capabilities (варианты для выпадающего списка required_capability)
func (h *CapabilitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"capabilities": h.service.List(r.Context())})
}

// Refresh: POST /v1/capabilities/refresh
func (h *CapabilitiesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"capabilities": h.service.Refresh(r.Context())})
}
