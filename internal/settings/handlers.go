package settings

import (
	"net/http"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the settings endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /api/v1/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	current, err := h.service.Get(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "PERSISTENCE", "settings read failed", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": current})
}
