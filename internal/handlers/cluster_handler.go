package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

// ClusterSuggester produces keyword cluster suggestions
type ClusterSuggester interface {
	Suggest(ctx context.Context, req models.ClusterRequest) (*models.ClusterSuggestion, error)
}

// ClusterHandler serves keyword cluster suggestions
type ClusterHandler struct {
	generator ClusterSuggester
	logger    arbor.ILogger
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(generator ClusterSuggester, logger arbor.ILogger) *ClusterHandler {
	return &ClusterHandler{generator: generator, logger: logger}
}

// SuggestHandler returns a pillar/supporting cluster for a seed topic
// POST /api/clusters {"topic": "invoicing", "website_id": "...", "count": 8}
func (h *ClusterHandler) SuggestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ClusterRequest
	if err := DecodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestion, err := h.generator.Suggest(r.Context(), req)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Suggest cluster")
		return
	}
	WriteJSON(w, http.StatusOK, suggestion)
}
