package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"serendipity-backend/application/dto"
	appservices "serendipity-backend/application/services"
	"serendipity-backend/domain/core/aggregates"
)

// GraphHandler handles analytics, timeline and snapshot requests
type GraphHandler struct {
	service *appservices.SocialGraphService
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(service *appservices.SocialGraphService, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{service: service, logger: logger}
}

// GetMetrics handles GET /graph/metrics
func (h *GraphHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.service.CalculateMetrics()
	respondJSON(w, h.logger, http.StatusOK, metrics)
}

// TimelineResponse carries a user's ordered events, the connections among
// them and the derived insights
type TimelineResponse struct {
	UserID      string                 `json:"user_id"`
	Events      []dto.EventRecord      `json:"events"`
	Connections []dto.ConnectionRecord `json:"connections"`
	Insights    aggregates.Insights    `json:"insights"`
}

// GetTimeline handles GET /users/{userID}/timeline
func (h *GraphHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, h.logger, http.StatusBadRequest, "User ID is required")
		return
	}

	events, connections, insights := h.service.Timeline(userID)
	response := TimelineResponse{
		UserID:      userID,
		Events:      eventRecords(events),
		Connections: make([]dto.ConnectionRecord, 0, len(connections)),
		Insights:    insights,
	}
	for _, conn := range connections {
		response.Connections = append(response.Connections, dto.NewConnectionRecord(conn))
	}
	respondJSON(w, h.logger, http.StatusOK, response)
}

// ExportGraph handles GET /graph/export
func (h *GraphHandler) ExportGraph(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.service.ExportGraph())
}

// ImportGraph handles POST /graph/import
func (h *GraphHandler) ImportGraph(w http.ResponseWriter, r *http.Request) {
	var export dto.GraphExport
	if err := json.NewDecoder(r.Body).Decode(&export); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.service.ImportGraph(r.Context(), &export); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Graph imported"})
}
