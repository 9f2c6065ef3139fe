package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"serendipity-backend/application/dto"
	appservices "serendipity-backend/application/services"
	"serendipity-backend/domain/core/entities"
	"serendipity-backend/domain/core/valueobjects"
	domainservices "serendipity-backend/domain/services"
	pkgerrors "serendipity-backend/pkg/errors"
	"serendipity-backend/pkg/utils"
)

// EventHandler handles event ingestion and query requests
type EventHandler struct {
	service *appservices.SocialGraphService
	logger  *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(service *appservices.SocialGraphService, logger *zap.Logger) *EventHandler {
	return &EventHandler{service: service, logger: logger}
}

// CreateEventRequest represents the request body for ingesting an event
type CreateEventRequest struct {
	ID         string         `json:"id,omitempty"`
	UserID     string         `json:"user_id" validate:"required"`
	Type       string         `json:"type,omitempty"`
	Content    string         `json:"content,omitempty"`
	Timestamp  string         `json:"timestamp" validate:"required"`
	Location   *dto.GeoRecord `json:"location,omitempty"`
	Mentions   []string       `json:"mentions,omitempty" validate:"omitempty,dive,required"`
	Tags       []string       `json:"tags,omitempty"`
	ParentID   string         `json:"parent_id,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	Visibility string         `json:"visibility,omitempty" validate:"omitempty,oneof=public friends private custom"`
}

// CreateEventResponse reports the ingested event and inference outcome
type CreateEventResponse struct {
	Event       dto.EventRecord        `json:"event"`
	Connections []dto.ConnectionRecord `json:"connections"`
	Dropped     []DroppedConnection    `json:"dropped,omitempty"`
}

// DroppedConnection names a connection candidate that failed to persist
type DroppedConnection struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	timestamp, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid timestamp: "+err.Error())
		return
	}

	event, err := entities.NewEvent(req.ID, req.UserID, entities.ParseEventType(req.Type), req.Content, timestamp)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if req.Location != nil {
		loc, err := valueobjects.NewGeoLocation(req.Location.Latitude, req.Location.Longitude, req.Location.Address, req.Location.Venue)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		event.SetLocation(loc)
	}
	event.SetMentions(req.Mentions)
	event.SetTags(req.Tags)
	event.SetParentID(req.ParentID)
	event.SetTargetID(req.TargetID)
	event.UpdateVisibility(entities.ParseVisibility(req.Visibility))

	result, err := h.service.AddEvent(r.Context(), event)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	response := CreateEventResponse{
		Event:       dto.NewEventRecord(event),
		Connections: make([]dto.ConnectionRecord, 0, len(result.Committed)),
	}
	for _, conn := range result.Committed {
		response.Connections = append(response.Connections, dto.NewConnectionRecord(conn))
	}
	for _, dropped := range result.Dropped {
		response.Dropped = append(response.Dropped, DroppedConnection{
			ID:    dropped.Connection.ID(),
			Error: dropped.Err.Error(),
		})
	}
	respondJSON(w, h.logger, http.StatusCreated, response)
}

// CreateConnectionRequest represents the request body for an explicit connection
type CreateConnectionRequest struct {
	FromEventID string  `json:"from_event_id" validate:"required"`
	ToEventID   string  `json:"to_event_id" validate:"required"`
	Type        string  `json:"type" validate:"required"`
	Strength    float64 `json:"strength" validate:"gte=0,lte=1"`
	Confidence  float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// CreateConnection handles POST /connections
func (h *EventHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	conn, err := entities.NewConnection(
		req.FromEventID, req.ToEventID,
		entities.ConnectionType(req.Type), req.Strength,
		entities.ConnectionMetadata{Confidence: req.Confidence})
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.AddConnection(r.Context(), conn); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, dto.NewConnectionRecord(conn))
}

// QueryEvents handles GET /events with combinable filter query parameters
func (h *EventHandler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	conditions := appservices.QueryConditions{}

	query := r.URL.Query()
	if userIDs, ok := query["user_id"]; ok {
		conditions.UserIDs = userIDs
	}
	for _, raw := range query["type"] {
		conditions.EventTypes = append(conditions.EventTypes, entities.ParseEventType(raw))
	}
	dateRange, err := parseDateRange(query.Get("since"), query.Get("until"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	conditions.DateRange = dateRange
	if raw := query.Get("has_location"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid has_location: "+raw)
			return
		}
		conditions.HasLocation = &value
	}
	if raw := query.Get("has_mentions"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid has_mentions: "+raw)
			return
		}
		conditions.HasMentions = &value
	}
	if raw := query.Get("min_connections"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid min_connections: "+raw)
			return
		}
		conditions.MinConnections = value
	}

	events, err := h.service.Query(r.Context(), conditions)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, eventRecords(events))
}

// GetUserEvents handles GET /users/{userID}/events
func (h *EventHandler) GetUserEvents(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, h.logger, http.StatusBadRequest, "User ID is required")
		return
	}

	filter := domainservices.POVFilter{}
	dateRange, err := parseDateRange(r.URL.Query().Get("since"), r.URL.Query().Get("until"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	filter.DateRange = dateRange
	for _, raw := range r.URL.Query()["type"] {
		filter.EventTypes = append(filter.EventTypes, entities.ParseEventType(raw))
	}

	events, err := h.service.GetEventsByUser(r.Context(), userID, filter)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, eventRecords(events))
}

// POVQueryRequest represents the request body for a point-of-view traversal
type POVQueryRequest struct {
	UserID             string   `json:"user_id" validate:"required"`
	IncludeConnections bool     `json:"include_connections"`
	MaxDegrees         int      `json:"max_degrees" validate:"gte=0,lte=6"`
	EventTypes         []string `json:"event_types,omitempty"`
	Since              string   `json:"since,omitempty"`
	Until              string   `json:"until,omitempty"`
	Latitude           *float64 `json:"lat,omitempty"`
	Longitude          *float64 `json:"lng,omitempty"`
	RadiusMeters       float64  `json:"radius_meters,omitempty" validate:"gte=0"`
}

// EventsFromPOV handles POST /pov/query
func (h *EventHandler) EventsFromPOV(w http.ResponseWriter, r *http.Request) {
	var req POVQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	filter := domainservices.POVFilter{
		UserID:             req.UserID,
		IncludeConnections: req.IncludeConnections,
		MaxDegrees:         req.MaxDegrees,
	}
	for _, raw := range req.EventTypes {
		filter.EventTypes = append(filter.EventTypes, entities.ParseEventType(raw))
	}
	dateRange, err := parseDateRange(req.Since, req.Until)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	filter.DateRange = dateRange
	if req.Latitude != nil && req.Longitude != nil {
		center, err := valueobjects.NewGeoLocation(*req.Latitude, *req.Longitude, "", "")
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		filter.LocationRadius = &domainservices.LocationRadius{Center: center, Meters: req.RadiusMeters}
	}

	events, err := h.service.GetEventsFromPOV(r.Context(), filter)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, eventRecords(events))
}

func eventRecords(events []*entities.Event) []dto.EventRecord {
	records := make([]dto.EventRecord, 0, len(events))
	for _, event := range events {
		records = append(records, dto.NewEventRecord(event))
	}
	return records
}

func parseDateRange(since, until string) (*valueobjects.TimeRange, error) {
	if since == "" && until == "" {
		return nil, nil
	}
	start := time.Time{}
	end := time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	if since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, pkgerrors.NewValidation("invalid since: " + err.Error())
		}
		start = parsed
	}
	if until != "" {
		parsed, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return nil, pkgerrors.NewValidation("invalid until: " + err.Error())
		}
		end = parsed
	}
	tr := valueobjects.NewTimeRange(start, end)
	return &tr, nil
}
