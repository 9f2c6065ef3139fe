package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"serendipity-backend/application/dto"
	appservices "serendipity-backend/application/services"
	"serendipity-backend/domain/core/entities"
	"serendipity-backend/pkg/utils"
)

// UserHandler handles user registration requests
type UserHandler struct {
	service *appservices.SocialGraphService
	logger  *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service *appservices.SocialGraphService, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// CreateUserRequest represents the request body for registering a user
type CreateUserRequest struct {
	ID          string   `json:"id" validate:"required"`
	DisplayName string   `json:"display_name,omitempty"`
	Location    string   `json:"location,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Interests   []string `json:"interests,omitempty"`
	Friends     []string `json:"friends,omitempty"`
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := entities.NewUser(req.ID, req.DisplayName)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	user.SetLocation(req.Location)
	user.SetTimezone(req.Timezone)
	user.SetInterests(req.Interests)
	if len(req.Friends) > 0 {
		user.SetRelationships(entities.Relationships{Friends: req.Friends})
	}

	if err := h.service.AddUser(r.Context(), user); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, dto.NewUserRecord(user))
}
