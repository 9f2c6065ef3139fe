package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	pkgerrors "serendipity-backend/pkg/errors"
)

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// respondServiceError maps application error types to HTTP statuses
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case pkgerrors.IsValidation(err):
		respondError(w, logger, http.StatusBadRequest, err.Error())
	case pkgerrors.IsNotFound(err):
		respondError(w, logger, http.StatusNotFound, err.Error())
	case pkgerrors.IsConflict(err):
		respondError(w, logger, http.StatusConflict, err.Error())
	case pkgerrors.IsRepository(err):
		respondError(w, logger, http.StatusBadGateway, "Storage unavailable")
	default:
		respondError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}
