package gateway

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// uploadResponse is the success envelope for POST /api/photos.
type uploadResponse struct {
	Success bool     `json:"success"`
	Paths   []string `json:"paths"`
	Count   int      `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("gateway: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
