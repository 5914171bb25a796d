package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SlotErrorResponse is returned when a requested slot cannot be booked; it
// carries the recomputed availability so the caller can retry immediately.
type SlotErrorResponse struct {
	Error          string   `json:"error"`
	Details        string   `json:"details,omitempty"`
	AvailableSlots []string `json:"available_slots"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
