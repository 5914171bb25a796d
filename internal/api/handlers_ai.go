package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/medicore/hospital-api/internal/ai"
	"github.com/medicore/hospital-api/internal/booking"
	"github.com/medicore/hospital-api/internal/schedule"
)

// POST /api/chat
func chatHandler(client *ai.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		claims := GetClaims(r.Context())
		messages := make([]ai.Message, 0, len(req.History)+2)
		messages = append(messages, ai.Message{Role: "system", Content: ai.SystemPromptFor(claims.Role)})
		messages = append(messages, req.History...)
		messages = append(messages, ai.Message{Role: "user", Content: req.Message})

		reply, err := client.Chat(r.Context(), messages)
		if err != nil {
			handleAIError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
	}
}

// POST /api/summarize-history?patient_id=<uuid>
// Doctors summarize any patient's visit history; patients their own.
func summarizeHistoryHandler(client *ai.Client, repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())

		var patientID uuid.UUID
		if claims.Role == string(booking.RoleDoctor) {
			id, err := uuid.Parse(r.URL.Query().Get("patient_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			patientID = id
		} else {
			patient, err := repo.GetPatientByUserID(r.Context(), claims.UserID)
			if err != nil {
				writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
				return
			}
			patientID = patient.ID
		}

		notes, err := repo.ListVisitNotesByPatient(r.Context(), patientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if len(notes) == 0 {
			writeError(w, http.StatusNotFound, "no_history", "no visit history found for this patient")
			return
		}

		var history strings.Builder
		for _, n := range notes {
			fmt.Fprintf(&history, "%s: %s\n", n.CreatedAt.Format(schedule.DateFormat), n.Notes)
		}

		reply, err := client.Chat(r.Context(), []ai.Message{
			{Role: "system", Content: ai.DoctorSystemPrompt},
			{Role: "user", Content: ai.HistorySummaryInstruction + "\n\n" + history.String()},
		})
		if err != nil {
			handleAIError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
	}
}

func handleAIError(w http.ResponseWriter, err error) {
	if errors.Is(err, ai.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "ai_unavailable", "text-completion service is not configured")
		return
	}
	writeError(w, http.StatusBadGateway, "ai_error", err.Error())
}
