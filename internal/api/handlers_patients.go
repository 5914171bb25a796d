package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medicore/hospital-api/internal/booking"
)

// GET /api/patients/{id}
// Doctor-facing patient detail: the patient's appointment history and visit
// notes in one response.
func patientDetailHandler(repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims.Role != string(booking.RoleDoctor) {
			writeError(w, http.StatusForbidden, "doctors_only", "only doctors can view patient details")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		patient, err := repo.GetPatientByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, booking.ErrPatientNotFound) {
				writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		appts, err := repo.ListAppointmentsByPatient(r.Context(), patient.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		notes, err := repo.ListVisitNotesByPatient(r.Context(), patient.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := PatientDetailResponse{
			ID:           patient.ID,
			Name:         patient.Name,
			Appointments: make([]AppointmentResponse, 0, len(appts)),
			VisitNotes:   make([]VisitNoteResponse, 0, len(notes)),
		}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(&appts[i]))
		}
		for _, n := range notes {
			resp.VisitNotes = append(resp.VisitNotes, VisitNoteResponse{
				ID:            n.ID,
				AppointmentID: n.AppointmentID,
				Notes:         n.Notes,
				CreatedAt:     n.CreatedAt,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
