package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hospital-api/internal/booking"
	"github.com/medicore/hospital-api/internal/schedule"
)

// GET /api/slots?doctor_id=<uuid>&date=YYYY-MM-DD
func availableSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorIDStr := r.URL.Query().Get("doctor_id")
		dateStr := r.URL.Query().Get("date")

		if doctorIDStr == "" || dateStr == "" {
			writeError(w, http.StatusBadRequest, "missing_params", "doctor_id and date are required")
			return
		}

		doctorID, err := uuid.Parse(doctorIDStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		date, err := time.ParseInLocation(schedule.DateFormat, dateStr, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			if errors.Is(err, booking.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			Date:           dateStr,
			DoctorID:       doctorID,
			AvailableSlots: slots,
		})
	}
}
