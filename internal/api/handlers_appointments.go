package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/medicore/hospital-api/internal/booking"
	"github.com/medicore/hospital-api/internal/schedule"
)

// POST /api/appointments
func createAppointmentHandler(svc *booking.Service, repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		date, err := time.ParseInLocation(schedule.DateFormat, req.Date, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		patient, err := repo.GetPatientByUserID(r.Context(), GetClaims(r.Context()).UserID)
		if err != nil {
			writeError(w, http.StatusForbidden, "not_a_patient", "only patients can book appointments")
			return
		}

		appt, err := svc.Book(r.Context(), doctorID, patient.ID, date, req.Slot)
		if err != nil {
			handleBookingError(w, r, svc, doctorID, date, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

// GET /api/appointments
func listAppointmentsHandler(repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())

		var (
			appts []booking.Appointment
			err   error
		)
		switch claims.Role {
		case string(booking.RoleDoctor):
			doctor, derr := doctorForUser(r, repo, claims.UserID)
			if derr != nil {
				writeError(w, http.StatusNotFound, "doctor_not_found", derr.Error())
				return
			}
			appts, err = repo.ListAppointmentsByDoctor(r.Context(), doctor.ID)
		default:
			patient, perr := repo.GetPatientByUserID(r.Context(), claims.UserID)
			if perr != nil {
				writeError(w, http.StatusNotFound, "patient_not_found", perr.Error())
				return
			}
			appts, err = repo.ListAppointmentsByPatient(r.Context(), patient.ID)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		result := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			result = append(result, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// GET /api/appointments/{id}
func getAppointmentHandler(repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, ok := loadOwnAppointment(w, r, repo)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// PATCH /api/appointments/{id}
func updateAppointmentHandler(svc *booking.Service, repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, ok := loadOwnAppointment(w, r, repo)
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		if req.Status == string(booking.StatusCancelled) {
			cancelled, err := svc.Cancel(r.Context(), appt.ID)
			if err != nil {
				handleCancelError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toAppointmentResponse(cancelled))
			return
		}

		if req.Date == "" && req.Slot == "" {
			writeError(w, http.StatusBadRequest, "missing_params", "nothing to update")
			return
		}

		dateStr := req.Date
		if dateStr == "" {
			dateStr = appt.Date.Format(schedule.DateFormat)
		}
		slot := req.Slot
		if slot == "" {
			slot = appt.Slot
		}

		date, err := time.ParseInLocation(schedule.DateFormat, dateStr, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		moved, err := svc.Reschedule(r.Context(), appt.ID, date, slot)
		if err != nil {
			handleBookingError(w, r, svc, appt.DoctorID, date, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(moved))
	}
}

// POST /api/appointments/{id}/cancel
func cancelAppointmentHandler(svc *booking.Service, repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, ok := loadOwnAppointment(w, r, repo)
		if !ok {
			return
		}

		cancelled, err := svc.Cancel(r.Context(), appt.ID)
		if err != nil {
			handleCancelError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(cancelled))
	}
}

// loadOwnAppointment fetches the appointment in the URL and checks the
// caller participates in it. It writes the error response itself.
func loadOwnAppointment(w http.ResponseWriter, r *http.Request, repo booking.Repository) (*booking.Appointment, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return nil, false
	}

	appt, err := repo.GetAppointmentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrAppointmentNotFound) {
			writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return nil, false
	}

	claims := GetClaims(r.Context())
	switch claims.Role {
	case string(booking.RoleDoctor):
		doctor, err := doctorForUser(r, repo, claims.UserID)
		if err != nil || doctor.ID != appt.DoctorID {
			writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
			return nil, false
		}
	default:
		patient, err := repo.GetPatientByUserID(r.Context(), claims.UserID)
		if err != nil || patient.ID != appt.PatientID {
			writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
			return nil, false
		}
	}

	return appt, true
}

func doctorForUser(r *http.Request, repo booking.Repository, userID uuid.UUID) (*booking.Doctor, error) {
	return repo.GetDoctorByUserID(r.Context(), userID)
}

// handleBookingError maps book/reschedule failures to the error taxonomy:
// structurally invalid or currently-held slots get a 400 carrying fresh
// availability, race-lost conflicts get a 409.
func handleBookingError(w http.ResponseWriter, r *http.Request, svc *booking.Service, doctorID uuid.UUID, date time.Time, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidSlot), errors.Is(err, booking.ErrSlotUnavailable):
		available, aerr := svc.AvailableSlots(r.Context(), doctorID, date)
		if aerr != nil {
			available = []string{}
		}
		writeJSON(w, http.StatusBadRequest, SlotErrorResponse{
			Error:          "Slot not available",
			Details:        err.Error(),
			AvailableSlots: available,
		})
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrTerminalStatus):
		writeError(w, http.StatusConflict, "terminal_status", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAlreadyCancelled):
		// Benign repeat: report the state without treating it as a hard failure.
		writeError(w, http.StatusConflict, "already_cancelled", "appointment is already cancelled")
	case errors.Is(err, booking.ErrTerminalStatus):
		writeError(w, http.StatusConflict, "terminal_status", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
