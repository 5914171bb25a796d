package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medicore/hospital-api/internal/ai"
	"github.com/medicore/hospital-api/internal/booking"
	"github.com/medicore/hospital-api/internal/schedule"
)

var validate = validator.New()

type SignupRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	FullName       string `json:"full_name" validate:"required"`
	Role           string `json:"role" validate:"required,oneof=doctor patient"`
	Specialization string `json:"specialization" validate:"required_if=Role doctor"`
	Bio            string `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type CreateAppointmentRequest struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid"`
	Date     string `json:"date" validate:"required"`
	Slot     string `json:"slot" validate:"required"`
}

type UpdateAppointmentRequest struct {
	Date   string `json:"date"`
	Slot   string `json:"slot"`
	Status string `json:"status" validate:"omitempty,oneof=cancelled"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Date      string    `json:"date"`
	Slot      string    `json:"slot"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		DoctorID:  a.DoctorID,
		PatientID: a.PatientID,
		Date:      a.Date.Format(schedule.DateFormat),
		Slot:      a.Slot,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

type SlotsResponse struct {
	Date           string    `json:"date"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	AvailableSlots []string  `json:"available_slots"`
}

type DoctorResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Bio            string    `json:"bio,omitempty"`
}

type VisitNoteResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

type PatientDetailResponse struct {
	ID           uuid.UUID             `json:"id"`
	Name         string                `json:"name"`
	Appointments []AppointmentResponse `json:"appointments"`
	VisitNotes   []VisitNoteResponse   `json:"visit_notes"`
}

type ChatRequest struct {
	Message string       `json:"message" validate:"required"`
	History []ai.Message `json:"history"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type DocumentResponse struct {
	ID          uuid.UUID `json:"id"`
	DocType     string    `json:"doc_type"`
	ObjectKey   string    `json:"object_key"`
	DownloadURL string    `json:"download_url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
