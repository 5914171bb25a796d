package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusBooked    Status = "booked"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	FullName     string
	CreatedAt    time.Time
}

type Doctor struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           string
	Specialization string
	Bio            string
	Available      bool
	CreatedAt      time.Time
}

type Patient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Appointment holds one booked slot. At most one non-cancelled appointment
// may exist per (doctor, date, slot); the partial unique index in
// migrations/0001_init.sql is the authoritative guard.
type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time // calendar date, time-of-day ignored
	Slot      string    // HH:MM label
	Status    Status
	CreatedAt time.Time
}

type VisitNote struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     uuid.UUID
	Notes         string
	CreatedAt     time.Time
}

type Document struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	AppointmentID *uuid.UUID
	ObjectKey     string
	DocType       string
	UploadedAt    time.Time
}
