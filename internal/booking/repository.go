package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the storage layer reporting that the partial unique
	// index over (doctor_id, date, slot) rejected a write.
	ErrSlotTaken = errors.New("slot already booked")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// GetDoctorByUserID resolves the doctor row for an authenticated user.
	// Unlike ListDoctors it is not filtered on the roster flag: a doctor taken
	// off the roster still owns their existing appointments.
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	ListSpecializations(ctx context.Context) ([]string, error)
	CreateDoctor(ctx context.Context, d *Doctor) (*Doctor, error)

	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)

	// BookedSlots is the ledger query: HH:MM labels of every non-cancelled
	// appointment for the doctor on the date.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[string]bool, error)

	// CreateAppointment inserts a new booked appointment and returns
	// ErrSlotTaken when the uniqueness constraint fires.
	CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time, slot string) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)

	// UpdateAppointmentStatus is a compare-and-set: the row moves from -> to
	// or the call fails with ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// MoveAppointment rewrites date/slot in place for a booked appointment.
	// The unique index arbitrates conflicts with other rows; the row's own
	// old tuple never blocks the move.
	MoveAppointment(ctx context.Context, id uuid.UUID, date time.Time, slot string) (*Appointment, error)

	// Completion worker support.
	FindPastBooked(ctx context.Context, now time.Time) ([]Appointment, error)
	HasVisitNote(ctx context.Context, appointmentID uuid.UUID) (bool, error)
	CreateVisitNote(ctx context.Context, n *VisitNote) (*VisitNote, error)
	ListVisitNotesByPatient(ctx context.Context, patientID uuid.UUID) ([]VisitNote, error)

	CreateDocument(ctx context.Context, d *Document) (*Document, error)
	ListDocumentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Document, error)
}
