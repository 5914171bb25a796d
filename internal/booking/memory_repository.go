package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hospital-api/internal/schedule"
)

// MemoryRepository is a mutex-guarded in-memory Repository. It enforces the
// same at-most-one-active-appointment-per-slot rule as the Postgres partial
// unique index, which makes it usable for tests of the race behavior.
type MemoryRepository struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*User
	doctors      map[uuid.UUID]*Doctor
	patients     map[uuid.UUID]*Patient
	appointments map[uuid.UUID]*Appointment
	visitNotes   map[uuid.UUID]*VisitNote
	documents    map[uuid.UUID]*Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[uuid.UUID]*User),
		doctors:      make(map[uuid.UUID]*Doctor),
		patients:     make(map[uuid.UUID]*Patient),
		appointments: make(map[uuid.UUID]*Appointment),
		visitNotes:   make(map[uuid.UUID]*VisitNote),
		documents:    make(map[uuid.UUID]*Document),
	}
}

func slotKey(doctorID uuid.UUID, date time.Time, slot string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date.Format(schedule.DateFormat), slot)
}

// activeSlotHeld reports whether a non-cancelled appointment other than
// exclude already holds the tuple. Callers must hold mu.
func (r *MemoryRepository) activeSlotHeld(doctorID uuid.UUID, date time.Time, slot string, exclude uuid.UUID) bool {
	key := slotKey(doctorID, date, slot)
	for _, a := range r.appointments {
		if a.ID == exclude || a.Status == StatusCancelled {
			continue
		}
		if slotKey(a.DoctorID, a.Date, a.Slot) == key {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) CreateUser(_ context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, ErrEmailTaken
		}
	}

	created := *u
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	r.users[created.ID] = &created

	out := created
	return &out, nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	out := *d
	return &out, nil
}

func (r *MemoryRepository) GetDoctorByUserID(_ context.Context, userID uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.doctors {
		if d.UserID == userID {
			out := *d
			return &out, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Doctor
	for _, d := range r.doctors {
		if d.Available {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) ListSpecializations(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var result []string
	for _, d := range r.doctors {
		if d.Available && !seen[d.Specialization] {
			seen[d.Specialization] = true
			result = append(result, d.Specialization)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (r *MemoryRepository) CreateDoctor(_ context.Context, d *Doctor) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *d
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	r.doctors[created.ID] = &created

	out := created
	return &out, nil
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	out := *p
	return &out, nil
}

func (r *MemoryRepository) GetPatientByUserID(_ context.Context, userID uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.patients {
		if p.UserID == userID {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *MemoryRepository) CreatePatient(_ context.Context, p *Patient) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *p
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	r.patients[created.ID] = &created

	out := created
	return &out, nil
}

func (r *MemoryRepository) BookedSlots(_ context.Context, doctorID uuid.UUID, date time.Time) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dateLabel := date.Format(schedule.DateFormat)
	booked := make(map[string]bool)
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date.Format(schedule.DateFormat) == dateLabel && a.Status != StatusCancelled {
			booked[a.Slot] = true
		}
	}
	return booked, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, doctorID, patientID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeSlotHeld(doctorID, date, slot, uuid.Nil) {
		return nil, ErrSlotTaken
	}

	created := &Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
		Slot:      slot,
		Status:    StatusBooked,
		CreatedAt: time.Now(),
	}
	r.appointments[created.ID] = created

	out := *created
	return &out, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool { return a.PatientID == patientID })
}

func (r *MemoryRepository) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return r.listAppointments(func(a *Appointment) bool { return a.DoctorID == doctorID })
}

func (r *MemoryRepository) listAppointments(match func(*Appointment) bool) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appointments {
		if match(a) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].Slot > result[j].Slot
	})
	return result, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to

	out := *a
	return &out, nil
}

func (r *MemoryRepository) MoveAppointment(_ context.Context, id uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != StatusBooked {
		return nil, ErrAppointmentNotFound
	}
	if r.activeSlotHeld(a.DoctorID, date, slot, id) {
		return nil, ErrSlotTaken
	}
	a.Date = date
	a.Slot = slot

	out := *a
	return &out, nil
}

func (r *MemoryRepository) FindPastBooked(_ context.Context, now time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	today := now.Format(schedule.DateFormat)
	cutoff := now.Format("15:04")

	var result []Appointment
	for _, a := range r.appointments {
		if a.Status != StatusBooked {
			continue
		}
		date := a.Date.Format(schedule.DateFormat)
		if date < today || (date == today && a.Slot < cutoff) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *MemoryRepository) HasVisitNote(_ context.Context, appointmentID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.visitNotes {
		if n.AppointmentID == appointmentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) CreateVisitNote(_ context.Context, n *VisitNote) (*VisitNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *n
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	r.visitNotes[created.ID] = &created

	out := created
	return &out, nil
}

func (r *MemoryRepository) ListVisitNotesByPatient(_ context.Context, patientID uuid.UUID) ([]VisitNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []VisitNote
	for _, n := range r.visitNotes {
		if n.PatientID == patientID {
			result = append(result, *n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryRepository) CreateDocument(_ context.Context, d *Document) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *d
	created.ID = uuid.New()
	created.UploadedAt = time.Now()
	r.documents[created.ID] = &created

	out := created
	return &out, nil
}

func (r *MemoryRepository) ListDocumentsByPatient(_ context.Context, patientID uuid.UUID) ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Document
	for _, d := range r.documents {
		if d.PatientID == patientID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadedAt.After(result[j].UploadedAt) })
	return result, nil
}
