package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

// slotLabel normalizes a TIME column value to the HH:MM label format used
// everywhere above the storage layer.
func slotLabel(t pgtype.Time) string {
	mins := t.Microseconds / int64(time.Minute/time.Microsecond)
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.Bio, &d.Available, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slot pgtype.Time

	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &slot, &a.Status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Slot = slotLabel(slot)
	return &a, nil
}

const appointmentCols = "id, doctor_id, patient_id, date, slot, status, created_at"

// Users

func (r *PgRepository) CreateUser(ctx context.Context, u *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, full_name, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, email, password_hash, role, full_name, created_at
	`, uuid.New(), u.Email, u.PasswordHash, u.Role, u.FullName)

	created, err := scanUser(row)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	return created, err
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, full_name, created_at
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

// Doctors

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, specialization, bio, available, created_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, specialization, bio, available, created_at
		FROM doctors
		WHERE user_id = $1
	`, userID)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, specialization, bio, available, created_at
		FROM doctors
		WHERE available
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListSpecializations(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT specialization
		FROM doctors
		WHERE available
		ORDER BY specialization
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, name, specialization, bio, available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, user_id, name, specialization, bio, available, created_at
	`, uuid.New(), d.UserID, d.Name, d.Specialization, d.Bio, d.Available)
	return scanDoctor(row)
}

// Patients

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, created_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, name, created_at
		FROM patients
		WHERE user_id = $1
	`, userID)
	return scanPatient(row)
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, user_id, name, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, user_id, name, created_at
	`, uuid.New(), p.UserID, p.Name)
	return scanPatient(row)
}

// Appointments

func (r *PgRepository) BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2::date
		  AND status <> 'cancelled'
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	booked := make(map[string]bool)
	for rows.Next() {
		var slot pgtype.Time
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		booked[slotLabel(slot)] = true
	}
	return booked, rows.Err()
}

func (r *PgRepository) CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, slot, status, created_at)
		VALUES ($1, $2, $3, $4::date, $5::time, 'booked', now())
		RETURNING `+appointmentCols+`
	`, uuid.New(), doctorID, patientID, date, slot)

	appt, err := scanAppointment(row)
	if isUniqueViolation(err) {
		return nil, ErrSlotTaken
	}
	return appt, err
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return r.listAppointments(ctx, "patient_id", patientID)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return r.listAppointments(ctx, "doctor_id", doctorID)
}

func (r *PgRepository) listAppointments(ctx context.Context, col string, id uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE `+col+` = $1
		ORDER BY date DESC, slot DESC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentCols+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) MoveAppointment(ctx context.Context, id uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2::date,
		    slot = $3::time
		WHERE id = $1
		  AND status = 'booked'
		RETURNING `+appointmentCols+`
	`, id, date, slot)

	appt, err := scanAppointment(row)
	if isUniqueViolation(err) {
		return nil, ErrSlotTaken
	}
	return appt, err
}

func (r *PgRepository) FindPastBooked(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE status = 'booked'
		  AND (date < $1::date OR (date = $1::date AND slot < $2::time))
	`, now, now.Format("15:04"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// Visit notes

func (r *PgRepository) HasVisitNote(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM visit_notes WHERE appointment_id = $1)
	`, appointmentID).Scan(&exists)
	return exists, err
}

func (r *PgRepository) CreateVisitNote(ctx context.Context, n *VisitNote) (*VisitNote, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO visit_notes (id, appointment_id, doctor_id, patient_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, appointment_id, doctor_id, patient_id, notes, created_at
	`, uuid.New(), n.AppointmentID, n.DoctorID, n.PatientID, n.Notes)

	var created VisitNote
	err := row.Scan(&created.ID, &created.AppointmentID, &created.DoctorID, &created.PatientID, &created.Notes, &created.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *PgRepository) ListVisitNotesByPatient(ctx context.Context, patientID uuid.UUID) ([]VisitNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, doctor_id, patient_id, notes, created_at
		FROM visit_notes
		WHERE patient_id = $1
		ORDER BY created_at
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []VisitNote
	for rows.Next() {
		var n VisitNote
		if err := rows.Scan(&n.ID, &n.AppointmentID, &n.DoctorID, &n.PatientID, &n.Notes, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// Documents

func (r *PgRepository) CreateDocument(ctx context.Context, d *Document) (*Document, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO documents (id, patient_id, appointment_id, object_key, doc_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, patient_id, appointment_id, object_key, doc_type, uploaded_at
	`, uuid.New(), d.PatientID, d.AppointmentID, d.ObjectKey, d.DocType)

	var created Document
	err := row.Scan(&created.ID, &created.PatientID, &created.AppointmentID, &created.ObjectKey, &created.DocType, &created.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *PgRepository) ListDocumentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, appointment_id, object_key, doc_type, uploaded_at
		FROM documents
		WHERE patient_id = $1
		ORDER BY uploaded_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.PatientID, &d.AppointmentID, &d.ObjectKey, &d.DocType, &d.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
