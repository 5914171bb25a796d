package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/medicore/hospital-api/internal/redis"
	"github.com/medicore/hospital-api/internal/schedule"
)

var (
	// ErrSlotUnavailable means the slot is structurally valid but already
	// held; callers should re-query availability and pick another.
	ErrSlotUnavailable = errors.New("slot not available")

	// ErrAlreadyCancelled is the benign outcome of cancelling twice.
	ErrAlreadyCancelled = errors.New("appointment already cancelled")

	// ErrTerminalStatus rejects transitions out of cancelled or completed.
	ErrTerminalStatus = errors.New("appointment is in a terminal status")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	sched  schedule.Config
	log    zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, sched schedule.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		sched:  sched,
		log:    log,
		now:    time.Now,
	}
}

// AvailableSlots returns the bookable slot labels for a doctor on a date:
// the day's generated slots minus the booked ledger, with already-elapsed
// slots dropped when the date is today. Doctors not accepting bookings are
// indistinguishable from unknown ones.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Available {
		return nil, ErrDoctorNotFound
	}

	booked, err := s.repo.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}

	now := s.now()
	sameDay := date.Format(schedule.DateFormat) == now.Format(schedule.DateFormat)

	available := make([]string, 0)
	for _, slot := range s.sched.DailySlots(date) {
		if booked[slot] {
			continue
		}
		if sameDay {
			m, err := schedule.ParseSlot(slot)
			if err != nil {
				return nil, err
			}
			if m <= schedule.MinuteOf(now) {
				continue
			}
		}
		available = append(available, slot)
	}

	return available, nil
}

// Book reserves a slot for a patient. The availability check before the
// critical section is advisory; the final arbiter is the partial unique
// index over (doctor_id, date, slot), surfaced here as ErrSlotTaken.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	if _, err := s.sched.ValidateSlot(slot, date, s.now()); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	available, err := s.AvailableSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if !contains(available, slot) {
		return nil, ErrSlotUnavailable
	}

	var created *Appointment
	dateLabel := date.Format(schedule.DateFormat)

	err = s.locker.WithSlotLock(ctx, doctorID, dateLabel, slot, func(lockCtx context.Context) error {
		// Re-check inside the critical section; a hit here means we lost
		// the race since the advisory check above.
		booked, err := s.repo.BookedSlots(lockCtx, doctorID, date)
		if err != nil {
			return fmt.Errorf("re-check booked slots: %w", err)
		}
		if booked[slot] {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateAppointment(lockCtx, doctorID, patientID, date, slot)
		if err != nil {
			return err
		}
		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", doctorID.String()).
		Str("date", dateLabel).
		Str("slot", slot).
		Msg("appointment booked")

	return created, nil
}

// Cancel marks an appointment cancelled, freeing its slot immediately.
// Cancelling twice is a no-op reported as ErrAlreadyCancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch appt.Status {
	case StatusCancelled:
		return appt, ErrAlreadyCancelled
	case StatusCompleted:
		return nil, ErrTerminalStatus
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusBooked, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with another transition; report the current state.
			current, getErr := s.repo.GetAppointmentByID(ctx, id)
			if getErr == nil && current.Status == StatusCancelled {
				return current, ErrAlreadyCancelled
			}
			return nil, ErrTerminalStatus
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.log.Info().Str("appointment_id", id.String()).Msg("appointment cancelled")
	return updated, nil
}

// Reschedule moves a booked appointment to a new date/slot after running the
// full validation and availability check against the target. The
// appointment's own slot does not count as a conflict, so moving to the same
// slot is a no-op that succeeds.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusBooked {
		return nil, ErrTerminalStatus
	}

	if _, err := s.sched.ValidateSlot(slot, date, s.now()); err != nil {
		return nil, err
	}

	dateLabel := date.Format(schedule.DateFormat)
	ownSlot := appt.Date.Format(schedule.DateFormat) == dateLabel && appt.Slot == slot

	if !ownSlot {
		available, err := s.AvailableSlots(ctx, appt.DoctorID, date)
		if err != nil {
			return nil, err
		}
		if !contains(available, slot) {
			return nil, ErrSlotUnavailable
		}
	}

	var moved *Appointment
	err = s.locker.WithSlotLock(ctx, appt.DoctorID, dateLabel, slot, func(lockCtx context.Context) error {
		m, err := s.repo.MoveAppointment(lockCtx, id, date, slot)
		if err != nil {
			return err
		}
		moved = m
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", id.String()).
		Str("date", dateLabel).
		Str("slot", slot).
		Msg("appointment rescheduled")

	return moved, nil
}

// CompletePast is the worker entry point: it moves booked appointments whose
// date and slot have passed into completed, writing a visit note stub when
// none exists yet. Returns how many appointments were completed.
func (s *Service) CompletePast(ctx context.Context) (int, error) {
	candidates, err := s.repo.FindPastBooked(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find past booked appointments: %w", err)
	}

	completed := 0
	for _, appt := range candidates {
		if _, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusBooked, StatusCompleted); err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to complete appointment")
			}
			continue
		}
		completed++

		hasNote, err := s.repo.HasVisitNote(ctx, appt.ID)
		if err != nil {
			s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to check visit note")
			continue
		}
		if !hasNote {
			_, err := s.repo.CreateVisitNote(ctx, &VisitNote{
				AppointmentID: appt.ID,
				DoctorID:      appt.DoctorID,
				PatientID:     appt.PatientID,
				Notes:         fmt.Sprintf("Appointment completed on %s", appt.Date.Format(schedule.DateFormat)),
			})
			if err != nil {
				s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to create visit note")
			}
		}
	}

	return completed, nil
}

func contains(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
