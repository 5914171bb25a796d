package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/medicore/hospital-api/internal/redis"
	"github.com/medicore/hospital-api/internal/schedule"
)

type fixture struct {
	svc     *Service
	repo    *MemoryRepository
	doctor  *Doctor
	patient *Patient
}

// newFixture builds a service over the in-memory repository with the clock
// pinned to Monday 2025-06-02 09:00 local time.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := NewMemoryRepository()
	svc := NewService(repo, redisclient.NoopLocker{}, schedule.Default(), zerolog.Nop())
	svc.now = func() time.Time {
		return time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)
	}

	doctor, err := repo.CreateDoctor(context.Background(), &Doctor{
		Name:           "Dr. Asha Rao",
		Specialization: "Cardiology",
		Available:      true,
	})
	require.NoError(t, err)

	patient, err := repo.CreatePatient(context.Background(), &Patient{Name: "Sam Okafor"})
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, doctor: doctor, patient: patient}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(schedule.DateFormat, s, time.Local)
	require.NoError(t, err)
	return d
}

func TestAvailableSlots(t *testing.T) {
	ctx := context.Background()
	monday := "2025-06-02"

	t.Run("full day when nothing is booked", func(t *testing.T) {
		f := newFixture(t)
		// Query tomorrow so the same-day filter stays out of the way.
		slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, "2025-06-03"))
		require.NoError(t, err)
		assert.Equal(t, schedule.Default().DailySlots(day(t, "2025-06-03")), slots)
	})

	t.Run("booked slot is subtracted", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.repo.CreateAppointment(ctx, f.doctor.ID, f.patient.ID, day(t, monday), "11:00")
		require.NoError(t, err)

		slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, monday))
		require.NoError(t, err)
		assert.NotContains(t, slots, "11:00")

		full := schedule.Default().DailySlots(day(t, monday))
		assert.Len(t, slots, len(full)-1)
	})

	t.Run("cancelled appointments do not occupy slots", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.repo.CreateAppointment(ctx, f.doctor.ID, f.patient.ID, day(t, monday), "11:00")
		require.NoError(t, err)
		_, err = f.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusBooked, StatusCancelled)
		require.NoError(t, err)

		slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, monday))
		require.NoError(t, err)
		assert.Contains(t, slots, "11:00")
	})

	t.Run("same-day query drops elapsed slots", func(t *testing.T) {
		f := newFixture(t)
		f.svc.now = func() time.Time {
			return time.Date(2025, 6, 2, 15, 5, 0, 0, time.Local)
		}

		slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, monday))
		require.NoError(t, err)
		assert.Equal(t, []string{"15:30", "16:00", "16:30", "17:00", "17:30"}, slots)
	})

	t.Run("same-day query after close is empty, not nil", func(t *testing.T) {
		f := newFixture(t)
		f.svc.now = func() time.Time {
			return time.Date(2025, 6, 2, 19, 0, 0, 0, time.Local)
		}

		slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, monday))
		require.NoError(t, err)
		assert.Empty(t, slots)
		assert.NotNil(t, slots)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.AvailableSlots(ctx, uuid.New(), day(t, monday))
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})

	t.Run("roster-unavailable doctor yields not found", func(t *testing.T) {
		f := newFixture(t)
		off, err := f.repo.CreateDoctor(ctx, &Doctor{Name: "Dr. Out", Specialization: "ENT", Available: false})
		require.NoError(t, err)

		_, err = f.svc.AvailableSlots(ctx, off.ID, day(t, monday))
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	target := "2025-06-03"

	t.Run("book then cancel round trip restores availability", func(t *testing.T) {
		f := newFixture(t)

		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, target), "11:00")
		require.NoError(t, err)
		assert.Equal(t, StatusBooked, appt.Status)
		assert.Equal(t, "11:00", appt.Slot)

		slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, target))
		require.NoError(t, err)
		assert.NotContains(t, slots, "11:00")

		_, err = f.svc.Cancel(ctx, appt.ID)
		require.NoError(t, err)

		slots, err = f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, target))
		require.NoError(t, err)
		assert.Contains(t, slots, "11:00")
	})

	t.Run("double booking is rejected until the first is cancelled", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, target), "11:00")
		require.NoError(t, err)

		_, err = f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, target), "11:00")
		assert.ErrorIs(t, err, ErrSlotUnavailable)

		_, err = f.svc.Cancel(ctx, first.ID)
		require.NoError(t, err)

		_, err = f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, target), "11:00")
		assert.NoError(t, err)
	})

	t.Run("structurally invalid slots fail validation before any write", func(t *testing.T) {
		f := newFixture(t)

		for _, slot := range []string{"13:00", "09:30", "18:00", "10:15", "nope"} {
			_, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, target), slot)
			assert.ErrorIs(t, err, schedule.ErrInvalidSlot, "slot %q", slot)
		}

		booked, err := f.repo.BookedSlots(ctx, f.doctor.ID, day(t, target))
		require.NoError(t, err)
		assert.Empty(t, booked)
	})

	t.Run("unknown patient", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Book(ctx, f.doctor.ID, uuid.New(), day(t, target), "11:00")
		assert.ErrorIs(t, err, ErrPatientNotFound)
	})

	t.Run("concurrent attempts for one slot produce exactly one winner", func(t *testing.T) {
		f := newFixture(t)

		const attempts = 16
		var wg sync.WaitGroup
		errs := make([]error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, target), "14:30")
			}(i)
		}
		wg.Wait()

		wins, conflicts := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrSlotUnavailable):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, attempts-1, conflicts)

		booked, err := f.repo.BookedSlots(ctx, f.doctor.ID, day(t, target))
		require.NoError(t, err)
		assert.Len(t, booked, 1)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel is idempotent-safe", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)

		again, err := f.svc.Cancel(ctx, appt.ID)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
		assert.Equal(t, StatusCancelled, again.Status)
	})

	t.Run("completed appointments cannot be cancelled", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)
		_, err = f.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusBooked, StatusCompleted)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, appt.ID)
		assert.ErrorIs(t, err, ErrTerminalStatus)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Cancel(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("moves to a free slot", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)

		moved, err := f.svc.Reschedule(ctx, appt.ID, day(t, "2025-06-04"), "14:00")
		require.NoError(t, err)
		assert.Equal(t, "14:00", moved.Slot)
		assert.Equal(t, "2025-06-04", moved.Date.Format(schedule.DateFormat))

		slots, err := f.svc.AvailableSlots(ctx, f.doctor.ID, day(t, "2025-06-03"))
		require.NoError(t, err)
		assert.Contains(t, slots, "10:00", "old slot is freed")
	})

	t.Run("rejects a taken target slot", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)
		_, err = f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:30")
		require.NoError(t, err)

		_, err = f.svc.Reschedule(ctx, appt.ID, day(t, "2025-06-03"), "10:30")
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("own slot is not a conflict", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)

		moved, err := f.svc.Reschedule(ctx, appt.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)
		assert.Equal(t, "10:00", moved.Slot)
	})

	t.Run("validates the new target", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)

		_, err = f.svc.Reschedule(ctx, appt.ID, day(t, "2025-06-03"), "13:00")
		assert.ErrorIs(t, err, schedule.ErrInvalidSlot)

		_, err = f.svc.Reschedule(ctx, appt.ID, day(t, "2025-06-07"), "10:00") // Saturday
		assert.ErrorIs(t, err, schedule.ErrInvalidSlot)
	})

	t.Run("cancelled appointments cannot move", func(t *testing.T) {
		f := newFixture(t)
		appt, err := f.svc.Book(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "10:00")
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, appt.ID)
		require.NoError(t, err)

		_, err = f.svc.Reschedule(ctx, appt.ID, day(t, "2025-06-04"), "10:00")
		assert.ErrorIs(t, err, ErrTerminalStatus)
	})
}

func TestCompletePast(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	past, err := f.repo.CreateAppointment(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-05-30"), "11:00")
	require.NoError(t, err)
	future, err := f.repo.CreateAppointment(ctx, f.doctor.ID, f.patient.ID, day(t, "2025-06-03"), "11:00")
	require.NoError(t, err)

	n, err := f.svc.CompletePast(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.repo.GetAppointmentByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	got, err = f.repo.GetAppointmentByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, got.Status)

	hasNote, err := f.repo.HasVisitNote(ctx, past.ID)
	require.NoError(t, err)
	assert.True(t, hasNote)

	// A second run finds nothing new and does not duplicate the note.
	n, err = f.svc.CompletePast(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	notes, err := f.repo.ListVisitNotesByPatient(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}
