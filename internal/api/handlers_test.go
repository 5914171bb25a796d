package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/hospital-api/internal/ai"
	"github.com/medicore/hospital-api/internal/auth"
	"github.com/medicore/hospital-api/internal/booking"
	redisclient "github.com/medicore/hospital-api/internal/redis"
	"github.com/medicore/hospital-api/internal/schedule"
)

type testEnv struct {
	router http.Handler
	repo   *booking.MemoryRepository
	tokens *auth.TokenManager
	doctor *booking.Doctor
	token  string // patient bearer token
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := booking.NewMemoryRepository()
	log := zerolog.Nop()
	svc := booking.NewService(repo, redisclient.NoopLocker{}, schedule.Default(), log)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	router := NewRouter(RouterConfig{
		Service: svc,
		Repo:    repo,
		Tokens:  tokens,
		AI:      ai.NewClient("", ""),
		Logger:  log,
		Env:     "test",
		Version: "test",
	})

	doctor, err := repo.CreateDoctor(context.Background(), &booking.Doctor{
		UserID:         uuid.New(),
		Name:           "Dr. Asha Rao",
		Specialization: "Cardiology",
		Available:      true,
	})
	require.NoError(t, err)

	env := &testEnv{router: router, repo: repo, tokens: tokens, doctor: doctor}

	resp := env.do(t, http.MethodPost, "/api/signup", "", SignupRequest{
		Email:    "sam@example.com",
		Password: "s3cret-pw-long",
		FullName: "Sam Okafor",
		Role:     "patient",
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var tok TokenResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tok))
	env.token = tok.Token

	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// nextWorkday returns the next weekday at least one day out, as YYYY-MM-DD.
func nextWorkday() string {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(schedule.DateFormat)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("signup rejects duplicate email", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/signup", "", SignupRequest{
			Email:    "sam@example.com",
			Password: "another-pw-123",
			FullName: "Sam Again",
			Role:     "patient",
		})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("signup validates payload", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/signup", "", SignupRequest{
			Email:    "not-an-email",
			Password: "short",
			FullName: "X",
			Role:     "admin",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("login round trip", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/login", "", LoginRequest{
			Email:    "sam@example.com",
			Password: "s3cret-pw-long",
		})
		require.Equal(t, http.StatusOK, resp.Code)

		var tok TokenResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tok))
		assert.NotEmpty(t, tok.Token)
		assert.Equal(t, "patient", tok.Role)
	})

	t.Run("login rejects wrong password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/login", "", LoginRequest{
			Email:    "sam@example.com",
			Password: "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/slots", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		resp = env.do(t, http.MethodGet, "/api/slots", "garbage-token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	date := nextWorkday()

	t.Run("missing params", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/slots", env.token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("malformed date", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/slots?doctor_id="+env.doctor.ID.String()+"&date=02-06-2025", env.token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/slots?doctor_id=6b1e2f34-0000-0000-0000-000000000000&date="+date, env.token, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("full free day", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/slots?doctor_id="+env.doctor.ID.String()+"&date="+date, env.token, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var body SlotsResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, date, body.Date)
		assert.Equal(t, env.doctor.ID, body.DoctorID)
		assert.Contains(t, body.AvailableSlots, "10:00")
		assert.Contains(t, body.AvailableSlots, "17:30")
		assert.NotContains(t, body.AvailableSlots, "13:00")
	})
}

func TestAppointmentEndpoints(t *testing.T) {
	env := newTestEnv(t)
	date := nextWorkday()

	book := func(slot string) *httptest.ResponseRecorder {
		return env.do(t, http.MethodPost, "/api/appointments", env.token, CreateAppointmentRequest{
			DoctorID: env.doctor.ID.String(),
			Date:     date,
			Slot:     slot,
		})
	}

	resp := book("11:00")
	require.Equal(t, http.StatusCreated, resp.Code)

	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &appt))
	assert.Equal(t, "booked", appt.Status)
	assert.Equal(t, "11:00", appt.Slot)

	t.Run("booked slot disappears from availability", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/slots?doctor_id="+env.doctor.ID.String()+"&date="+date, env.token, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var body SlotsResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.NotContains(t, body.AvailableSlots, "11:00")
	})

	t.Run("double booking returns availability", func(t *testing.T) {
		resp := book("11:00")
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var body SlotErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "Slot not available", body.Error)
		assert.NotContains(t, body.AvailableSlots, "11:00")
		assert.Contains(t, body.AvailableSlots, "10:00")
	})

	t.Run("lunch slot is rejected with availability", func(t *testing.T) {
		resp := book("13:00")
		require.Equal(t, http.StatusBadRequest, resp.Code)

		var body SlotErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "Slot not available", body.Error)
		assert.NotEmpty(t, body.AvailableSlots)
	})

	t.Run("list shows the caller's appointments", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/appointments", env.token, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var list []AppointmentResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, appt.ID, list[0].ID)
	})

	t.Run("get by id", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/appointments/"+appt.ID.String(), env.token, nil)
		assert.Equal(t, http.StatusOK, resp.Code)

		resp = env.do(t, http.MethodGet, "/api/appointments/not-a-uuid", env.token, nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("reschedule", func(t *testing.T) {
		resp := env.do(t, http.MethodPatch, "/api/appointments/"+appt.ID.String(), env.token, UpdateAppointmentRequest{
			Slot: "15:00",
		})
		require.Equal(t, http.StatusOK, resp.Code)

		var moved AppointmentResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &moved))
		assert.Equal(t, "15:00", moved.Slot)

		// The old slot frees up.
		resp = env.do(t, http.MethodGet, "/api/slots?doctor_id="+env.doctor.ID.String()+"&date="+date, env.token, nil)
		require.Equal(t, http.StatusOK, resp.Code)
		var slots SlotsResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &slots))
		assert.Contains(t, slots.AvailableSlots, "11:00")
	})

	t.Run("reschedule to a taken slot fails", func(t *testing.T) {
		other := book("16:00")
		require.Equal(t, http.StatusCreated, other.Code)

		resp := env.do(t, http.MethodPatch, "/api/appointments/"+appt.ID.String(), env.token, UpdateAppointmentRequest{
			Slot: "16:00",
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("cancel is idempotent-safe", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/appointments/"+appt.ID.String()+"/cancel", env.token, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var cancelled AppointmentResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cancelled))
		assert.Equal(t, "cancelled", cancelled.Status)

		resp = env.do(t, http.MethodPost, "/api/appointments/"+appt.ID.String()+"/cancel", env.token, nil)
		assert.Equal(t, http.StatusConflict, resp.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "already_cancelled", body.Error)
	})

	t.Run("cancelled slot can be booked again", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/appointments", env.token, CreateAppointmentRequest{
			DoctorID: env.doctor.ID.String(),
			Date:     date,
			Slot:     "15:00",
		})
		assert.Equal(t, http.StatusCreated, resp.Code)
	})

	t.Run("unknown appointment is 404", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/appointments/9f0c1d2e-0000-0000-0000-000000000000/cancel", env.token, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestOffRosterDoctorKeepsLedgerAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A doctor taken off the roster cannot receive new bookings, but their
	// existing appointments stay theirs to view and cancel.
	doctorUserID := uuid.New()
	doctor, err := env.repo.CreateDoctor(ctx, &booking.Doctor{
		UserID:         doctorUserID,
		Name:           "Dr. Lena Voss",
		Specialization: "Neurology",
		Available:      false,
	})
	require.NoError(t, err)

	patient, err := env.repo.CreatePatient(ctx, &booking.Patient{
		UserID: uuid.New(),
		Name:   "Jo Park",
	})
	require.NoError(t, err)

	date, err := time.ParseInLocation(schedule.DateFormat, nextWorkday(), time.Local)
	require.NoError(t, err)
	appt, err := env.repo.CreateAppointment(ctx, doctor.ID, patient.ID, date, "10:00")
	require.NoError(t, err)

	doctorToken, err := env.tokens.Issue(doctorUserID, "doctor")
	require.NoError(t, err)

	t.Run("not bookable", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/slots?doctor_id="+doctor.ID.String()+"&date="+nextWorkday(), env.token, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("lists own appointments", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/appointments", doctorToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var list []AppointmentResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, appt.ID, list[0].ID)
	})

	t.Run("reads own appointment", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/appointments/"+appt.ID.String(), doctorToken, nil)
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("cancels own appointment", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/appointments/"+appt.ID.String()+"/cancel", doctorToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var cancelled AppointmentResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cancelled))
		assert.Equal(t, "cancelled", cancelled.Status)
	})
}

func TestPatientDetailEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doctorToken, err := env.tokens.Issue(env.doctor.UserID, "doctor")
	require.NoError(t, err)

	patient, err := env.repo.CreatePatient(ctx, &booking.Patient{
		UserID: uuid.New(),
		Name:   "Mina Aluko",
	})
	require.NoError(t, err)

	date, err := time.ParseInLocation(schedule.DateFormat, nextWorkday(), time.Local)
	require.NoError(t, err)
	appt, err := env.repo.CreateAppointment(ctx, env.doctor.ID, patient.ID, date, "12:00")
	require.NoError(t, err)

	_, err = env.repo.CreateVisitNote(ctx, &booking.VisitNote{
		AppointmentID: appt.ID,
		DoctorID:      env.doctor.ID,
		PatientID:     patient.ID,
		Notes:         "Follow-up in two weeks",
	})
	require.NoError(t, err)

	t.Run("doctor sees history and notes", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/patients/"+patient.ID.String(), doctorToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var detail PatientDetailResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &detail))
		assert.Equal(t, patient.ID, detail.ID)
		assert.Equal(t, "Mina Aluko", detail.Name)
		require.Len(t, detail.Appointments, 1)
		assert.Equal(t, appt.ID, detail.Appointments[0].ID)
		require.Len(t, detail.VisitNotes, 1)
		assert.Equal(t, "Follow-up in two weeks", detail.VisitNotes[0].Notes)
	})

	t.Run("patients are refused", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/patients/"+patient.ID.String(), env.token, nil)
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("unknown patient is 404", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/patients/4d5e6f70-0000-0000-0000-000000000000", doctorToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestDoctorEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/doctors", env.token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var doctors []DoctorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doctors))
	require.Len(t, doctors, 1)
	assert.Equal(t, "Cardiology", doctors[0].Specialization)

	resp = env.do(t, http.MethodGet, "/api/doctors/specializations", env.token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var specs map[string][]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &specs))
	assert.Equal(t, []string{"Cardiology"}, specs["specializations"])
}

func TestChatEndpointUnconfigured(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/chat", env.token, ChatRequest{Message: "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}
