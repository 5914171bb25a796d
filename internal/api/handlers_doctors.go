package api

import (
	"net/http"

	"github.com/medicore/hospital-api/internal/booking"
)

// GET /api/doctors
func listDoctorsHandler(repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := r.URL.Query().Get("specialization")

		doctors, err := repo.ListDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		result := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			if spec != "" && d.Specialization != spec {
				continue
			}
			result = append(result, DoctorResponse{
				ID:             d.ID,
				Name:           d.Name,
				Specialization: d.Specialization,
				Bio:            d.Bio,
			})
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// GET /api/doctors/specializations
func listSpecializationsHandler(repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specs, err := repo.ListSpecializations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if specs == nil {
			specs = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"specializations": specs})
	}
}
