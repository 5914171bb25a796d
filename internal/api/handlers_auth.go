package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/medicore/hospital-api/internal/auth"
	"github.com/medicore/hospital-api/internal/booking"
)

func signupHandler(repo booking.Repository, tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not hash password")
			return
		}

		user, err := repo.CreateUser(r.Context(), &booking.User{
			Email:        req.Email,
			PasswordHash: hash,
			Role:         booking.Role(req.Role),
			FullName:     req.FullName,
		})
		if err != nil {
			if errors.Is(err, booking.ErrEmailTaken) {
				writeError(w, http.StatusConflict, "email_taken", "email is already registered")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		switch user.Role {
		case booking.RoleDoctor:
			_, err = repo.CreateDoctor(r.Context(), &booking.Doctor{
				UserID:         user.ID,
				Name:           user.FullName,
				Specialization: req.Specialization,
				Bio:            req.Bio,
				Available:      true,
			})
		case booking.RolePatient:
			_, err = repo.CreatePatient(r.Context(), &booking.Patient{
				UserID: user.ID,
				Name:   user.FullName,
			})
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		token, err := tokens.Issue(user.ID, string(user.Role))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
			return
		}

		writeJSON(w, http.StatusCreated, TokenResponse{Token: token, Role: string(user.Role)})
	}
}

func loginHandler(repo booking.Repository, tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		user, err := repo.GetUserByEmail(r.Context(), req.Email)
		if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			// Same answer for unknown email and wrong password.
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}

		token, err := tokens.Issue(user.ID, string(user.Role))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "could not issue token")
			return
		}

		writeJSON(w, http.StatusOK, TokenResponse{Token: token, Role: string(user.Role)})
	}
}
