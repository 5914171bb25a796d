package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/hospital-api/internal/booking"
	"github.com/medicore/hospital-api/internal/docstore"
)

const maxUploadBytes = 10 << 20 // 10 MiB

var allowedDocTypes = map[string]bool{
	"lab":          true,
	"scan":         true,
	"prescription": true,
	"other":        true,
}

// POST /api/documents/upload (multipart: file, doc_type, appointment_id?)
func uploadDocumentHandler(store *docstore.Store, repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "document storage is not configured")
			return
		}

		patient, err := repo.GetPatientByUserID(r.Context(), GetClaims(r.Context()).UserID)
		if err != nil {
			writeError(w, http.StatusForbidden, "not_a_patient", "only patients can upload documents")
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "could not parse multipart form")
			return
		}

		docType := r.FormValue("doc_type")
		if docType == "" {
			docType = "other"
		}
		if !allowedDocTypes[docType] {
			writeError(w, http.StatusBadRequest, "invalid_doc_type", "doc_type must be one of lab, scan, prescription, other")
			return
		}

		var appointmentID *uuid.UUID
		if raw := r.FormValue("appointment_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			appointmentID = &id
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_file", "file field is required")
			return
		}
		defer file.Close()

		key, err := store.Upload(r.Context(), patient.ID, docType, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "upload_failed", err.Error())
			return
		}

		doc, err := repo.CreateDocument(r.Context(), &booking.Document{
			PatientID:     patient.ID,
			AppointmentID: appointmentID,
			ObjectKey:     key,
			DocType:       docType,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		url, err := store.PresignedURL(r.Context(), key, time.Hour)
		if err != nil {
			url = ""
		}

		writeJSON(w, http.StatusCreated, DocumentResponse{
			ID:          doc.ID,
			DocType:     doc.DocType,
			ObjectKey:   doc.ObjectKey,
			DownloadURL: url,
			UploadedAt:  doc.UploadedAt,
		})
	}
}

// GET /api/documents
func listDocumentsHandler(store *docstore.Store, repo booking.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patient, err := repo.GetPatientByUserID(r.Context(), GetClaims(r.Context()).UserID)
		if err != nil {
			writeError(w, http.StatusForbidden, "not_a_patient", "only patients can list their documents")
			return
		}

		docs, err := repo.ListDocumentsByPatient(r.Context(), patient.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		result := make([]DocumentResponse, 0, len(docs))
		for _, d := range docs {
			var url string
			if store != nil {
				url, _ = store.PresignedURL(r.Context(), d.ObjectKey, time.Hour)
			}
			result = append(result, DocumentResponse{
				ID:          d.ID,
				DocType:     d.DocType,
				ObjectKey:   d.ObjectKey,
				DownloadURL: url,
				UploadedAt:  d.UploadedAt,
			})
		}
		writeJSON(w, http.StatusOK, result)
	}
}
