package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradebooks/importer/internal/core"
	"github.com/tradebooks/importer/internal/logging"
	"github.com/tradebooks/importer/internal/profile"
	"github.com/tradebooks/importer/internal/schema"
	"github.com/tradebooks/importer/internal/store"
)

// importResponse summarizes one completed import.
type importResponse struct {
	UploadID     uuid.UUID  `json:"upload_id"`
	RecordType   string     `json:"record_type"`
	ProfileID    *uuid.UUID `json:"profile_id,omitempty"`
	RowsImported int64      `json:"rows_imported"`
	ErrorCount   int        `json:"error_count"`
	Errors       []string   `json:"errors"`
}

// handleImport parses an uploaded CSV and stores the clean rows. With a
// profile_id the profile drives the parse; without one the file's header
// row is matched by name. Row errors do not block the import: clean rows
// are stored, the errors are reported alongside.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	recordType := schema.RecordType(chi.URLParam(r, "recordType"))
	if !recordType.Valid() {
		s.respondError(w, r, errUnknownRecordType(string(recordType)), http.StatusBadRequest)
		return
	}

	release, err := s.limiter.acquire(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	defer release()

	content, fileName, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	var (
		prof      *profile.FormatProfile
		profileID *uuid.UUID
	)
	if raw := r.URL.Query().Get("profile_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		prof, err = s.profiles.Get(r.Context(), id)
		if err != nil {
			s.respondStoreError(w, r, err)
			return
		}
		if !prof.IsActive {
			s.respondError(w, r, fmt.Errorf("profile %s is deactivated", id), http.StatusConflict)
			return
		}
		if prof.RecordType != recordType {
			s.respondError(w, r,
				fmt.Errorf("profile %s targets %s records", id, prof.RecordType),
				http.StatusConflict)
			return
		}
		profileID = &id
	}

	out := core.NewParser(prof).Parse(content)
	if msg, isStructural := out.StructuralError(); isStructural {
		s.respondError(w, r, errors.New(msg), http.StatusUnprocessableEntity)
		return
	}

	imported, err := s.records.Insert(r.Context(), recordType, out.Records)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	upload := &store.Upload{
		FileName:     fileName,
		RecordType:   recordType,
		ProfileID:    profileID,
		RowsImported: int(imported),
		ErrorCount:   len(out.Errors),
		Errors:       out.Errors,
	}
	if err := s.uploads.Record(r.Context(), upload); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	logging.FromContext(r.Context()).Info("import complete",
		"upload_id", upload.ID,
		"record_type", recordType,
		"file", fileName,
		"rows_imported", imported,
		"row_errors", len(out.Errors),
	)

	errs := out.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, importResponse{
		UploadID:     upload.ID,
		RecordType:   string(recordType),
		ProfileID:    profileID,
		RowsImported: imported,
		ErrorCount:   len(out.Errors),
		Errors:       errs,
	})
}

// handleTestProfile dry-runs a stored profile against an uploaded sample
// file. Nothing is persisted.
func (s *Server) handleTestProfile(w http.ResponseWriter, r *http.Request) {
	prof, ok := s.loadProfile(w, r)
	if !ok {
		return
	}

	content, _, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	result, err := core.TestProfile(prof, content)
	if err != nil {
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	uploads, err := s.uploads.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if uploads == nil {
		uploads = []store.Upload{}
	}
	writeJSON(w, http.StatusOK, uploads)
}

// handleGetImport returns one history entry with its full error list,
// so an import's problems stay reachable after the summary response.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	upload, err := s.uploads.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

// handleReset truncates imported records and history. Profiles survive.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.reset.All(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	logging.FromContext(r.Context()).Warn("imported data reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// readUploadedFile extracts the "file" part of a multipart upload,
// bounded by the configured size limit. On failure a response has
// already been written.
func (s *Server) readUploadedFile(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		s.respondError(w, r, fmt.Errorf("file too large or malformed upload: %w", err), http.StatusRequestEntityTooLarge)
		return "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return "", "", false
	}
	return string(data), header.Filename, true
}
