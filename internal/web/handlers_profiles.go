package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradebooks/importer/internal/logging"
	"github.com/tradebooks/importer/internal/profile"
	"github.com/tradebooks/importer/internal/schema"
	"github.com/tradebooks/importer/internal/store"
)

// profileRequest is the JSON body for creating or updating a profile.
type profileRequest struct {
	Name          string            `json:"name"`
	RecordType    string            `json:"record_type"`
	Delimiter     string            `json:"delimiter"`
	DateFormat    string            `json:"date_format"`
	FieldMappings map[string]string `json:"field_mappings"`
	IsActive      *bool             `json:"is_active,omitempty"`
}

// validationResponse carries the per-field violation lists back to the
// profile editor.
type validationResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	recordType := schema.RecordType(r.URL.Query().Get("record_type"))
	if recordType != "" && !recordType.Valid() {
		s.respondError(w, r, errUnknownRecordType(string(recordType)), http.StatusBadRequest)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	profiles, err := s.profiles.List(r.Context(), recordType, activeOnly)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []*profile.FormatProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodeProfile(w, r, nil)
	if !ok {
		return
	}

	if err := s.profiles.Create(r.Context(), p); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	logging.FromContext(r.Context()).Info("profile created",
		"profile_id", p.ID, "name", p.Name, "record_type", p.RecordType)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadProfile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.loadProfile(w, r)
	if !ok {
		return
	}

	p, ok := s.decodeProfile(w, r, existing)
	if !ok {
		return
	}

	if err := s.profiles.Update(r.Context(), p); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r, s)
	if !ok {
		return
	}
	if err := s.profiles.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	s.setProfileActive(w, r, true)
}

func (s *Server) handleDeactivateProfile(w http.ResponseWriter, r *http.Request) {
	s.setProfileActive(w, r, false)
}

func (s *Server) setProfileActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := profileID(w, r, s)
	if !ok {
		return
	}
	if err := s.profiles.SetActive(r.Context(), id, active); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	p, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDuplicateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r, s)
	if !ok {
		return
	}
	dup, err := s.profiles.Duplicate(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("profile duplicated",
		"source_id", id, "profile_id", dup.ID, "name", dup.Name)
	writeJSON(w, http.StatusCreated, dup)
}

func (s *Server) handleDescribeSchema(w http.ResponseWriter, r *http.Request) {
	recordType := schema.RecordType(chi.URLParam(r, "recordType"))
	if !recordType.Valid() {
		s.respondError(w, r, errUnknownRecordType(string(recordType)), http.StatusBadRequest)
		return
	}
	fields := schema.Records.Describe(recordType)
	writeJSON(w, http.StatusOK, map[string]any{
		"record_type": recordType,
		"fields":      fields,
	})
}

// decodeProfile reads and validates a profile payload. When base is
// non-nil its identity and timestamps are carried over (update path).
// On failure a response has already been written.
func (s *Server) decodeProfile(w http.ResponseWriter, r *http.Request, base *profile.FormatProfile) (*profile.FormatProfile, bool) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return nil, false
	}

	p := &profile.FormatProfile{
		Name:          req.Name,
		RecordType:    schema.RecordType(req.RecordType),
		Delimiter:     req.Delimiter,
		DateFormat:    req.DateFormat,
		FieldMappings: req.FieldMappings,
		IsActive:      true,
	}
	if base != nil {
		p.ID = base.ID
		p.CreatedAt = base.CreatedAt
		p.IsActive = base.IsActive
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := p.Validate(schema.Records); err != nil {
		var ve *profile.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
				Error:  "profile validation failed",
				Fields: ve.Fields,
			})
			return nil, false
		}
		s.respondError(w, r, err, http.StatusBadRequest)
		return nil, false
	}
	return p, true
}

// loadProfile fetches the profile named in the URL, writing the error
// response itself on failure.
func (s *Server) loadProfile(w http.ResponseWriter, r *http.Request) (*profile.FormatProfile, bool) {
	id, ok := profileID(w, r, s)
	if !ok {
		return nil, false
	}
	p, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err)
		return nil, false
	}
	return p, true
}

func profileID(w http.ResponseWriter, r *http.Request, s *Server) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	s.respondError(w, r, err, http.StatusInternalServerError)
}
