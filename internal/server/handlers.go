package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/benefits-extractor/constants"
	"github.com/joseph-ayodele/benefits-extractor/internal/benefits"
	"github.com/joseph-ayodele/benefits-extractor/internal/common"
	"github.com/joseph-ayodele/benefits-extractor/internal/entity"
	"github.com/joseph-ayodele/benefits-extractor/internal/profiles"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// extractionBody is the JSON form of POST /v1/extractions.
type extractionBody struct {
	ProfileID  string `json:"profile_id"`
	DocumentID string `json:"document_id,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	Text       string `json:"text"`
	Refill     *bool  `json:"refill,omitempty"`
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type profileView struct {
	ID           string         `json:"id"`
	StartMarkers []string       `json:"start_markers"`
	EndMarkers   []string       `json:"end_markers"`
	TOCMarkers   []string       `json:"toc_markers"`
	Categories   []categoryView `json:"categories"`
}

type categoryView struct {
	ID      string      `json:"id"`
	Headers []string    `json:"headers"`
	Fields  []fieldView `json:"fields"`
}

type fieldView struct {
	ID       string           `json:"id"`
	Format   constants.Format `json:"format"`
	Prompt   string           `json:"prompt"`
	Examples []any            `json:"examples"`
}

func toProfileView(p *profiles.CompanyProfile) profileView {
	v := profileView{
		ID:           p.ID,
		StartMarkers: nonNil(p.Structure.StartMarkers),
		EndMarkers:   nonNil(p.Structure.EndMarkers),
		TOCMarkers:   nonNil(p.Structure.TOCMarkers),
		Categories:   make([]categoryView, 0, len(p.Categories)),
	}
	for _, c := range p.Categories {
		cv := categoryView{ID: c.ID, Headers: c.Headers, Fields: make([]fieldView, 0, len(c.Fields))}
		for _, f := range c.Fields {
			cv.Fields = append(cv.Fields, fieldView{ID: f.ID, Format: f.Format, Prompt: f.Prompt, Examples: f.Examples})
		}
		v.Categories = append(v.Categories, cv)
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Health(r.Context()); err != nil {
		s.writeError(w, r, common.NewAppError("UNHEALTHY", "record store unreachable", errors.Join(common.ErrUnavailable, err)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	ps := s.svc.Profiles()
	out := make([]profileView, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProfileView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profile(chi.URLParam(r, "profileID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(p))
}

// handleCreateExtraction accepts JSON text or a multipart upload.
// POST /v1/extractions[?async=true]
func (s *Server) handleCreateExtraction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	req, err := s.decodeExtraction(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if v := r.URL.Query().Get("async"); v != "" {
		async, perr := strconv.ParseBool(v)
		if perr != nil {
			s.writeError(w, r, common.InvalidArgumentErrorf("async must be a boolean, got %q", v))
			return
		}
		req.Async = async
	}

	rec, err := s.svc.Extract(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if req.Async {
		status = http.StatusAccepted
		w.Header().Set("Location", "/v1/extractions/"+rec.DocumentID)
	}
	writeJSON(w, status, rec)
}

func (s *Server) decodeExtraction(r *http.Request) (benefits.ExtractRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.decodeUpload(r)
	}

	var body extractionBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return benefits.ExtractRequest{}, bodyError(err)
	}
	return benefits.ExtractRequest{
		ProfileID:  body.ProfileID,
		DocumentID: body.DocumentID,
		FileName:   body.FileName,
		Text:       body.Text,
		Refill:     body.Refill,
	}, nil
}

func (s *Server) decodeUpload(r *http.Request) (benefits.ExtractRequest, error) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return benefits.ExtractRequest{}, bodyError(err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return benefits.ExtractRequest{}, common.InvalidArgumentError("multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return benefits.ExtractRequest{}, bodyError(err)
	}
	req := benefits.ExtractRequest{
		ProfileID:  r.FormValue("profile_id"),
		DocumentID: r.FormValue("document_id"),
		FileName:   header.Filename,
		Data:       data,
	}
	if v := r.FormValue("refill"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return benefits.ExtractRequest{}, common.InvalidArgumentErrorf("refill must be a boolean, got %q", v)
		}
		req.Refill = &b
	}
	return req, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.InvalidArgumentErrorf("request body exceeds %d bytes", tooLarge.Limit)
	}
	return common.InvalidArgumentErrorf("invalid request body: %v", err)
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.List(r.Context(), r.URL.Query().Get("profile_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"extractions": recs})
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteExtraction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "documentID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportExtraction(w http.ResponseWriter, r *http.Request) {
	b, rec, err := s.svc.Export(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(rec)))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func exportName(rec *entity.ExtractionRecord) string {
	base := rec.DocumentID
	if rec.FileName != "" {
		base = strings.TrimSuffix(rec.FileName, filepath.Ext(rec.FileName))
	}
	return base + "-benefits.xlsx"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	body := errorBody{Error: err.Error(), RequestID: common.RequestIDFromContext(r.Context())}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("http.request.failed", "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
