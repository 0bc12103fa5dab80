package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leapcheck/internal/source"
	"github.com/leapstack-labs/leapcheck/internal/state"
)

// multipartMemory is the part of an upload kept in memory; the rest spills
// to temporary files.
const multipartMemory = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	Fields int    `json:"fields"`
}

type ruleResponse struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

type runResponse struct {
	*state.Run
	Findings []state.Finding `json:"findings"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Fields: s.Fields()})
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	entries := s.currentSession().Dictionary().Entries()
	rules := make([]ruleResponse, 0, len(entries))
	for _, e := range entries {
		values := e.Allowed.Values()
		if values == nil {
			values = []string{}
		}
		rules = append(rules, ruleResponse{Field: e.Field, Values: values})
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(s.cfg.MaxUploadBytes, 10)+" bytes")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form file \"file\"")
		return
	}
	defer func() { _ = file.Close() }()

	cfg := s.cfg.Source
	cfg.Type = ""
	if sheet := strings.TrimSpace(r.FormValue("sheet")); sheet != "" {
		cfg.Sheet = sheet
	}
	if hr := strings.TrimSpace(r.FormValue("header_row")); hr != "" {
		n, err := strconv.Atoi(hr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "header_row must be a positive integer")
			return
		}
		cfg.HeaderRow = n
	}
	if enc := strings.TrimSpace(r.FormValue("encoding")); enc != "" {
		cfg.Encoding = enc
	}

	src, err := source.OpenReader(header.Filename, file, cfg, s.logger)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	ds, err := src.Read(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		var srcErr *source.SourceError
		if errors.Is(err, source.ErrSourceUnreadable) || errors.As(err, &srcErr) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	res, err := s.currentSession().Run(r.Context(), ds)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res.View(s.cfg.Policy, s.cfg.FailOn))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.cfg.Store.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*state.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.cfg.Store.GetRun(id)
	if errors.Is(err, state.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	findings, err := s.cfg.Store.GetFindings(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if findings == nil {
		findings = []state.Finding{}
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, Findings: findings})
}
