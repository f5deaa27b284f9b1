package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/logger"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 8 << 20

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  beatalign.Service
	config   *ServerConfig
	log      beatalign.Logger
	validate *validator.Validate
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service beatalign.Service, config *ServerConfig) *Server {
	return &Server{
		service:  service,
		config:   config,
		log:      logger.Named("Server"),
		validate: validator.New(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Status:  "error",
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// serviceStatus maps a service error to its HTTP status
func serviceStatus(err error) int {
	switch {
	case errors.Is(err, beatalign.ErrProjectNotFound), errors.Is(err, beatalign.ErrNoAnnotations):
		return http.StatusNotFound
	case errors.Is(err, beatalign.ErrProjectExists):
		return http.StatusConflict
	case errors.Is(err, beatalign.ErrInvalidProject),
		errors.Is(err, quantize.ErrInvalidOptions),
		errors.Is(err, quantize.ErrInvalidEvents),
		errors.Is(err, quantize.ErrMalformedTimeline):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with the status serviceStatus picks.
// A non-nil report is the untouched fallback the engine returned with err.
func (s *Server) respondServiceError(w http.ResponseWriter, action string, err error, report ...*quantize.Report) {
	status := serviceStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Errorf("Failed to %s: %v", action, err)
	} else {
		s.log.Warnf("Failed to %s: %v", action, err)
	}

	resp := ErrorResponse{
		Status:  "error",
		Error:   http.StatusText(status),
		Message: fmt.Sprintf("Failed to %s: %v", action, err),
		Code:    status,
	}
	if len(report) > 0 {
		resp.AlignmentResult = report[0]
	}
	s.respondJSON(w, status, resp)
}

// decodeJSON reads and validates a request body into v
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("No route for %s", r.URL.Path))
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "BeatAlign API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":             "GET /health",
			"metrics":            "GET /metrics",
			"quantizationModes":  "GET /api/quantization_options",
			"autoAlign":          "POST /api/auto_align",
			"beatGrid":           "GET /api/beat_grid",
			"projects":           "GET /api/projects",
			"createProject":      "POST /api/projects",
			"getProject":         "GET /api/projects/{name}",
			"updateProject":      "PATCH /api/projects/{name}",
			"deleteProject":      "DELETE /api/projects/{name}",
			"annotations":        "GET /api/projects/{name}/annotations",
			"saveAnnotations":    "PUT /api/projects/{name}/annotations",
			"alignedAnnotations": "POST /api/projects/{name}/aligned_annotations",
			"runs":               "GET /api/projects/{name}/runs",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleQuantizationOptions handles GET /api/quantization_options
func (s *Server) handleQuantizationOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, QuantizationOptionsResponse{
		Status:        "success",
		CatalogueInfo: s.service.Catalogue(),
	})
}

// handleAutoAlign handles POST /api/auto_align
func (s *Server) handleAutoAlign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	var req AutoAlignRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.ScoreOffset != 0 {
		s.log.Infof("Project %s: score offset %.3fs", req.ProjectName, req.ScoreOffset)
	}

	if len(req.Annotations) == 0 {
		req.Annotations = nil
	}
	backup := true
	if req.BackupOriginal != nil {
		backup = *req.BackupOriginal
	}
	res, err := s.service.AutoAlign(ctx, req.ProjectName, beatalign.AlignRequest{
		Params:      req.Params,
		Annotations: req.Annotations,
		AudioOffset: req.AudioOffset,
		Save:        req.Save,
		Backup:      backup,
	})
	if err != nil {
		var fallback *quantize.Report
		if res != nil {
			fallback = &res.Report
		}
		s.respondServiceError(w, "align annotations", err, fallback)
		return
	}

	s.respondJSON(w, http.StatusOK, AutoAlignResponse{
		Status:          "success",
		AlignmentResult: res.Report,
		OriginalCount:   res.OriginalCount,
		AlignedCount:    res.AlignedCount,
		Run:             res.Run,
		Saved:           res.Saved,
	})
}

// handleBeatGrid handles GET /api/beat_grid?project=name or ?bpm=&duration=[&origin=&beats_per_measure=]
func (s *Server) handleBeatGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	if name := q.Get("project"); name != "" {
		grid, err := s.service.BeatGrid(r.Context(), name)
		if err != nil {
			s.respondServiceError(w, "build beat grid", err)
			return
		}
		s.respondJSON(w, http.StatusOK, BeatGridResponse{Status: "success", BeatGrid: grid})
		return
	}

	bpm, err := strconv.ParseFloat(q.Get("bpm"), 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "project or numeric bpm is required")
		return
	}
	duration, err := strconv.ParseFloat(q.Get("duration"), 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "numeric duration is required")
		return
	}
	var origin float64
	if v := q.Get("origin"); v != "" {
		if origin, err = strconv.ParseFloat(v, 64); err != nil {
			s.respondError(w, http.StatusBadRequest, "origin must be numeric")
			return
		}
	}
	perMeasure := beatgrid.DefaultBeatsPerMeasure
	if v := q.Get("beats_per_measure"); v != "" {
		if perMeasure, err = strconv.Atoi(v); err != nil || perMeasure < 1 {
			s.respondError(w, http.StatusBadRequest, "beats_per_measure must be a positive integer")
			return
		}
	}

	tl, err := beatgrid.FromBPM(bpm, duration)
	if err != nil {
		s.respondServiceError(w, "build beat grid", err)
		return
	}
	tl = tl.Shift(origin)
	s.respondJSON(w, http.StatusOK, BeatGridResponse{
		Status: "success",
		BeatGrid: &beatalign.BeatGrid{
			Origin:       origin,
			Timeline:     tl,
			Measures:     beatgrid.Measures(tl, perMeasure),
			Downbeats:    beatgrid.Downbeats(tl, perMeasure),
			Subdivisions: beatgrid.Subdivisions(tl),
		},
	})
}

// handleProjects routes requests to /api/projects
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListProjects(w, r)
	case http.MethodPost:
		s.handleCreateProject(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleProject routes requests to /api/projects/{name}[/{resource}]
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(r.URL.Path[len("/api/projects/"):], "/")
	name, resource, _ := strings.Cut(rest, "/")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "Project name required")
		return
	}

	switch {
	case resource == "" && r.Method == http.MethodGet:
		s.handleGetProject(w, r, name)
	case resource == "" && r.Method == http.MethodPatch:
		s.handleUpdateProject(w, r, name)
	case resource == "" && r.Method == http.MethodDelete:
		s.handleDeleteProject(w, r, name)
	case resource == "annotations" && r.Method == http.MethodGet:
		s.handleGetAnnotations(w, r, name)
	case resource == "annotations" && (r.Method == http.MethodPut || r.Method == http.MethodPost):
		s.handleSaveAnnotations(w, r, name)
	case resource == "aligned_annotations" && r.Method == http.MethodPost:
		s.handleSaveAligned(w, r, name)
	case resource == "runs" && r.Method == http.MethodGet:
		s.handleRuns(w, r, name)
	case resource == "" || resource == "annotations" || resource == "aligned_annotations" || resource == "runs":
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Unknown project resource %q", resource))
	}
}

// handleListProjects handles GET /api/projects
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.ListProjects(r.Context())
	if err != nil {
		s.respondServiceError(w, "list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = ProjectDTO{Project: p, Title: p.Title()}
	}
	s.respondJSON(w, http.StatusOK, ListProjectsResponse{
		Status:   "success",
		Projects: dtos,
		Count:    len(dtos),
	})
}

// handleCreateProject handles POST /api/projects
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	p, err := s.service.CreateProject(r.Context(), req.spec())
	if err != nil {
		s.respondServiceError(w, "create project", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, ProjectDTO{Project: *p, Title: p.Title()})
}

// handleGetProject handles GET /api/projects/{name}
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, name string) {
	p, err := s.service.GetProject(r.Context(), name)
	if err != nil {
		s.respondServiceError(w, "get project", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ProjectDTO{Project: *p, Title: p.Title()})
}

// handleUpdateProject handles PATCH /api/projects/{name}
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request, name string) {
	var req UpdateProjectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	p, err := s.service.UpdateProject(r.Context(), name, beatalign.ProjectPatch{
		DisplayName:     req.DisplayName,
		BPM:             req.BPM,
		Duration:        req.Duration,
		MeasureOrigin:   req.MeasureOrigin,
		AudioOffset:     req.AudioOffset,
		BeatsPerMeasure: req.BeatsPerMeasure,
	})
	if err != nil {
		s.respondServiceError(w, "update project", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ProjectDTO{Project: *p, Title: p.Title()})
}

// handleDeleteProject handles DELETE /api/projects/{name}
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.service.DeleteProject(r.Context(), name); err != nil {
		s.respondServiceError(w, "delete project", err)
		return
	}
	s.respondJSON(w, http.StatusOK, DeleteProjectResponse{
		Status:  "success",
		Message: "Project deleted successfully",
		Name:    name,
	})
}

// handleGetAnnotations handles GET /api/projects/{name}/annotations
func (s *Server) handleGetAnnotations(w http.ResponseWriter, r *http.Request, name string) {
	events, err := s.service.Annotations(r.Context(), name)
	if err != nil {
		s.respondServiceError(w, "load annotations", err)
		return
	}
	if events == nil {
		events = []quantize.Event{}
	}
	s.respondJSON(w, http.StatusOK, AnnotationsResponse{
		Status:      "success",
		Annotations: events,
		Count:       len(events),
	})
}

// handleSaveAnnotations handles PUT /api/projects/{name}/annotations
func (s *Server) handleSaveAnnotations(w http.ResponseWriter, r *http.Request, name string) {
	var req SaveAnnotationsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	b, err := s.service.SaveAnnotations(r.Context(), name, req.Annotations, req.BackupOriginal)
	if err != nil {
		s.respondServiceError(w, "save annotations", err)
		return
	}
	s.respondSaved(w, len(req.Annotations), "annotations", b != nil, backupID(b))
}

// handleSaveAligned handles POST /api/projects/{name}/aligned_annotations
func (s *Server) handleSaveAligned(w http.ResponseWriter, r *http.Request, name string) {
	var req SaveAlignedRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	backup := true
	if req.BackupOriginal != nil {
		backup = *req.BackupOriginal
	}

	b, err := s.service.SaveAligned(r.Context(), name, req.AlignedAnnotations, backup)
	if err != nil {
		s.respondServiceError(w, "save aligned annotations", err)
		return
	}
	s.respondSaved(w, len(req.AlignedAnnotations), "aligned annotations", b != nil, backupID(b))
}

func (s *Server) respondSaved(w http.ResponseWriter, count int, what string, backedUp bool, id uint) {
	s.respondJSON(w, http.StatusOK, SaveResponse{
		Status:        "success",
		Message:       fmt.Sprintf("Saved %d %s", count, what),
		BackupCreated: backedUp,
		BackupID:      id,
	})
}

func backupID(b *models.AnnotationBackup) uint {
	if b == nil {
		return 0
	}
	return b.ID
}

// handleRuns handles GET /api/projects/{name}/runs[?limit=n]
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request, name string) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.service.Runs(r.Context(), name, limit)
	if err != nil {
		s.respondServiceError(w, "list runs", err)
		return
	}
	s.respondJSON(w, http.StatusOK, RunsResponse{Status: "success", Runs: runs, Count: len(runs)})
}
