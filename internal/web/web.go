// Package web provides the HTTP API: document upload, job status, ICS
// export, and calendar credential registration.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"gomical/internal/config"
	"gomical/internal/export"
	"gomical/internal/extract"
	appLog "gomical/internal/log"
	"gomical/internal/model"
	"gomical/internal/storage"
	"gomical/internal/store"
)

// maxUploadBytes bounds one multipart upload. Municipal schedule PDFs
// are typically well under a megabyte.
const maxUploadBytes = 20 << 20

// Server exposes the job API over HTTP.
type Server struct {
	cfg  *config.Config
	st   *store.Store
	docs *storage.DirStore
	mux  *http.ServeMux

	// kick, when set, nudges the worker to sweep right away instead of
	// waiting for the next cron tick.
	kick func()
}

// NewServer constructs a Server. kick may be nil.
func NewServer(cfg *config.Config, st *store.Store, docs *storage.DirStore, kick func()) *Server {
	s := &Server{
		cfg:  cfg,
		st:   st,
		docs: docs,
		mux:  http.NewServeMux(),
		kick: kick,
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server, with basic auth
// applied when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gomical", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/jobs", s.handleCreateJob)
	s.mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("GET /api/jobs/{id}/export.ics", s.handleExportJob)
	s.mux.HandleFunc("PUT /api/integrations/{userID}", s.handlePutIntegration)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCreateJob accepts a multipart PDF upload and enqueues a pending
// job for it. Fields: file (required), user_id (required), language and
// mode (optional, defaulted from config).
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = s.cfg.Extract.Language
	}
	mode := strings.TrimSpace(r.FormValue("mode"))
	if mode == "" {
		mode = s.cfg.Extract.Mode
	}
	if mode != extract.ModeGarbage && mode != extract.ModeGeneral {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", mode))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	ext := path.Ext(header.Filename)
	if ext == "" {
		ext = ".pdf"
	}
	key, err := s.docs.Put("uploads/"+uuid.NewString()+ext, data)
	if err != nil {
		appLog.Error("upload store failed", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job, err := s.st.CreateJob(r.Context(), model.Job{
		UserID:    userID,
		ObjectKey: key,
		Language:  language,
		Mode:      mode,
	})
	if err != nil {
		appLog.Error("job create failed", err, "object_key", key)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	appLog.Info("job enqueued", "job_id", job.ID, "user_id", userID, "object_key", key, "bytes", len(data))
	if s.kick != nil {
		s.kick()
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.st.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		appLog.Error("job load failed", err, "job_id", r.PathValue("id"))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseIntDefault(q.Get("limit"), 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	jobs, err := s.st.ListJobs(r.Context(), q.Get("user_id"), limit)
	if err != nil {
		appLog.Error("job list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// handleExportJob renders the cached extraction of a completed job as
// an iCalendar file, so the schedule can be imported into clients that
// are not connected through the calendar integration.
func (s *Server) handleExportJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.st.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if job.DocumentHash == "" {
		writeError(w, http.StatusConflict, "job has no extracted schedule yet")
		return
	}

	res, hit, err := s.st.LookupParse(r.Context(), job.DocumentHash, job.Language, job.Mode)
	if err != nil {
		appLog.Error("export cache lookup failed", err, "job_id", job.ID)
		writeError(w, http.StatusInternalServerError, "failed to load extraction")
		return
	}
	if !hit {
		writeError(w, http.StatusNotFound, "no extraction cached for this job")
		return
	}

	body, err := export.BuildICS(res.Title, res.Events)
	if err != nil {
		appLog.Error("export build failed", err, "job_id", job.ID)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.ID+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

type integrationRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handlePutIntegration stores the user's long-lived calendar credential
// obtained out-of-band through the OAuth consent flow.
func (s *Server) handlePutIntegration(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var req integrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := s.st.SetRefreshToken(r.Context(), userID, req.RefreshToken); err != nil {
		appLog.Error("integration store failed", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}

	appLog.Info("calendar credential stored", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "status": "connected"})
}

// StartServer serves the API on cfg.Listen until ctx is cancelled.
func StartServer(ctx context.Context, cfg *config.Config, st *store.Store, docs *storage.DirStore, kick func()) error {
	s := NewServer(cfg, st, docs, kick)
	srv := &http.Server{Addr: cfg.Listen, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
