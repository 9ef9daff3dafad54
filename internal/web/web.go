package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"iuhsched/internal/config"
	"iuhsched/internal/engine"
	"iuhsched/internal/ics"
	appLog "iuhsched/internal/log"
	"iuhsched/internal/model"
	"iuhsched/internal/portal"
	"iuhsched/internal/tasks"
)

// Server exposes the schedule engine over HTTP: the week grid, task CRUD,
// manual refresh and an iCalendar feed.
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	mux    *http.ServeMux

	// The rendered calendar feed is cached until the store changes or the
	// TTL expires, whichever comes first.
	icsMu    sync.RWMutex
	icsCache *icsCache
	// icsGen counts invalidations; a feed rendered from an older
	// generation is not cached.
	icsGen uint64
}

type icsCache struct {
	body      string
	updatedAt time.Time
}

const icsCacheTTL = 30 * time.Second

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, eng *engine.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: eng,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials mean auth is off.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="iuhsched", charset="UTF-8"`)
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

// StartServer serves the API on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, eng *engine.Engine) error {
	s := NewServer(cfg, eng)
	unsubscribe, err := eng.Subscribe(ctx, s.invalidate)
	if err != nil {
		return err
	}
	defer unsubscribe()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/week", s.handleWeek)
	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleUpdateTask)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggleTask)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleWeek returns the projected grid of one week.
//
// GET /api/week?offset=0
//   - offset: weeks from the current one (default 0, may be negative)
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	week, err := s.engine.Week(r.Context(), offset)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.Tasks(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if list == nil {
		list = []model.TaskEntry{}
	}
	writeJSON(w, http.StatusOK, list)
}

// createTaskRequest is the JSON body of POST /api/tasks.
type createTaskRequest struct {
	Title    string  `json:"title"`
	Day      int     `json:"day"`
	Period   int     `json:"period"`
	Note     string  `json:"note"`
	Time     string  `json:"time"`
	Deadline *string `json:"deadline"`
	Date     string  `json:"date"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task, err := s.engine.CreateTask(r.Context(), tasks.NewTask{
		Title:    req.Title,
		Day:      req.Day,
		Period:   req.Period,
		Note:     req.Note,
		Time:     req.Time,
		Deadline: req.Deadline,
		Date:     req.Date,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var p tasks.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task, err := s.engine.UpdateTask(r.Context(), model.TaskID(r.PathValue("id")), p)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.engine.ToggleTask(r.Context(), model.TaskID(r.PathValue("id")))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteTask(r.Context(), model.TaskID(r.PathValue("id"))); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh fetches one week from the portal and merges it.
//
// POST /api/refresh?offset=0
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	appLog.Info("api refresh request", "offset", offset)

	res, err := s.engine.FetchWeek(r.Context(), offset)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCalendar serves all dated sessions and tasks as text/calendar.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	body, gen, ok := s.cachedFeed()
	if !ok {
		sessions, taskList, err := s.engine.Snapshot(r.Context())
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		body = ics.Serialize(sessions, taskList, ics.Options{
			Name:     "Lịch học IUH",
			Location: s.location(),
		})
		s.storeFeed(gen, body)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// cachedFeed returns the cached feed when it is fresh, and the generation a
// newly rendered feed must be stored under.
func (s *Server) cachedFeed() (body string, gen uint64, ok bool) {
	s.icsMu.RLock()
	defer s.icsMu.RUnlock()
	if c := s.icsCache; c != nil && time.Since(c.updatedAt) < icsCacheTTL {
		return c.body, s.icsGen, true
	}
	return "", s.icsGen, false
}

// storeFeed caches body unless the store changed since generation gen.
func (s *Server) storeFeed(gen uint64, body string) {
	s.icsMu.Lock()
	defer s.icsMu.Unlock()
	if gen != s.icsGen {
		return
	}
	s.icsCache = &icsCache{body: body, updatedAt: time.Now()}
}

// invalidate drops the cached calendar feed. It runs as a store change
// subscriber.
func (s *Server) invalidate() {
	s.icsMu.Lock()
	s.icsCache = nil
	s.icsGen++
	s.icsMu.Unlock()
}

func (s *Server) location() *time.Location {
	if s.cfg == nil {
		return time.Local
	}
	return s.cfg.Location()
}

// writeEngineError maps engine, task and portal errors to HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tasks.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tasks.ErrInvalidTask):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, portal.ErrNoCookies), errors.Is(err, portal.ErrLoginRequired):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, portal.ErrStatus), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, engine.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		appLog.Error("api request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
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
