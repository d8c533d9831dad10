// Package httpapi exposes the site status, manual runs, reload and a
// live transition stream over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/fletchck/fletchck/internal/domain"
	"github.com/fletchck/fletchck/internal/httpapi/middleware"
	"github.com/fletchck/fletchck/internal/scheduler"
)

// HistoryReader serves stored results for the history endpoint.
type HistoryReader interface {
	Recent(ctx context.Context, checkName string, limit int) ([]domain.Result, error)
}

// Server wires the API handlers to the scheduler.
type Server struct {
	Logger  *zap.Logger
	Sched   *scheduler.Scheduler
	Hub     *Hub
	History HistoryReader // nil disables the history endpoint
	Reload  func() error  // re-reads and applies the site config
	Keys    middleware.Keys
}

func NewServer(l *zap.Logger, sched *scheduler.Scheduler, hub *Hub, history HistoryReader, reload func() error, keys middleware.Keys) *Server {
	return &Server{
		Logger:  l,
		Sched:   sched,
		Hub:     hub,
		History: history,
		Reload:  reload,
		Keys:    keys,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireKey(s.Keys))
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/checks", s.handleListChecks)
		r.Get("/api/checks/{name}", s.handleCheck)
		r.Get("/api/checks/{name}/history", s.handleHistory)
		r.Get("/ws", s.Hub.Handle)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireKey(s.Keys), middleware.RequireAdmin(s.Keys))
		r.Post("/api/checks/{name}/run", s.handleRun)
		r.Post("/api/reload", s.handleReload)
	})

	return r
}

type checkSummary struct {
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Status         domain.Status  `json:"status"`
	Failing        bool           `json:"failing"`
	LastResult     *domain.Result `json:"lastResult,omitempty"`
	LastTransition string         `json:"lastTransition,omitempty"`
}

type statusPayload struct {
	Fail   bool           `json:"fail"`
	Info   string         `json:"info,omitempty"`
	Checks []checkSummary `json:"checks"`
}

func (s *Server) summaries() []checkSummary {
	reg := s.Sched.Registry()
	if reg == nil {
		return nil
	}
	out := make([]checkSummary, 0, len(reg.CheckNames()))
	for _, name := range reg.CheckNames() {
		def, _ := reg.Check(name)
		data, ok := s.Sched.CheckData(name)
		if !ok {
			continue
		}
		cs := checkSummary{
			Name:       name,
			Type:       def.Type,
			Status:     data.Status,
			Failing:    data.Status == domain.StatusFailing,
			LastResult: data.LastResult,
		}
		if !data.LastTransition.IsZero() {
			cs.LastTransition = data.LastTransition.Format("02 Jan 2006 15:04:05 MST")
		}
		out = append(out, cs)
	}
	return out
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	checks := s.summaries()
	p := statusPayload{Checks: checks}
	failCount := 0
	for _, c := range checks {
		if c.Failing {
			failCount++
			p.Fail = true
		}
	}
	if failCount > 0 {
		plural := ""
		if failCount > 1 {
			plural = "s"
		}
		p.Info = fmt.Sprintf("%d check%s in fail state", failCount, plural)
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListChecks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summaries())
}

type checkDetail struct {
	Name    string           `json:"name"`
	Type    string           `json:"type"`
	Depends []string         `json:"depends,omitempty"`
	Actions []string         `json:"actions,omitempty"`
	Data    domain.StateData `json:"data"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	reg := s.Sched.Registry()
	def, ok := reg.Check(name)
	if !ok {
		http.Error(w, "unknown check", http.StatusNotFound)
		return
	}
	data, _ := s.Sched.CheckData(name)
	writeJSON(w, http.StatusOK, checkDetail{
		Name:    name,
		Type:    def.Type,
		Depends: def.DependsOn,
		Actions: def.ActionRefs,
		Data:    data,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		http.Error(w, "history not enabled", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := s.History.Recent(r.Context(), name, limit)
	if err != nil {
		s.Logger.Warn("history_query", zap.String("check", name), zap.Error(err))
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.Sched.RunNow(name); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.Logger.Info("manual_run", zap.String("check", name))
	writeJSON(w, http.StatusAccepted, map[string]string{"check": name, "state": "running"})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.Reload == nil {
		http.Error(w, "reload not available", http.StatusNotFound)
		return
	}
	if err := s.Reload(); err != nil {
		s.Logger.Warn("reload_rejected", zap.Error(err))
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.Logger.Info("config_reloaded")
	writeJSON(w, http.StatusOK, map[string]string{"state": "reloaded"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
