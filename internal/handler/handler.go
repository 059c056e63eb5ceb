package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	appi18n "github.com/medsim/shlavbet/internal/i18n"
	"github.com/medsim/shlavbet/internal/model"
	"github.com/medsim/shlavbet/internal/sim"
	"github.com/medsim/shlavbet/internal/store"
)

// Pinger reports whether the generation collaborator is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for HTTP handlers. Live sessions
// are kept in a mutex-guarded registry; the store receives a
// write-behind of completed evaluations for analytics and export.
type Handler struct {
	engine *sim.Engine
	store  *store.Store
	pinger Pinger
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*sim.Session
}

// New creates a new Handler.
func New(engine *sim.Engine, st *store.Store, pinger Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		store:    st,
		pinger:   pinger,
		logger:   logger,
		sessions: make(map[string]*sim.Session),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.handleCreateSession)
		r.Get("/sessions", h.handleListSessions)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Put("/profile", h.handleSetProfile)
			r.Post("/case", h.handleStartCase)
			r.Post("/turns", h.handleAsk)
			r.Post("/evaluation", h.handleEvaluate)
			r.Post("/next", h.handleNextCase)
			r.Get("/analytics", h.handleAnalytics)
		})
	})
}

func (h *Handler) session(id string) (*sim.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	s := sim.NewSession()
	if err := h.engine.SetProfile(s, profile); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidProfile")
		return
	}

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	if err := h.store.CreateSession(model.SessionRecord{
		ID:            s.ID,
		ResidencyYear: profile.ResidencyYear,
		Difficulty:    profile.Difficulty,
		Topic:         profile.Topic,
		CreatedAt:     s.CreatedAt,
	}); err != nil {
		h.logger.Error("persist session", "session_id", s.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListSessions()
	if err != nil {
		h.logger.Error("list sessions", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	var profile model.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	if err := h.engine.SetProfile(s, profile); err != nil {
		if errors.Is(err, sim.ErrCaseInProgress) {
			writeError(w, r, http.StatusConflict, "CaseInProgress")
			return
		}
		writeError(w, r, http.StatusBadRequest, "InvalidProfile")
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) handleStartCase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	c, err := h.engine.StartCase(r.Context(), s)
	if err != nil {
		h.writeSimError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"case": c})
}

type askRequest struct {
	Question  string `json:"question"`
	ExtraData string `json:"extra_data"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	turn, err := h.engine.Ask(r.Context(), s, req.Question, req.ExtraData)
	if err != nil {
		h.writeSimError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turn": turn})
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	report, entry, err := h.engine.Evaluate(r.Context(), s)
	if err != nil {
		h.writeSimError(w, r, err)
		return
	}

	if err := h.store.AppendCaseLog(s.ID, entry); err != nil {
		h.logger.Error("persist case log entry", "session_id", s.ID, "case_number", entry.CaseNumber, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"evaluation": report, "log_entry": entry})
}

func (h *Handler) handleNextCase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}

	profile, err := h.engine.NextCase(s)
	if err != nil {
		h.writeSimError(w, r, err)
		return
	}

	if err := h.store.UpdateSessionFocus(s.ID, profile.Difficulty, profile.Topic); err != nil {
		h.logger.Error("persist session focus", "session_id", s.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, r, http.StatusNotFound, "SessionNotFound")
		return
	}
	writeJSON(w, http.StatusOK, s.Analytics())
}

// writeSimError maps state machine guard violations to 409, input
// problems to 400, and collaborator failures to 502. On a 502 the
// session state is unchanged and the user may retry the same action.
func (h *Handler) writeSimError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sim.ErrNoProfile):
		writeError(w, r, http.StatusConflict, "NoProfile")
	case errors.Is(err, sim.ErrCaseInProgress):
		writeError(w, r, http.StatusConflict, "CaseInProgress")
	case errors.Is(err, sim.ErrNoActiveCase):
		writeError(w, r, http.StatusConflict, "NoActiveCase")
	case errors.Is(err, sim.ErrAlreadyEvaluated):
		writeError(w, r, http.StatusConflict, "AlreadyEvaluated")
	case errors.Is(err, sim.ErrNotEvaluated):
		writeError(w, r, http.StatusConflict, "NotEvaluated")
	case errors.Is(err, sim.ErrEmptyUtterance):
		writeError(w, r, http.StatusBadRequest, "EmptyUtterance")
	default:
		h.logger.Error("generation step failed", "error", err)
		writeError(w, r, http.StatusBadGateway, "GenerationFailed")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorResponse{Error: appi18n.T(r.Context(), msgID)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
