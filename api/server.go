package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/marsrover/logger"
	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/parser"
	"github.com/wricardo/mcp-training/marsrover/mission/service"
	"github.com/wricardo/mcp-training/marsrover/transport/websocket"
)

// maxBodyBytes caps request bodies; a full plan of MaxPlanRovers rovers fits well within it
const maxBodyBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service  service.MissionService
	hub      *websocket.Hub
	router   *mux.Router
	log      logger.Logger
	metrics  http.Handler
	missions []engine.Option
}

// Option configures the API server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetricsHandler serves the given handler on /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMissionOptions sets the engine options used by /api/simulate
func WithMissionOptions(opts ...engine.Option) Option {
	return func(s *Server) {
		s.missions = opts
	}
}

// NewServer creates a new API server. The hub may be nil.
func NewServer(missionService service.MissionService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: missionService,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Mission operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetMissionState).Methods("GET")
	api.HandleFunc("/sessions/{id}/rovers", s.handleDeploy).Methods("POST")
	api.HandleFunc("/sessions/{id}/execute", s.handleExecute).Methods("POST")

	// One-shot simulation
	api.HandleFunc("/simulate", s.handleSimulate).Methods("POST")

	// Plans
	api.HandleFunc("/plans", s.handleListPlans).Methods("GET")
	api.HandleFunc("/plans", s.handleCreatePlan).Methods("POST")
	api.HandleFunc("/plans/{name}", s.handleGetPlan).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// statusFor maps service and engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidPlan), engine.KindOf(err) != 0:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) broadcastState(sessionID string, state *engine.MissionState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string              `json:"plan_id,omitempty"`
		Plan   *engine.MissionPlan `json:"plan,omitempty"`
	}

	if r.Body != nil {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var (
		info *service.SessionInfo
		err  error
	)
	if req.Plan != nil {
		info, err = s.service.CreateSessionFromPlan(r.Context(), req.Plan)
	} else {
		info, err = s.service.CreateSession(r.Context(), req.PlanID)
	}
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.log.Infof("[SESSION] created id=%s plan=%s", info.ID, info.PlanName)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Mission Handlers

func (s *Server) handleGetMissionState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetMissionState(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req engine.Deployment
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Deploy(r.Context(), sessionID, req)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcastState(sessionID, result.MissionState)

	if !result.Deployed {
		s.log.Infof("[DEPLOY] session=%s SKIPPED at=(%d,%d) reason=%s", sessionID, req.X, req.Y, result.Message)
		if s.hub != nil {
			s.hub.BroadcastEvent(sessionID, websocket.EventSkipped, result.Skipped)
		}
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	if rover := result.Rover; rover != nil {
		s.log.Infof("[DEPLOY] session=%s rover=%d at=(%d,%d) heading=%s commands=%d",
			sessionID, rover.ID, rover.X, rover.Y, rover.Heading, len(rover.PendingCommands))
		if s.hub != nil {
			s.hub.BroadcastEvent(sessionID, websocket.EventDeployed, rover)
		}
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Execute(r.Context(), sessionID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.broadcastState(sessionID, result.MissionState)
	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventExecuted, result.Positions)
	}

	s.log.Infof("[EXECUTE] session=%s rovers=%d blocked=%d positions=%s",
		sessionID, result.RoversExecuted, result.BlockedMoves, strings.Join(result.Positions, ","))

	respondJSON(w, http.StatusOK, result)
}

// handleSimulate runs a whole plan without creating a session. The body is
// either a JSON plan or, with a text/plain content type, the plain-text
// mission format.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	body := io.LimitReader(r.Body, maxBodyBytes)

	var (
		plan *engine.MissionPlan
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		plan, err = parser.Parse(body)
	} else {
		plan = &engine.MissionPlan{}
		err = json.NewDecoder(body).Decode(plan)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid plan: %v", err))
		return
	}
	if len(plan.Rovers) > engine.MaxPlanRovers {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Plan exceeds %d rovers", engine.MaxPlanRovers))
		return
	}

	result, err := engine.Simulate(plan, s.missions...)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.log.Infof("[SIMULATE] rovers=%d skipped=%d", len(result.Reports), len(result.Skipped))
	respondJSON(w, http.StatusOK, result)
}

// Plan Handlers

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.service.ListPlans(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, plans)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planName := mux.Vars(r)["name"]

	plan, err := s.service.LoadPlan(r.Context(), planName)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"plan_id,omitempty"`
		engine.MissionPlan
	}

	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Plan name is required")
		return
	}
	planID := req.PlanID
	if planID == "" {
		planID = req.Name
	}

	if err := s.service.SavePlan(r.Context(), planID, &req.MissionPlan); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save plan: %v", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Plan saved successfully",
		"plan_id": planID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	state, err := s.service.GetMissionState(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	if s.hub == nil {
		http.Error(w, "WebSocket updates are disabled", http.StatusServiceUnavailable)
		return
	}

	s.hub.ServeWS(w, r, sessionID, state)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
