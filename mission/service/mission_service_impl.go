package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/marsrover/logger"
	"github.com/wricardo/mcp-training/marsrover/metrics"
	"github.com/wricardo/mcp-training/marsrover/mission/engine"
)

// inlinePlanName names plans submitted without a name
const inlinePlanName = "inline"

// missionServiceImpl implements the MissionService interface
type missionServiceImpl struct {
	sessions SessionManager
	plans    PlanManager
	log      logger.Logger
	metrics  metrics.Recorder
	mu       sync.RWMutex
}

// Option configures the mission service
type Option func(*missionServiceImpl)

// WithLogger sets the service logger
func WithLogger(l logger.Logger) Option {
	return func(s *missionServiceImpl) {
		s.log = l
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(s *missionServiceImpl) {
		s.metrics = r
	}
}

// NewMissionService creates a new mission service instance
func NewMissionService(sessions SessionManager, plans PlanManager, opts ...Option) MissionService {
	s := &missionServiceImpl{
		sessions: sessions,
		plans:    plans,
		log:      logger.Nop(),
		metrics:  metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new mission session from a catalogue plan.
// An empty plan name selects the default plan.
func (s *missionServiceImpl) CreateSession(ctx context.Context, planName string) (*SessionInfo, error) {
	var plan *engine.MissionPlan
	if planName != "" {
		loaded, err := s.plans.LoadPlan(planName)
		if err != nil {
			if errors.Is(err, ErrPlanNotFound) {
				return nil, s.planNotFound(planName)
			}
			return nil, fmt.Errorf("failed to load plan %s: %w", planName, err)
		}
		plan = loaded
	} else {
		plan = s.plans.GetDefault()
	}

	return s.createSession(plan, planName)
}

// CreateSessionFromPlan creates a session from a plan supplied by the caller
func (s *missionServiceImpl) CreateSessionFromPlan(ctx context.Context, plan *engine.MissionPlan) (*SessionInfo, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan cannot be nil", ErrInvalidPlan)
	}
	if len(plan.Rovers) > engine.MaxPlanRovers {
		return nil, fmt.Errorf("%w: plan has %d rovers, the limit is %d", ErrInvalidPlan, len(plan.Rovers), engine.MaxPlanRovers)
	}
	if plan.Name == "" {
		named := *plan
		named.Name = inlinePlanName
		plan = &named
	}
	return s.createSession(plan, plan.Name)
}

func (s *missionServiceImpl) createSession(plan *engine.MissionPlan, planID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Create("", plan)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	deployed := len(sess.Mission.Rovers())
	for i := 0; i < deployed; i++ {
		s.metrics.RecordDeployment(metrics.OutcomeDeployed)
	}
	for _, skipped := range sess.Mission.Skipped() {
		s.reportSkipped(sess.ID, skipped)
	}
	s.metrics.SetActiveSessions(len(s.sessions.List()))

	s.log.Infof("session %s created from plan %q with %d rovers (%d skipped)",
		sess.ID, plan.Name, deployed, len(sess.Mission.Skipped()))

	if planID == "" {
		planID = plan.Name
	}
	return s.sessionInfo(sess, planID), nil
}

// GetSession retrieves session information
func (s *missionServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, sess.Plan.Name), nil
}

// ListSessions returns all active sessions
func (s *missionServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, sess.Plan.Name))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *missionServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.metrics.SetActiveSessions(len(s.sessions.List()))
	s.log.Infof("session %s deleted", sessionID)
	return nil
}

// Deploy lands one more rover in a session. A rover that cannot be placed is
// not an error: the result reports it as skipped and the session stays
// usable. Malformed headings or commands are returned as engine errors.
func (s *missionServiceImpl) Deploy(ctx context.Context, sessionID string, deployment engine.Deployment) (*DeployResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	rover, err := sess.Mission.Deploy(deployment)
	if err != nil {
		if !errors.Is(err, engine.ErrInvalidPlacement) {
			s.metrics.RecordDeployment(metrics.OutcomeRejected)
			s.log.Warnf("session %s: rejected rover %d %d %s %q: %v",
				sessionID, deployment.X, deployment.Y, deployment.Heading, deployment.Commands, err)
			return nil, fmt.Errorf("failed to deploy rover: %w", err)
		}

		skipped := lastSkipped(sess.Mission)
		s.reportSkipped(sessionID, skipped)
		return &DeployResult{
			Deployed:     false,
			Skipped:      &skipped,
			MissionState: sess.Mission.State(),
			Message:      skipped.Reason,
			Events: []MissionEvent{{
				Type:      EventSkipped,
				Message:   skipped.Reason,
				Timestamp: time.Now(),
				RoverID:   skipped.ID,
				Position:  engine.Position{X: deployment.X, Y: deployment.Y},
			}},
		}, nil
	}

	s.metrics.RecordDeployment(metrics.OutcomeDeployed)
	state := sess.Mission.State()
	var roverState *engine.RoverState
	for i := range state.Rovers {
		if state.Rovers[i].ID == rover.ID() {
			roverState = &state.Rovers[i]
			break
		}
	}

	message := fmt.Sprintf("Rover %d deployed at %s", rover.ID(), rover.String())
	s.log.Debugf("session %s: %s", sessionID, message)

	return &DeployResult{
		Deployed:     true,
		Rover:        roverState,
		MissionState: state,
		Message:      message,
		Events: []MissionEvent{{
			Type:      EventDeployed,
			Message:   message,
			Timestamp: time.Now(),
			RoverID:   rover.ID(),
			Position:  rover.Position(),
		}},
	}, nil
}

// Execute runs every rover of the session that has not moved yet, in
// deployment order.
func (s *missionServiceImpl) Execute(ctx context.Context, sessionID string) (*ExecuteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	reports := sess.Mission.Run()

	events := make([]MissionEvent, 0, len(reports))
	steps, blocked := 0, 0
	for _, report := range reports {
		roverBlocked := 0
		for _, step := range report.Steps {
			steps++
			if step.Command != engine.MoveForward || step.Moved {
				continue
			}
			blocked++
			roverBlocked++
			events = append(events, MissionEvent{
				Type:      EventBlocked,
				Message:   fmt.Sprintf("Rover %d blocked by %s at step %d", report.ID, step.BlockedBy, step.Idx),
				Timestamp: time.Now(),
				RoverID:   report.ID,
				Position:  step.From,
			})
		}
		s.log.Debugw("rover executed", map[string]any{
			"session":  sessionID,
			"rover":    report.ID,
			"position": report.String(),
			"commands": len(report.Steps),
			"blocked":  roverBlocked,
		})
		events = append(events, MissionEvent{
			Type:      EventExecuted,
			Message:   fmt.Sprintf("Rover %d finished at %s", report.ID, report.String()),
			Timestamp: time.Now(),
			RoverID:   report.ID,
			Position:  engine.Position{X: report.X, Y: report.Y},
		})
	}
	s.metrics.RecordMissionRun(len(reports), steps, blocked)

	message := fmt.Sprintf("Executed %d rovers", len(reports))
	if len(reports) == 0 {
		message = "No pending rovers to execute"
	}
	s.log.Infof("session %s: %s (%d commands, %d blocked moves)", sessionID, message, steps, blocked)

	return &ExecuteResult{
		RoversExecuted: len(reports),
		Reports:        reports,
		Positions:      sess.Mission.Positions(),
		BlockedMoves:   blocked,
		MissionState:   sess.Mission.State(),
		Message:        message,
		Events:         events,
	}, nil
}

// GetMissionState returns the current mission state
func (s *missionServiceImpl) GetMissionState(ctx context.Context, sessionID string) (*engine.MissionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Mission.State(), nil
}

// ListPlans returns all available mission plans
func (s *missionServiceImpl) ListPlans(ctx context.Context) ([]*PlanInfo, error) {
	return s.plans.ListPlans()
}

// LoadPlan loads a specific mission plan
func (s *missionServiceImpl) LoadPlan(ctx context.Context, planName string) (*engine.MissionPlan, error) {
	return s.plans.LoadPlan(planName)
}

// SavePlan validates and stores a mission plan
func (s *missionServiceImpl) SavePlan(ctx context.Context, planName string, plan *engine.MissionPlan) error {
	if err := engine.ValidatePlan(plan); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := s.plans.SavePlan(planName, plan); err != nil {
		return err
	}
	s.log.Infof("plan %q saved as %s", plan.Name, planName)
	return nil
}

// getSession touches a session's access time and returns the session
// manager's copy of it, taken after the touch. Callers hold mu.
func (s *missionServiceImpl) getSession(sessionID string) (*Session, error) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		s.log.Warnf("session %s: failed to update access time: %v", sessionID, err)
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	return sess, nil
}

func (s *missionServiceImpl) sessionInfo(sess *Session, planID string) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		PlanName:       planID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		MissionState:   sess.Mission.State(),
		Plan:           sess.Plan,
	}
}

func (s *missionServiceImpl) reportSkipped(sessionID string, skipped engine.SkippedDeployment) {
	s.metrics.RecordDeployment(metrics.OutcomeSkipped)
	d := skipped.Deployment
	s.log.Warnf("session %s: Could not deploy rover at %d %d %s (rover %d, %s)",
		sessionID, d.X, d.Y, d.Heading, skipped.ID, skipped.Kind)
}

// planNotFound lists the available plan ids to help the caller
func (s *missionServiceImpl) planNotFound(planName string) error {
	available, err := s.plans.ListPlans()
	if err != nil || len(available) == 0 {
		return fmt.Errorf("%w: %s. Use /api/plans to list available plans", ErrPlanNotFound, planName)
	}
	ids := make([]string, 0, len(available))
	for _, p := range available {
		ids = append(ids, p.PlanID)
	}
	return fmt.Errorf("%w: %s. Available plans: %v", ErrPlanNotFound, planName, ids)
}

func lastSkipped(m *engine.Mission) engine.SkippedDeployment {
	skipped := m.Skipped()
	return skipped[len(skipped)-1]
}
