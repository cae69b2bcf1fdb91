package service

import (
	"context"
	"time"

	"github.com/wricardo/mcp-training/marsrover/mission/engine"
)

// MissionService defines all mission-related operations
type MissionService interface {
	// Session Management
	CreateSession(ctx context.Context, planName string) (*SessionInfo, error)
	CreateSessionFromPlan(ctx context.Context, plan *engine.MissionPlan) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Mission Operations
	Deploy(ctx context.Context, sessionID string, deployment engine.Deployment) (*DeployResult, error)
	Execute(ctx context.Context, sessionID string) (*ExecuteResult, error)

	// Mission State
	GetMissionState(ctx context.Context, sessionID string) (*engine.MissionState, error)

	// Plans
	ListPlans(ctx context.Context) ([]*PlanInfo, error)
	LoadPlan(ctx context.Context, planName string) (*engine.MissionPlan, error)
	SavePlan(ctx context.Context, planName string, plan *engine.MissionPlan) error
}

// SessionManager defines session storage operations. Implementations must be
// safe for concurrent use and return sessions whose time fields are not
// written after they are returned.
type SessionManager interface {
	Create(id string, plan *engine.MissionPlan) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// PlanManager handles mission plan loading
type PlanManager interface {
	LoadPlan(name string) (*engine.MissionPlan, error)
	ListPlans() ([]*PlanInfo, error)
	GetDefault() *engine.MissionPlan
	SavePlan(name string, plan *engine.MissionPlan) error
}

// Session represents an active mission session
type Session struct {
	ID             string
	Mission        *engine.Mission
	Plan           *engine.MissionPlan
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
