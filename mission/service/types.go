package service

import (
	"time"

	"github.com/wricardo/mcp-training/marsrover/mission/engine"
)

// Event types reported alongside mission results
const (
	EventDeployed = "deployed"
	EventSkipped  = "skipped"
	EventExecuted = "executed"
	EventBlocked  = "blocked"
)

// SessionInfo provides information about a mission session
type SessionInfo struct {
	ID             string               `json:"id"`
	PlanName       string               `json:"plan_name"`
	CreatedAt      time.Time            `json:"created_at"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	MissionState   *engine.MissionState `json:"mission_state"`
	Plan           *engine.MissionPlan  `json:"plan"`
}

// DeployResult contains the result of a single deployment
type DeployResult struct {
	Deployed     bool                      `json:"deployed"`
	Rover        *engine.RoverState        `json:"rover,omitempty"`
	Skipped      *engine.SkippedDeployment `json:"skipped,omitempty"`
	MissionState *engine.MissionState      `json:"mission_state"`
	Message      string                    `json:"message"`
	Events       []MissionEvent            `json:"events,omitempty"`
}

// ExecuteResult contains the result of running every pending rover
type ExecuteResult struct {
	RoversExecuted int                  `json:"rovers_executed"`
	Reports        []engine.RoverReport `json:"reports"`
	Positions      []string             `json:"positions"`
	BlockedMoves   int                  `json:"blocked_moves"`
	MissionState   *engine.MissionState `json:"mission_state"`
	Message        string               `json:"message"`
	Events         []MissionEvent       `json:"events,omitempty"`
}

// MissionEvent represents something that happened during a mission
type MissionEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	RoverID   int             `json:"rover_id"`
	Position  engine.Position `json:"position"`
}

// PlanInfo provides information about a mission plan
type PlanInfo struct {
	Filename    string `json:"filename"`
	PlanID      string `json:"plan_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Rovers      int    `json:"rovers"`
}
