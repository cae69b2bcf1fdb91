package engine

import "fmt"

// Heading represents the cardinal direction a rover faces
type Heading string

const (
	North Heading = "N"
	East  Heading = "E"
	South Heading = "S"
	West  Heading = "W"
)

// Command represents a single rover instruction
type Command string

const (
	TurnLeft    Command = "L"
	TurnRight   Command = "R"
	MoveForward Command = "M"
)

// Reasons a forward move can be refused
const (
	BlockedByBoundary = "boundary"
	BlockedByRover    = "rover"
)

// Position represents x,y coordinates on the plateau. North is y+1.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step records the outcome of one executed command
type Step struct {
	Idx       int      `json:"idx"`
	Command   Command  `json:"command"`
	From      Position `json:"from"`
	To        Position `json:"to"`
	Heading   Heading  `json:"heading"`
	Moved     bool     `json:"moved"`
	BlockedBy string   `json:"blocked_by,omitempty"`
}

// RoverReport is the final state of a rover after execution
type RoverReport struct {
	ID      int     `json:"id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Heading Heading `json:"heading"`
	Steps   []Step  `json:"steps,omitempty"`
}

// String formats the report as "<x> <y> <heading>"
func (r RoverReport) String() string {
	return fmt.Sprintf("%d %d %s", r.X, r.Y, r.Heading)
}

// Deployment is a single rover record from a mission plan
type Deployment struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Heading  string `json:"heading"`
	Commands string `json:"commands"`
}

// SkippedDeployment describes a rover that never joined the mission
type SkippedDeployment struct {
	ID         int        `json:"id"`
	Deployment Deployment `json:"deployment"`
	Kind       ErrorKind  `json:"kind"`
	Reason     string     `json:"reason"`
}

// RoverState is a snapshot of a deployed rover
type RoverState struct {
	ID               int     `json:"id"`
	X                int     `json:"x"`
	Y                int     `json:"y"`
	Heading          Heading `json:"heading"`
	PendingCommands  string  `json:"pending_commands"`
	Executed         bool    `json:"executed"`
	ExecutedCommands int     `json:"executed_commands"`
}

// MissionState represents the complete state of a mission
type MissionState struct {
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
	Rovers    []RoverState        `json:"rovers"`
	Skipped   []SkippedDeployment `json:"skipped"`
	Positions []string            `json:"positions"`
	Complete  bool                `json:"complete"`
}

// MissionPlan describes a plateau and the rovers to deploy on it
type MissionPlan struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	TopY        int          `json:"top_y"`
	RightX      int          `json:"right_x"`
	Rovers      []Deployment `json:"rovers"`
}
