package engine

import "errors"

// InputPolicy decides what happens to a rover whose heading or commands are malformed
type InputPolicy int

const (
	// AbortOnInvalidInput stops the whole run on a malformed heading or command string.
	AbortOnInvalidInput InputPolicy = iota
	// SkipInvalidInput discards the offending rover and keeps deploying the rest.
	SkipInvalidInput
)

// Option configures a Mission
type Option func(*Mission)

// WithInputPolicy sets how malformed rover records are handled
func WithInputPolicy(policy InputPolicy) Option {
	return func(m *Mission) {
		m.policy = policy
	}
}

// Mission owns the plateau and the ordered rover collection. Occupancy checks
// always read the live positions of every deployed rover.
type Mission struct {
	plateau *Plateau
	rovers  []*Rover
	skipped []SkippedDeployment
	reports []RoverReport
	nextID  int
	policy  InputPolicy
}

// NewMission creates an empty mission on the given plateau
func NewMission(plateau *Plateau, opts ...Option) *Mission {
	m := &Mission{
		plateau: plateau,
		rovers:  []*Rover{},
		skipped: []SkippedDeployment{},
		reports: []RoverReport{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rovers returns the deployed rovers in deployment order
func (m *Mission) Rovers() []*Rover {
	return m.rovers
}

// Skipped returns the deployments that never joined the mission
func (m *Mission) Skipped() []SkippedDeployment {
	return m.skipped
}

// Deploy validates the placement of a rover record and adds it to the mission.
// Every call consumes one ID, so IDs follow input order and may have gaps.
//
// A rover that cannot be placed is recorded as skipped and an InvalidPlacement
// error is returned; the mission stays usable. A malformed heading or command
// string returns InvalidHeading or InvalidCommand and, under
// SkipInvalidInput, is recorded as skipped too.
func (m *Mission) Deploy(d Deployment) (*Rover, error) {
	id := m.nextID
	m.nextID++

	if !IsValidLocation(d.X, d.Y, m.plateau, m.rovers) {
		err := newError(InvalidPlacement, "could not deploy rover at %d %d %s", d.X, d.Y, d.Heading)
		m.skip(id, d, err)
		return nil, err
	}

	rover, err := NewRover(d.X, d.Y, d.Heading, id)
	if err == nil {
		err = rover.SetCommands(d.Commands)
	}
	if err != nil {
		if m.policy == SkipInvalidInput {
			m.skip(id, d, err)
		}
		return nil, err
	}

	m.rovers = append(m.rovers, rover)
	return rover, nil
}

// DeployAll deploys records in order. Placement failures never stop it; a
// malformed record stops it only under AbortOnInvalidInput.
func (m *Mission) DeployAll(deployments []Deployment) error {
	for _, d := range deployments {
		_, err := m.Deploy(d)
		if err == nil || errors.Is(err, ErrInvalidPlacement) {
			continue
		}
		if m.policy == SkipInvalidInput {
			continue
		}
		return err
	}
	return nil
}

func (m *Mission) skip(id int, d Deployment, err error) {
	m.skipped = append(m.skipped, SkippedDeployment{
		ID:         id,
		Deployment: d,
		Kind:       KindOf(err),
		Reason:     err.Error(),
	})
}

// Run executes every rover that has not run yet, one at a time in deployment
// order. Finished rovers are never revisited. It returns the reports of the
// rovers executed by this call.
func (m *Mission) Run() []RoverReport {
	executed := []RoverReport{}
	for _, rover := range m.rovers {
		if rover.Executed() {
			continue
		}
		steps := rover.ExecuteCommands(m.plateau, m.rovers)
		report := RoverReport{
			ID:      rover.ID(),
			X:       rover.X(),
			Y:       rover.Y(),
			Heading: rover.Heading(),
			Steps:   steps,
		}
		m.reports = append(m.reports, report)
		executed = append(executed, report)
	}
	return executed
}

// Complete reports whether every deployed rover has executed
func (m *Mission) Complete() bool {
	for _, rover := range m.rovers {
		if !rover.Executed() {
			return false
		}
	}
	return true
}

// Reports returns the reports of all executed rovers in execution order
func (m *Mission) Reports() []RoverReport {
	return m.reports
}

// Positions returns "<x> <y> <heading>" for every deployed rover in deployment order
func (m *Mission) Positions() []string {
	positions := make([]string, 0, len(m.rovers))
	for _, rover := range m.rovers {
		positions = append(positions, rover.String())
	}
	return positions
}

// State returns a snapshot of the mission
func (m *Mission) State() *MissionState {
	rovers := make([]RoverState, 0, len(m.rovers))
	for _, rover := range m.rovers {
		rovers = append(rovers, rover.state())
	}
	skipped := make([]SkippedDeployment, len(m.skipped))
	copy(skipped, m.skipped)

	return &MissionState{
		Width:     m.plateau.Width(),
		Height:    m.plateau.Height(),
		Rovers:    rovers,
		Skipped:   skipped,
		Positions: m.Positions(),
		Complete:  m.Complete(),
	}
}

// Result is the outcome of a one-shot simulation
type Result struct {
	Reports   []RoverReport       `json:"reports"`
	Skipped   []SkippedDeployment `json:"skipped"`
	Positions []string            `json:"positions"`
}

// NewMissionFromPlan builds the plateau and deploys every rover of the plan
func NewMissionFromPlan(plan *MissionPlan, opts ...Option) (*Mission, error) {
	if plan == nil {
		return nil, errors.New("plan cannot be nil")
	}
	plateau, err := NewPlateau(plan.TopY, plan.RightX)
	if err != nil {
		return nil, err
	}
	m := NewMission(plateau, opts...)
	if err := m.DeployAll(plan.Rovers); err != nil {
		return nil, err
	}
	return m, nil
}

// Simulate deploys and runs a whole plan
func Simulate(plan *MissionPlan, opts ...Option) (*Result, error) {
	m, err := NewMissionFromPlan(plan, opts...)
	if err != nil {
		return nil, err
	}
	reports := m.Run()
	return &Result{
		Reports:   reports,
		Skipped:   m.Skipped(),
		Positions: m.Positions(),
	}, nil
}
