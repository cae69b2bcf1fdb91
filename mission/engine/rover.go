package engine

import (
	"fmt"
	"strings"
)

var (
	leftOf  = map[Heading]Heading{North: West, West: South, South: East, East: North}
	rightOf = map[Heading]Heading{North: East, East: South, South: West, West: North}
)

// Rover is a single vehicle on the plateau
type Rover struct {
	id       int
	pos      Position
	heading  Heading
	commands []Command
	executed bool
	ran      int
}

// NewRover creates a rover at x,y facing heading. It does not check bounds or
// collisions; callers use IsValidLocation first.
func NewRover(x, y int, heading string, id int) (*Rover, error) {
	h, err := ParseHeading(heading)
	if err != nil {
		return nil, err
	}
	return &Rover{
		id:      id,
		pos:     Position{X: x, Y: y},
		heading: h,
	}, nil
}

// ParseHeading normalizes a single-letter heading (case-insensitive)
func ParseHeading(s string) (Heading, error) {
	h := Heading(strings.ToUpper(s))
	if _, ok := leftOf[h]; !ok {
		return "", newError(InvalidHeading, "direction must be N, S, E, or W, got %q", s)
	}
	return h, nil
}

// ParseCommands normalizes a command string of L, R and M (case-insensitive)
func ParseCommands(s string) ([]Command, error) {
	commands := make([]Command, 0, len(s))
	for i, ch := range strings.ToUpper(s) {
		switch c := Command(ch); c {
		case TurnLeft, TurnRight, MoveForward:
			commands = append(commands, c)
		default:
			return nil, newError(InvalidCommand, "movement command must be L, R, or M, got %q at position %d", ch, i+1)
		}
	}
	return commands, nil
}

// ID returns the rover ID
func (r *Rover) ID() int { return r.id }

// X returns the X coordinate
func (r *Rover) X() int { return r.pos.X }

// Y returns the Y coordinate
func (r *Rover) Y() int { return r.pos.Y }

// Position returns the current coordinates
func (r *Rover) Position() Position { return r.pos }

// Heading returns the direction the rover faces
func (r *Rover) Heading() Heading { return r.heading }

// Commands returns the stored commands as an upper-case string
func (r *Rover) Commands() string {
	var b strings.Builder
	for _, c := range r.commands {
		b.WriteString(string(c))
	}
	return b.String()
}

// Executed reports whether ExecuteCommands has run
func (r *Rover) Executed() bool { return r.executed }

// String returns "<x> <y> <heading>"
func (r *Rover) String() string {
	return fmt.Sprintf("%d %d %s", r.pos.X, r.pos.Y, r.heading)
}

// SetCommands replaces the stored commands
func (r *Rover) SetCommands(commands string) error {
	parsed, err := ParseCommands(commands)
	if err != nil {
		return err
	}
	r.commands = parsed
	return nil
}

// IsValidLocation reports whether x,y is on the plateau and free of rovers
func IsValidLocation(x, y int, p *Plateau, rovers []*Rover) bool {
	return blockedBy(x, y, p, rovers) == ""
}

// blockedBy names what stops a rover from standing on x,y, or "" when nothing does
func blockedBy(x, y int, p *Plateau, rovers []*Rover) string {
	if !p.Contains(x, y) {
		return BlockedByBoundary
	}
	for _, other := range rovers {
		if other.pos.X == x && other.pos.Y == y {
			return BlockedByRover
		}
	}
	return ""
}

// TurnLeft rotates the rover 90 degrees counter-clockwise
func (r *Rover) TurnLeft() {
	r.heading = leftOf[r.heading]
}

// TurnRight rotates the rover 90 degrees clockwise
func (r *Rover) TurnRight() {
	r.heading = rightOf[r.heading]
}

// ahead returns the cell one step in front of the rover
func (r *Rover) ahead() Position {
	next := r.pos
	switch r.heading {
	case North:
		next.Y++
	case South:
		next.Y--
	case East:
		next.X++
	case West:
		next.X--
	}
	return next
}

// MoveForward moves the rover one cell ahead. A move off the plateau or onto
// another rover is refused and the rover stays where it is.
func (r *Rover) MoveForward(p *Plateau, rovers []*Rover) Step {
	step := Step{
		Command: MoveForward,
		From:    r.pos,
		To:      r.pos,
		Heading: r.heading,
	}

	next := r.ahead()
	if reason := blockedBy(next.X, next.Y, p, rovers); reason != "" {
		step.BlockedBy = reason
		return step
	}

	r.pos = next
	step.To = next
	step.Moved = true
	return step
}

// ExecuteCommands applies every stored command in order and returns the trace
func (r *Rover) ExecuteCommands(p *Plateau, rovers []*Rover) []Step {
	steps := make([]Step, 0, len(r.commands))

	for i, c := range r.commands {
		var step Step
		switch c {
		case TurnLeft, TurnRight:
			from := r.pos
			if c == TurnLeft {
				r.TurnLeft()
			} else {
				r.TurnRight()
			}
			step = Step{Command: c, From: from, To: from, Heading: r.heading}
		case MoveForward:
			step = r.MoveForward(p, rovers)
		}
		step.Idx = i + 1
		steps = append(steps, step)
	}

	r.executed = true
	r.ran += len(r.commands)
	return steps
}

// state returns a snapshot of the rover
func (r *Rover) state() RoverState {
	return RoverState{
		ID:               r.id,
		X:                r.pos.X,
		Y:                r.pos.Y,
		Heading:          r.heading,
		PendingCommands:  r.Commands(),
		Executed:         r.executed,
		ExecutedCommands: r.ran,
	}
}
