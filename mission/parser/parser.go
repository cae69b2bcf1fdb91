// Package parser reads and writes the plain-text mission format.
//
// The first non-blank line holds the plateau's top Y and right X coordinates.
// Every rover then takes two lines: its position and heading ("1 2 N") and
// its command string ("LMLMLMLMM"). Blank lines are ignored.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/marsrover/mission/engine"
)

var (
	ErrEmptyInput      = errors.New("input does not contain plateau top-right coordinates")
	ErrMalformedLine   = errors.New("malformed line")
	ErrMissingCommands = errors.New("rover has no command line")
)

// Parse reads a mission plan in the plain-text format. Heading and command
// characters are not checked here; they are validated on deployment.
func Parse(r io.Reader) (*engine.MissionPlan, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	next := func() (string, bool) {
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				return line, true
			}
		}
		return "", false
	}

	header, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return nil, ErrEmptyInput
	}

	fields := strings.Fields(header)
	if len(fields) != 2 {
		return nil, fmt.Errorf("line %d: %w: plateau requires top and right coordinates, got %q", lineNo, ErrMalformedLine, header)
	}
	topY, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("line %d: %w: invalid top coordinate %q", lineNo, ErrMalformedLine, fields[0])
	}
	rightX, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("line %d: %w: invalid right coordinate %q", lineNo, ErrMalformedLine, fields[1])
	}

	plan := &engine.MissionPlan{
		TopY:   topY,
		RightX: rightX,
		Rovers: []engine.Deployment{},
	}

	for {
		line, ok := next()
		if !ok {
			break
		}
		roverLine := lineNo

		d, err := parseRoverLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", roverLine, err)
		}

		commands, ok := next()
		if !ok {
			return nil, fmt.Errorf("line %d: %w", roverLine, ErrMissingCommands)
		}
		d.Commands = commands

		plan.Rovers = append(plan.Rovers, d)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return plan, nil
}

func parseRoverLine(line string) (engine.Deployment, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return engine.Deployment{}, fmt.Errorf("%w: rover requires x, y and heading, got %q", ErrMalformedLine, line)
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return engine.Deployment{}, fmt.Errorf("%w: invalid x coordinate %q", ErrMalformedLine, fields[0])
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return engine.Deployment{}, fmt.Errorf("%w: invalid y coordinate %q", ErrMalformedLine, fields[1])
	}
	return engine.Deployment{X: x, Y: y, Heading: fields[2]}, nil
}

// ParseFile parses a plan file. The plan is named after the file without its extension.
func ParseFile(path string) (*engine.MissionPlan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	plan, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return plan, nil
}

// Format renders a plan back into the plain-text format. A rover without
// commands has no text form since blank lines are ignored.
func Format(w io.Writer, plan *engine.MissionPlan) error {
	if _, err := fmt.Fprintf(w, "%d %d\n", plan.TopY, plan.RightX); err != nil {
		return err
	}
	for i, d := range plan.Rovers {
		if strings.TrimSpace(d.Commands) == "" {
			return fmt.Errorf("rover %d: %w", i+1, ErrMissingCommands)
		}
		if _, err := fmt.Fprintf(w, "%d %d %s\n%s\n", d.X, d.Y, strings.ToUpper(d.Heading), strings.ToUpper(d.Commands)); err != nil {
			return err
		}
	}
	return nil
}

// WriteReports writes one "<x> <y> <heading>" line per report
func WriteReports(w io.Writer, reports []engine.RoverReport) error {
	for _, r := range reports {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}
