// Package validate checks mission plan files in a plan directory. For each
// .json or .txt plan it checks:
//   - the file parses (JSON structure or plain-text mission format)
//   - plateau bounds, headings and command strings are well formed
//   - every rover can land (warns on out-of-bounds or occupied landing cells)
//   - how many forward moves end up blocked when the plan runs
package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/parser"
)

// Result captures the outcome of validating a single file. Problems make a
// plan invalid; Warnings and Info are reported either way.
type Result struct {
	File     string
	Valid    bool
	Problems []string
	Warnings []string
	Info     []string
}

// File loads and validates a single plan file
func File(path string) Result {
	result := Result{
		File:  filepath.Base(path),
		Valid: true,
	}

	plan, err := load(path)
	if err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err.Error())
		return result
	}

	if err := engine.ValidatePlan(plan); err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err.Error())
		return result
	}
	if len(plan.Rovers) > engine.MaxPlanRovers {
		result.Valid = false
		result.Problems = append(result.Problems, fmt.Sprintf("%d rovers exceeds the limit of %d", len(plan.Rovers), engine.MaxPlanRovers))
		return result
	}

	sim, err := engine.Simulate(plan)
	if err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err.Error())
		return result
	}

	for _, s := range sim.Skipped {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Rover %d at %d %d %s cannot land: %s",
			s.ID, s.Deployment.X, s.Deployment.Y, s.Deployment.Heading, s.Reason))
	}

	blocked := 0
	for _, report := range sim.Reports {
		for _, step := range report.Steps {
			if step.Command == engine.MoveForward && !step.Moved {
				blocked++
			}
		}
	}

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", plan.Name),
		fmt.Sprintf("✓ Plateau: %dx%d", plan.RightX+1, plan.TopY+1),
		fmt.Sprintf("✓ Rovers: %d deployed, %d skipped", len(sim.Reports), len(sim.Skipped)),
		fmt.Sprintf("✓ Blocked moves: %d", blocked),
		fmt.Sprintf("✓ Final positions: %s", strings.Join(sim.Positions, ", ")),
	)
	return result
}

func load(path string) (*engine.MissionPlan, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		plan, err := parser.ParseFile(path)
		if err != nil {
			return nil, err
		}
		plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return plan, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var plan engine.MissionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if plan.Name == "" {
		plan.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &plan, nil
}

// Dir validates every .json and .txt file in dir, sorted by name
func Dir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".json" && ext != ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	results := make([]Result, 0, len(names))
	for _, name := range names {
		results = append(results, File(filepath.Join(dir, name)))
	}
	return results, nil
}

// Report prints a concise report and returns true when every plan is valid
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, problem := range result.Problems {
				fmt.Fprintln(w, "  ❌ "+problem)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠ "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No plans found")
	case allValid:
		fmt.Fprintln(w, "✅ All plans are valid!")
	default:
		fmt.Fprintln(w, "❌ Some plans have errors")
	}
	return allValid
}
