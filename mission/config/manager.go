package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/parser"
	"github.com/wricardo/mcp-training/marsrover/mission/service"
)

var (
	ErrPlanNotFound = service.ErrPlanNotFound
	ErrInvalidPlan  = service.ErrInvalidPlan
)

// Plan file extensions in lookup order
const (
	extJSON = ".json"
	extText = ".txt"
)

// Manager handles mission plan loading and caching
type Manager struct {
	planDir     string
	defaultPlan *engine.MissionPlan
	plans       map[string]*engine.MissionPlan
	mu          sync.RWMutex
}

// NewManager creates a new plan manager
func NewManager(planDir string) (*Manager, error) {
	// Ensure plan directory exists
	if _, err := os.Stat(planDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("plan directory does not exist: %s", planDir)
	}

	m := &Manager{
		planDir: planDir,
		plans:   make(map[string]*engine.MissionPlan),
	}

	if err := m.loadDefaultPlan(); err != nil {
		return nil, fmt.Errorf("failed to load default plan: %w", err)
	}

	return m, nil
}

// LoadPlan loads a plan by id. The id is the file name with or without its
// extension; without one, .json is tried before .txt. Explicit and bare
// names are cached separately so "x.txt" never answers for "x.json".
func (m *Manager) LoadPlan(name string) (*engine.MissionPlan, error) {
	id, ext, err := splitPlanName(name)
	if err != nil {
		return nil, err
	}
	key := id + ext

	m.mu.RLock()
	if plan, exists := m.plans[key]; exists {
		m.mu.RUnlock()
		return plan, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if plan, exists := m.plans[key]; exists {
		return plan, nil
	}

	plan, err := m.readPlan(id, ext)
	if err != nil {
		return nil, err
	}

	if err := engine.ValidatePlan(plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	m.plans[key] = plan
	return plan, nil
}

func (m *Manager) readPlan(id, ext string) (*engine.MissionPlan, error) {
	candidates := []string{extJSON, extText}
	if ext != "" {
		candidates = []string{ext}
	}

	for _, candidate := range candidates {
		path := filepath.Join(m.planDir, id+candidate)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read plan file: %w", err)
		}

		if candidate == extText {
			plan, err := parser.Parse(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
			}
			plan.Name = id
			return plan, nil
		}

		var plan engine.MissionPlan
		if err := json.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("%w: failed to parse plan: %v", ErrInvalidPlan, err)
		}
		if plan.Name == "" {
			plan.Name = id
		}
		return &plan, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
}

// ListPlans returns information about all available plans, sorted by id
func (m *Manager) ListPlans() ([]*service.PlanInfo, error) {
	entries, err := os.ReadDir(m.planDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan directory: %w", err)
	}

	var plans []*service.PlanInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != extJSON && ext != extText) {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ext)
		// A .json plan shadows a .txt plan of the same id
		if seen[id] {
			continue
		}

		plan, err := m.LoadPlan(id)
		if err != nil {
			// Skip invalid plans
			continue
		}
		seen[id] = true

		plans = append(plans, &service.PlanInfo{
			Filename:    entry.Name(),
			PlanID:      id,
			Name:        plan.Name,
			Description: plan.Description,
			Width:       plan.RightX + 1,
			Height:      plan.TopY + 1,
			Rovers:      len(plan.Rovers),
		})
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].PlanID < plans[j].PlanID })
	return plans, nil
}

// GetDefault returns the default plan
func (m *Manager) GetDefault() *engine.MissionPlan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPlan
}

// SetDefault sets the default plan by id
func (m *Manager) SetDefault(name string) error {
	plan, err := m.LoadPlan(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPlan = plan
	return nil
}

// RefreshCache drops every cached plan and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.plans = make(map[string]*engine.MissionPlan)
	m.mu.Unlock()

	return m.loadDefaultPlan()
}

// loadDefaultPlan prefers "classic", then the first valid plan on disk, then
// the built-in classic mission.
func (m *Manager) loadDefaultPlan() error {
	plan, err := m.LoadPlan("classic")
	if err != nil {
		plans, listErr := m.ListPlans()
		if listErr != nil || len(plans) == 0 {
			plan = ClassicPlan()
		} else if plan, err = m.LoadPlan(plans[0].PlanID); err != nil {
			plan = ClassicPlan()
		}
	}

	m.mu.Lock()
	m.defaultPlan = plan
	m.mu.Unlock()
	return nil
}

// SavePlan writes a plan to disk. A ".txt" name stores the plain-text
// format; anything else is stored as indented JSON.
func (m *Manager) SavePlan(name string, plan *engine.MissionPlan) error {
	if err := engine.ValidatePlan(plan); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	id, ext, err := splitPlanName(name)
	if err != nil {
		return err
	}
	if ext == "" {
		ext = extJSON
	}

	var data []byte
	if ext == extText {
		var buf bytes.Buffer
		if err := parser.Format(&buf, plan); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPlan, err)
		}
		data = buf.Bytes()
	} else {
		data, err = json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(m.planDir, id+ext), data, 0644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}

	// The text format carries no name, so the cached copy matches what a reload returns
	cached := *plan
	if ext == extText {
		cached.Name = id
		cached.Description = ""
	}

	m.mu.Lock()
	m.plans[id+ext] = &cached
	if ext == extJSON {
		// bare names resolve .json first
		m.plans[id] = &cached
	} else {
		delete(m.plans, id)
	}
	m.mu.Unlock()

	return nil
}

// splitPlanName returns the plan id and its explicit extension, if any.
// Names that could escape the plan directory are rejected.
func splitPlanName(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", "", fmt.Errorf("%w: invalid plan name %q", ErrInvalidPlan, name)
	}

	ext := filepath.Ext(name)
	if ext != extJSON && ext != extText {
		return name, "", nil
	}
	return strings.TrimSuffix(name, ext), ext, nil
}

// ClassicPlan returns the built-in two-rover mission used when no plan
// directory content is available.
func ClassicPlan() *engine.MissionPlan {
	return &engine.MissionPlan{
		Name:        "classic",
		Description: "Two rovers on a plateau with top-right corner 5 5",
		TopY:        5,
		RightX:      5,
		Rovers: []engine.Deployment{
			{X: 1, Y: 2, Heading: "N", Commands: "LMLMLMLMM"},
			{X: 3, Y: 3, Heading: "E", Commands: "MMRMMRMRRM"},
		},
	}
}
