package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/marsrover/mission/engine"
)

const classicText = "5 5\n1 2 N\nLMLMLMLMM\n3 3 E\nMMRMMRMRRM\n"

func createValidPlan() *engine.MissionPlan {
	return &engine.MissionPlan{
		Name:        "Test Plan",
		Description: "Test mission",
		TopY:        4,
		RightX:      4,
		Rovers: []engine.Deployment{
			{X: 0, Y: 0, Heading: "N", Commands: "MMR"},
			{X: 2, Y: 2, Heading: "W", Commands: "LM"},
		},
	}
}

func writePlan(t *testing.T, dir, name string, plan *engine.MissionPlan) {
	t.Helper()
	data, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("Failed to marshal plan: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("Failed to write plan: %v", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope"))
		if err == nil {
			t.Error("Expected error for missing directory")
		}
	})

	t.Run("empty directory falls back to built-in plan", func(t *testing.T) {
		m, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}
		def := m.GetDefault()
		if def == nil || def.Name != "classic" || len(def.Rovers) != 2 {
			t.Errorf("Expected built-in classic plan, got %+v", def)
		}
	})

	t.Run("classic text plan is the default", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "classic.txt", classicText)
		writePlan(t, dir, "alpha.json", createValidPlan())

		m, err := NewManager(dir)
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}
		if m.GetDefault().Name != "classic" {
			t.Errorf("Expected classic default, got %q", m.GetDefault().Name)
		}
	})

	t.Run("first plan when no classic", func(t *testing.T) {
		dir := t.TempDir()
		writePlan(t, dir, "beta.json", createValidPlan())

		m, err := NewManager(dir)
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}
		if m.GetDefault().Name != "Test Plan" {
			t.Errorf("Expected beta plan as default, got %q", m.GetDefault().Name)
		}
	})
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "test.json", createValidPlan())
	writeFile(t, dir, "classic.txt", classicText)
	writeFile(t, dir, "broken.json", "{not json")
	writeFile(t, dir, "broken.txt", "5 5\n1 2 N\n")
	bad := createValidPlan()
	bad.Rovers[0].Heading = "Q"
	writePlan(t, dir, "badheading.json", bad)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	tests := []struct {
		name     string
		planName string
		wantName string
		target   error
	}{
		{"json by id", "test", "Test Plan", nil},
		{"json with extension", "test.json", "Test Plan", nil},
		{"text by id", "classic", "classic", nil},
		{"text with extension", "classic.txt", "classic", nil},
		{"missing", "ghost", "", ErrPlanNotFound},
		{"malformed json", "broken", "", ErrInvalidPlan},
		{"malformed text", "broken.txt", "", ErrInvalidPlan},
		{"invalid heading", "badheading", "", ErrInvalidPlan},
		{"path traversal", "../etc/passwd", "", ErrInvalidPlan},
		{"empty", "", "", ErrInvalidPlan},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			plan, err := m.LoadPlan(test.planName)
			if test.target != nil {
				if !errors.Is(err, test.target) {
					t.Errorf("Expected %v, got %v", test.target, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadPlan: %v", err)
			}
			if plan.Name != test.wantName {
				t.Errorf("Expected plan %q, got %q", test.wantName, plan.Name)
			}
		})
	}
}

func TestLoadPlan_Caches(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "test.json", createValidPlan())

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	first, err := m.LoadPlan("test")
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "test.json")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	second, err := m.LoadPlan("test")
	if err != nil {
		t.Fatalf("Expected cached plan, got %v", err)
	}
	if first != second {
		t.Error("Expected the same cached plan")
	}

	if err := m.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}
	if _, err := m.LoadPlan("test"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound after refresh, got %v", err)
	}
}

func TestLoadPlan_ExplicitExtensionCachedSeparately(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "twin.txt", classicText)
	jsonPlan := createValidPlan()
	jsonPlan.Name = "Twin JSON"
	writePlan(t, dir, "twin.json", jsonPlan)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	tests := []struct {
		name     string
		wantName string
		wantTopY int
	}{
		{"twin.txt", "twin", 5},
		{"twin.json", "Twin JSON", 4},
		{"twin", "Twin JSON", 4},
		{"twin.txt", "twin", 5},
	}

	for _, test := range tests {
		plan, err := m.LoadPlan(test.name)
		if err != nil {
			t.Fatalf("LoadPlan(%q): %v", test.name, err)
		}
		if plan.Name != test.wantName || plan.TopY != test.wantTopY {
			t.Errorf("LoadPlan(%q): expected %s with top %d, got %s with top %d",
				test.name, test.wantName, test.wantTopY, plan.Name, plan.TopY)
		}
	}
}

func TestSavePlan_TextDoesNotShadowJSON(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "route.json", createValidPlan())

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.LoadPlan("route"); err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}

	alt := createValidPlan()
	alt.TopY = 7
	if err := m.SavePlan("route.txt", alt); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	bare, err := m.LoadPlan("route")
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if bare.Name != "Test Plan" || bare.TopY != 4 {
		t.Errorf("Bare name should still resolve to route.json, got %+v", bare)
	}
	text, err := m.LoadPlan("route.txt")
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if text.TopY != 7 || text.Name != "route" {
		t.Errorf("Expected saved text plan, got %+v", text)
	}
}

func TestListPlans(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "zeta.json", createValidPlan())
	writeFile(t, dir, "classic.txt", classicText)
	writeFile(t, dir, "broken.json", "{")
	writeFile(t, dir, "notes.md", "# not a plan")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	plans, err := m.ListPlans()
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("Expected 2 plans, got %d", len(plans))
	}

	if plans[0].PlanID != "classic" || plans[0].Filename != "classic.txt" {
		t.Errorf("Unexpected first plan %+v", plans[0])
	}
	if plans[0].Width != 6 || plans[0].Height != 6 || plans[0].Rovers != 2 {
		t.Errorf("Unexpected classic dimensions %+v", plans[0])
	}
	if plans[1].PlanID != "zeta" || plans[1].Name != "Test Plan" || plans[1].Description != "Test mission" {
		t.Errorf("Unexpected second plan %+v", plans[1])
	}
}

func TestListPlans_JSONShadowsText(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "dup.json", createValidPlan())
	writeFile(t, dir, "dup.txt", classicText)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	plans, err := m.ListPlans()
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 1 || plans[0].Filename != "dup.json" {
		t.Errorf("Expected only dup.json, got %+v", plans)
	}
}

func TestSetDefault(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "test.json", createValidPlan())

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.SetDefault("ghost"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got %v", err)
	}
	if err := m.SetDefault("test"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if m.GetDefault().Name != "Test Plan" {
		t.Errorf("Expected new default, got %q", m.GetDefault().Name)
	}
}

func TestSavePlan(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	t.Run("json", func(t *testing.T) {
		if err := m.SavePlan("saved", createValidPlan()); err != nil {
			t.Fatalf("SavePlan: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected saved.json on disk: %v", err)
		}

		fresh, err := NewManager(dir)
		if err != nil {
			t.Fatalf("NewManager: %v", err)
		}
		plan, err := fresh.LoadPlan("saved")
		if err != nil {
			t.Fatalf("LoadPlan: %v", err)
		}
		if plan.Name != "Test Plan" || len(plan.Rovers) != 2 {
			t.Errorf("Unexpected reloaded plan %+v", plan)
		}
	})

	t.Run("text", func(t *testing.T) {
		if err := m.SavePlan("landing.txt", createValidPlan()); err != nil {
			t.Fatalf("SavePlan: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "landing.txt"))
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(data) != "4 4\n0 0 N\nMMR\n2 2 W\nLM\n" {
			t.Errorf("Unexpected text plan %q", string(data))
		}

		cached, err := m.LoadPlan("landing")
		if err != nil {
			t.Fatalf("LoadPlan: %v", err)
		}
		if cached.Name != "landing" {
			t.Errorf("Expected text plan named after file, got %q", cached.Name)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		bad := createValidPlan()
		bad.Rovers[1].Commands = "MXM"
		if err := m.SavePlan("bad", bad); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Expected ErrInvalidPlan, got %v", err)
		}
		if err := m.SavePlan("../escape", createValidPlan()); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Expected ErrInvalidPlan for traversal, got %v", err)
		}
	})
}

func TestConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writePlan(t, dir, "test.json", createValidPlan())

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.LoadPlan("test"); err != nil {
				t.Errorf("LoadPlan: %v", err)
			}
		}()
	}
	wg.Wait()
}
