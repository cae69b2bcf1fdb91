package validate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePlanFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write plan: %v", err)
	}
	return path
}

func contains(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestFile_ValidTextPlan(t *testing.T) {
	path := writePlanFile(t, t.TempDir(), "classic.txt", "5 5\n1 2 N\nLMLMLMLMM\n3 3 E\nMMRMMRMRRM\n")

	result := File(path)
	if !result.Valid {
		t.Fatalf("Expected valid plan, got problems: %v", result.Problems)
	}
	if result.File != "classic.txt" {
		t.Errorf("Expected file name classic.txt, got %s", result.File)
	}

	for _, want := range []string{"Name: classic", "Plateau: 6x6", "2 deployed, 0 skipped", "Final positions: 1 3 N, 5 1 E"} {
		if !contains(result.Info, want) {
			t.Errorf("Expected %q in info, got %v", want, result.Info)
		}
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
}

func TestFile_BlockedMoves(t *testing.T) {
	path := writePlanFile(t, t.TempDir(), "traffic.json", `{
		"name": "Traffic", "top_y": 4, "right_x": 2,
		"rovers": [
			{"x": 1, "y": 0, "heading": "N", "commands": "MMMMM"},
			{"x": 1, "y": 1, "heading": "N", "commands": "MMMMM"},
			{"x": 0, "y": 0, "heading": "E", "commands": "MMM"}
		]
	}`)

	result := File(path)
	if !result.Valid {
		t.Fatalf("Expected valid plan, got problems: %v", result.Problems)
	}
	if !contains(result.Info, "Blocked moves: 10") {
		t.Errorf("Expected 10 blocked moves, got %v", result.Info)
	}
	if !contains(result.Info, "1 0 N, 1 4 N, 0 0 E") {
		t.Errorf("Unexpected final positions %v", result.Info)
	}
}

func TestFile_PlacementWarning(t *testing.T) {
	path := writePlanFile(t, t.TempDir(), "collision.json", `{
		"name": "Collision", "top_y": 5, "right_x": 5,
		"rovers": [
			{"x": 1, "y": 2, "heading": "N", "commands": "M"},
			{"x": 1, "y": 2, "heading": "S", "commands": "M"},
			{"x": 9, "y": 9, "heading": "S", "commands": "M"}
		]
	}`)

	result := File(path)
	if !result.Valid {
		t.Fatalf("Placement failures should not invalidate a plan: %v", result.Problems)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("Expected 2 warnings, got %v", result.Warnings)
	}
	if !contains(result.Warnings, "Rover 1 at 1 2 S cannot land") || !contains(result.Warnings, "Rover 2 at 9 9 S") {
		t.Errorf("Unexpected warnings %v", result.Warnings)
	}
}

func TestFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"bad json", "broken.json", "{", "invalid JSON"},
		{"bad heading", "heading.json", `{"name":"h","top_y":1,"right_x":1,"rovers":[{"x":0,"y":0,"heading":"Q","commands":"M"}]}`, "heading"},
		{"bad command", "command.txt", "5 5\n1 2 N\nLMX\n", "X"},
		{"negative bounds", "bounds.txt", "-1 5\n", ""},
		{"missing commands", "short.txt", "5 5\n1 2 N\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePlanFile(t, t.TempDir(), tt.file, tt.content)

			result := File(path)
			if result.Valid {
				t.Fatal("Expected invalid plan")
			}
			if len(result.Problems) == 0 {
				t.Fatal("Expected at least one problem")
			}
			if tt.want != "" && !contains(result.Problems, tt.want) {
				t.Errorf("Expected %q in problems, got %v", tt.want, result.Problems)
			}
		})
	}
}

func TestFile_Missing(t *testing.T) {
	result := File(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid {
		t.Error("Expected missing file to be invalid")
	}
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	writePlanFile(t, dir, "b.txt", "5 5\n1 2 N\nM\n")
	writePlanFile(t, dir, "a.json", `{"name":"a","top_y":1,"right_x":1,"rovers":[]}`)
	writePlanFile(t, dir, "notes.md", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	results, err := Dir(dir)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if len(results) != 2 || results[0].File != "a.json" || results[1].File != "b.txt" {
		t.Errorf("Unexpected results %+v", results)
	}

	if _, err := Dir(filepath.Join(dir, "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestReport(t *testing.T) {
	results := []Result{
		{File: "good.json", Valid: true, Info: []string{"✓ Name: good"}, Warnings: []string{"Rover 1 cannot land"}},
		{File: "bad.json", Valid: false, Problems: []string{"invalid JSON"}},
	}

	var buf bytes.Buffer
	if Report(&buf, results) {
		t.Error("Expected report to fail with an invalid plan")
	}

	out := buf.String()
	for _, want := range []string{"good.json", "✅ VALID", "⚠ Rover 1 cannot land", "❌ INVALID", "❌ invalid JSON", "Some plans have errors"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in report, got:\n%s", want, out)
		}
	}

	buf.Reset()
	if !Report(&buf, results[:1]) {
		t.Error("Expected report to pass")
	}
	if !strings.Contains(buf.String(), "All plans are valid") {
		t.Errorf("Unexpected report:\n%s", buf.String())
	}
}
