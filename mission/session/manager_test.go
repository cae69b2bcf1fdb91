package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/service"
)

func createTestPlan() *engine.MissionPlan {
	return &engine.MissionPlan{
		Name:   "Test Plan",
		TopY:   5,
		RightX: 5,
		Rovers: []engine.Deployment{
			{X: 1, Y: 2, Heading: "N", Commands: "LMLMLMLMM"},
			{X: 3, Y: 3, Heading: "E", Commands: "MMRMMRMRRM"},
		},
	}
}

func TestCreate(t *testing.T) {
	m := NewManager()

	sess, err := m.Create("", createTestPlan())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sess.ID) != 8 {
		t.Errorf("Expected 8-character generated ID, got %q", sess.ID)
	}
	if len(sess.Mission.Rovers()) != 2 {
		t.Errorf("Expected 2 deployed rovers, got %d", len(sess.Mission.Rovers()))
	}
	if sess.CreatedAt.IsZero() || !sess.CreatedAt.Equal(sess.LastAccessedAt) {
		t.Errorf("Unexpected timestamps %v %v", sess.CreatedAt, sess.LastAccessedAt)
	}
}

func TestCreate_Errors(t *testing.T) {
	m := NewManager()

	if _, err := m.Create("Alpha", createTestPlan()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name   string
		id     string
		plan   *engine.MissionPlan
		target error
	}{
		{"duplicate", "Alpha", createTestPlan(), ErrSessionAlreadyExists},
		{"duplicate other case", "alpha", createTestPlan(), ErrSessionAlreadyExists},
		{"bad id", "a/b", createTestPlan(), ErrInvalidSessionID},
		{"bad bounds", "", &engine.MissionPlan{Name: "bad", TopY: -1}, engine.ErrInvalidBounds},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := m.Create(test.id, test.plan)
			if !errors.Is(err, test.target) {
				t.Errorf("Expected %v, got %v", test.target, err)
			}
		})
	}

	if m.Count() != 1 {
		t.Errorf("Failed creates must not register sessions, count %d", m.Count())
	}
}

func TestCreate_AppliesMissionOptions(t *testing.T) {
	plan := createTestPlan()
	plan.Rovers = append(plan.Rovers, engine.Deployment{X: 0, Y: 0, Heading: "Q", Commands: "M"})

	if _, err := NewManager().Create("", plan); !errors.Is(err, engine.ErrInvalidHeading) {
		t.Errorf("Expected abort on invalid heading, got %v", err)
	}

	sess, err := NewManager(engine.WithInputPolicy(engine.SkipInvalidInput)).Create("", plan)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sess.Mission.Skipped()) != 1 {
		t.Errorf("Expected 1 skipped rover, got %d", len(sess.Mission.Skipped()))
	}
}

func TestGet_CaseInsensitive(t *testing.T) {
	m := NewManager()
	created, err := m.Create("MixedCase", createTestPlan())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, id := range []string{"MixedCase", "mixedcase", "MIXEDCASE"} {
		sess, err := m.Get(id)
		if err != nil {
			t.Errorf("Get(%q): %v", id, err)
			continue
		}
		if sess.ID != created.ID || sess.Mission != created.Mission {
			t.Errorf("Get(%q) returned a different session", id)
		}
	}

	if _, err := m.Get("other"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	m := NewManager()
	for _, id := range []string{"one", "two", "three"} {
		if _, err := m.Create(id, createTestPlan()); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	sessions := m.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].CreatedAt.Before(sessions[i-1].CreatedAt) {
			t.Error("Sessions should be listed oldest first")
		}
	}

	if err := m.Delete("TWO"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete("two"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if m.Count() != 2 {
		t.Errorf("Expected 2 sessions, got %d", m.Count())
	}
}

// fakeClock is a settable time source for expiry tests
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newManagerWithClock() (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager()
	m.now = clock.now
	return m, clock
}

func TestUpdateLastAccessed(t *testing.T) {
	m, clock := newManagerWithClock()
	created, _ := m.Create("abc", createTestPlan())

	clock.advance(time.Minute)
	if err := m.UpdateLastAccessed("ABC"); err != nil {
		t.Fatalf("UpdateLastAccessed: %v", err)
	}

	sess, err := m.Get("abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !sess.LastAccessedAt.Equal(clock.t) {
		t.Errorf("Expected LastAccessedAt %v, got %v", clock.t, sess.LastAccessedAt)
	}
	if !sess.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt should not move")
	}

	if err := m.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestReturnedSessionsAreCopies(t *testing.T) {
	m, clock := newManagerWithClock()
	created, _ := m.Create("abc", createTestPlan())
	got, _ := m.Get("abc")
	listed := m.List()[0]
	before := created.LastAccessedAt

	clock.advance(time.Hour)
	if err := m.UpdateLastAccessed("abc"); err != nil {
		t.Fatalf("UpdateLastAccessed: %v", err)
	}

	for name, sess := range map[string]*service.Session{"Create": created, "Get": got, "List": listed} {
		if !sess.LastAccessedAt.Equal(before) {
			t.Errorf("%s result changed after touch: %v", name, sess.LastAccessedAt)
		}
	}
	if got.Mission != created.Mission {
		t.Error("Copies should share the mission")
	}
}

func TestConcurrentTouchAndRead(t *testing.T) {
	m := NewManager()
	if _, err := m.Create("busy", createTestPlan()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.UpdateLastAccessed("busy")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				for _, sess := range m.List() {
					_ = sess.LastAccessedAt.String()
				}
				if sess, err := m.Get("busy"); err == nil {
					_ = sess.LastAccessedAt.String()
				}
			}
		}()
	}
	wg.Wait()
}

func TestCleanupExpiredSessions(t *testing.T) {
	m, clock := newManagerWithClock()
	if _, err := m.Create("old", createTestPlan()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	clock.advance(90 * time.Minute)
	if _, err := m.Create("fresh", createTestPlan()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if removed := m.CleanupExpiredSessions(2 * time.Hour); removed != 0 {
		t.Errorf("Expected nothing removed yet, got %d", removed)
	}

	clock.advance(time.Hour)
	if removed := m.CleanupExpiredSessions(2 * time.Hour); removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := m.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected old session to be gone, got %v", err)
	}
	if _, err := m.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to remain, got %v", err)
	}
}

func TestConcurrentCreate(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := m.Create("", createTestPlan())
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			ids <- sess.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		if seen[strings.ToLower(id)] {
			t.Errorf("Duplicate session ID %s", id)
		}
		seen[strings.ToLower(id)] = true
	}
	if m.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", m.Count())
	}
}
