package engine

import "fmt"

// MaxPlanRovers caps the rover records a single plan may carry
const MaxPlanRovers = 1000

// ValidatePlan checks a mission plan for correctness. Placement collisions are
// not plan errors; they are resolved when the plan is deployed.
func ValidatePlan(plan *MissionPlan) error {
	if plan == nil {
		return fmt.Errorf("plan validation: plan is required")
	}
	if plan.Name == "" {
		return fmt.Errorf("plan validation: name is required")
	}
	if plan.TopY < 0 || plan.RightX < 0 {
		return fmt.Errorf("plan validation: %w", newError(InvalidBounds, "top_y and right_x must not be negative, got %d %d", plan.TopY, plan.RightX))
	}
	if len(plan.Rovers) > MaxPlanRovers {
		return fmt.Errorf("plan validation: at most %d rovers allowed, got %d", MaxPlanRovers, len(plan.Rovers))
	}

	for i, d := range plan.Rovers {
		if _, err := ParseHeading(d.Heading); err != nil {
			return fmt.Errorf("plan validation: rover %d: %w", i+1, err)
		}
		if _, err := ParseCommands(d.Commands); err != nil {
			return fmt.Errorf("plan validation: rover %d: %w", i+1, err)
		}
	}

	return nil
}
