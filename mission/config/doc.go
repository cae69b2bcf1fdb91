// Package config provides the mission plan catalogue for the Mars rover server.
//
// The config package handles:
//   - Loading mission plans from JSON and plain-text files
//   - Plan validation
//   - Default plan management
//   - Plan discovery and listing
//
// Plan Formats:
//
// A ".json" file holds an engine.MissionPlan:
//
//	{"name": "Collision", "top_y": 5, "right_x": 5,
//	 "rovers": [{"x": 1, "y": 2, "heading": "N", "commands": "LMLMLMLMM"}]}
//
// A ".txt" file uses the plain-text mission format read by the parser
// package. The plan is named after the file.
//
// Usage:
//
//	manager, err := config.NewManager("plans")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific plan
//	plan, err := manager.LoadPlan("collision")
//
//	// Get default plan ("classic" when present)
//	defaultPlan := manager.GetDefault()
//
//	// List available plans
//	plans, err := manager.ListPlans()
package config
