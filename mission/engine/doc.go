// Package engine provides the core mission logic for the Mars rover simulator.
//
// The engine package implements:
//   - Plateau bounds checks
//   - Rover headings, turns and forward moves with collision detection
//   - Sequential deployment and execution of a rover fleet
//   - Mission plan validation
//
// Core Types:
//
// Plateau is the immutable grid. Rover holds a position, heading and pending
// commands. Mission owns the ordered rover collection and drives deployment
// and execution; occupancy checks always read the live positions of every
// deployed rover.
//
// Usage:
//
//	plateau, err := engine.NewPlateau(5, 5)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mission := engine.NewMission(plateau)
//	if _, err := mission.Deploy(engine.Deployment{X: 1, Y: 2, Heading: "N", Commands: "LMLMLMLMM"}); err != nil {
//		log.Println(err)
//	}
//
//	mission.Run()
//	fmt.Println(mission.Positions()) // [1 3 N]
//
// Rules:
//
// Rovers run one at a time in deployment order, each to completion. A move
// that would leave the plateau or land on another rover is ignored and the
// remaining commands still run. A rover that cannot be placed is skipped.
package engine
