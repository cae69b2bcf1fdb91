// Package service provides the business logic layer for the Mars rover mission server.
//
// The service package implements:
//   - Multi-session mission management
//   - Mission plan loading and saving
//   - Interactive rover deployment and execution
//
// Core Interfaces:
//
// MissionService is the main service interface providing high-level mission operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// PlanManager manages mission plan loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the mission engine. Each session owns its own engine.Mission. Mutating
// operations hold a service-wide lock so a mission is never driven by two
// requests at once.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	planMgr, _ := config.NewManager("plans")
//	missionService := service.NewMissionService(sessionMgr, planMgr,
//		service.WithLogger(logger.New("service")))
//
//	info, err := missionService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Land another rover and run everything that has not moved yet
//	_, err = missionService.Deploy(ctx, info.ID, engine.Deployment{X: 0, Y: 0, Heading: "N", Commands: "MMR"})
//	result, err := missionService.Execute(ctx, info.ID)
//
// Skipped Deployments:
//
// A rover whose landing cell is off the plateau or occupied never joins the
// mission. It is logged as "Could not deploy rover at ..." and reported in
// the mission state's skipped list.
package service
