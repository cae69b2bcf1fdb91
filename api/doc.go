// Package api provides HTTP REST API handlers for the Mars rover mission server.
//
// The api package implements:
//   - Session management endpoints
//   - Rover deployment and mission execution
//   - One-shot simulation of a whole plan
//   - Mission plan listing, loading and saving
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"plan_id": "..."} or {"plan": {...}})
//   - GET /api/sessions - List sessions (sort=created|accessed, order=asc|desc, limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Mission Operations:
//   - GET /api/sessions/{id}/state - Current plateau and rover positions
//   - POST /api/sessions/{id}/rovers - Deploy a rover ({"x":1,"y":2,"heading":"N","commands":"LMLMLMLMM"})
//   - POST /api/sessions/{id}/execute - Run every rover not yet executed
//   - POST /api/simulate - Run a plan without a session (JSON, or text/plain mission input)
//
// Plans:
//   - GET /api/plans - List available plans
//   - GET /api/plans/{name} - Get a plan
//   - POST /api/plans - Save a plan
//
// Other:
//   - GET /ws?session={id} - WebSocket mission updates, starting with a state snapshot
//   - GET /health - Health check
//   - GET /metrics - Prometheus metrics, when configured
//
// A deployment whose landing cell is outside the plateau or already occupied
// is not an error: the rover is skipped and the response is 422 with the
// skip record. Malformed headings and commands are 400.
//
// Usage:
//
//	server := api.NewServer(missionService, hub, api.WithLogger(logger.New("api")))
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "error message",
//	  "code": 400
//	}
package api
