// Package mcp provides a Model Context Protocol front end for the Mars rover
// mission server.
//
// The client is a thin proxy: every tool call becomes a REST request against
// the api package, and the JSON reply is rendered as text for the agent.
//
// MCP Tools:
//   - create_session: Create a mission from a stored or inline plan
//   - list_sessions: List all active sessions
//   - mission_state: Plateau, rovers, skipped deployments and a grid view
//   - deploy_rover: Land a rover with its command string
//   - execute_mission: Run pending rovers and report blocked moves
//   - list_plans: List stored mission plans
//   - simulate: Run plain-text mission input without a session
//   - mission_instructions: Rules and input format
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
