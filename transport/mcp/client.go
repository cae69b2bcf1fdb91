package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/service"
)

// maxGridRender is the largest plateau side drawn as a character grid
const maxGridRender = 40

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// apiError is a non-2xx REST response
type apiError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.Status)
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Mars Rover Mission Control",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Mars Rover Mission Control - MCP Interface

This is a thin client that proxies all requests to the REST API server.

MISSION:
Rovers land on a rectangular plateau and follow strings of L (turn left),
R (turn right) and M (move one cell forward). Rovers run one at a time in
deployment order. A move off the plateau or into another rover is refused
and the rover keeps going with its next command.

AVAILABLE TOOLS:
- create_session: Start a mission from a stored plan or an inline plan
- list_sessions: List active missions
- mission_state: Plateau, rovers and positions of a mission
- deploy_rover: Land a rover with its command string
- execute_mission: Run every rover that has not moved yet
- list_plans: List stored mission plans
- simulate: Run plain-text mission input without a session
- mission_instructions: Full rules and input format`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sessionID := map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new mission session from a stored plan (default: classic) or an inline plan",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"plan_id": map[string]interface{}{
					"type":        "string",
					"description": "Stored plan to use (optional)",
				},
				"top_y": map[string]interface{}{
					"type":        "integer",
					"description": "Inline plan: top-right y coordinate of the plateau",
				},
				"right_x": map[string]interface{}{
					"type":        "integer",
					"description": "Inline plan: top-right x coordinate of the plateau",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active mission sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Mission operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mission_state",
		Description: "Get the plateau, rovers and final positions of a mission",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionID,
			},
			Required: []string{"session_id"},
		},
	}, c.handleMissionState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "deploy_rover",
		Description: "Land a rover on the plateau with its command string",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionID,
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Landing x coordinate",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Landing y coordinate",
				},
				"heading": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"N", "E", "S", "W"},
					"description": "Initial heading",
				},
				"commands": map[string]interface{}{
					"type":        "string",
					"description": "Commands made of L, R and M",
				},
			},
			Required: []string{"session_id", "x", "y", "heading", "commands"},
		},
	}, c.handleDeployRover)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "execute_mission",
		Description: "Execute every deployed rover that has not run yet, in deployment order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionID,
			},
			Required: []string{"session_id"},
		},
	}, c.handleExecuteMission)

	// Plans
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_plans",
		Description: "List stored mission plans",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPlans)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulate",
		Description: "Run plain-text mission input (plateau line, then rover/commands line pairs) and return final positions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"input": map[string]interface{}{
					"type":        "string",
					"description": "Mission input, e.g. \"5 5\\n1 2 N\\nLMLMLMLMM\\n\"",
				},
			},
			Required: []string{"input"},
		},
	}, c.handleSimulate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "mission_instructions",
		Description: "Get the mission rules and input format",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleMissionInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	if body == nil {
		return c.do(ctx, method, path, "", nil, result)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(data), result)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &errResp)
		return &apiError{Status: resp.StatusCode, Message: errResp.Error, Body: data}
	}

	if result != nil {
		return json.Unmarshal(data, result)
	}
	return nil
}

// intArg reads a numeric tool argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	planID, _ := args["plan_id"].(string)

	body := map[string]interface{}{}
	topY, hasTop := intArg(args, "top_y")
	rightX, hasRight := intArg(args, "right_x")
	switch {
	case hasTop && hasRight:
		body["plan"] = engine.MissionPlan{Name: "inline", TopY: topY, RightX: rightX, Rovers: []engine.Deployment{}}
	case planID != "":
		body["plan_id"] = planID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nPlan: %s\n", session.ID, session.PlanName)
	if session.MissionState != nil {
		result += "\n" + formatMissionState(session.MissionState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		rovers := 0
		if s.MissionState != nil {
			rovers = len(s.MissionState.Rovers)
		}
		result += fmt.Sprintf("- %s (Plan: %s, Rovers: %d, Created: %s)\n",
			s.ID, s.PlanName, rovers, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMissionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.MissionState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMissionState(&state)), nil
}

func (c *Client) handleDeployRover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, _ := intArg(args, "x")
	y, _ := intArg(args, "y")
	heading, _ := args["heading"].(string)
	commands, _ := args["commands"].(string)

	body := engine.Deployment{X: x, Y: y, Heading: heading, Commands: commands}

	var result service.DeployResult
	err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/rovers", sessionID), body, &result)
	if err != nil {
		// A skipped placement is reported with the result body
		var apiErr *apiError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity ||
			json.Unmarshal(apiErr.Body, &result) != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	return mcp.NewToolResultText(formatDeployResult(&result)), nil
}

func (c *Client) handleExecuteMission(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var result service.ExecuteResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/execute", sessionID), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatExecuteResult(&result)), nil
}

func (c *Client) handleListPlans(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var plans []service.PlanInfo
	if err := c.apiCall(ctx, "GET", "/api/plans", nil, &plans); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Plans:\n\n"
	for _, plan := range plans {
		result += fmt.Sprintf("• %s (%s)\n", plan.PlanID, plan.Name)
		if plan.Description != "" {
			result += fmt.Sprintf("  %s\n", plan.Description)
		}
		result += fmt.Sprintf("  Plateau: %dx%d, Rovers: %d\n\n", plan.Width, plan.Height, plan.Rovers)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, _ := arguments(request)["input"].(string)
	if strings.TrimSpace(input) == "" {
		return mcp.NewToolResultError("input is required"), nil
	}

	var result engine.Result
	if err := c.do(ctx, "POST", "/api/simulate", "text/plain", strings.NewReader(input), &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Final positions:\n")
	for _, p := range result.Positions {
		b.WriteString(p + "\n")
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(&b, "Skipped rover %d at %d %d %s: %s\n",
			s.ID, s.Deployment.X, s.Deployment.Y, s.Deployment.Heading, s.Reason)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleMissionInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Mars Rover Mission - Instructions

PLATEAU:
A rectangle of cells from (0,0) at the bottom-left to (right_x, top_y) at the
top-right. North is y+1, East is x+1.

ROVERS:
Each rover has a position and a heading (N, E, S, W). Commands:
• L: turn 90 degrees left, position unchanged
• R: turn 90 degrees right, position unchanged
• M: move one cell forward in the current heading

MOVEMENT RULES:
• A move that would leave the plateau is ignored
• A move into a cell held by another rover is ignored
• Ignored moves do not stop the rover; its next command still runs
• Rovers run one at a time, in deployment order, each to completion
• A rover never moves again once it has finished its commands

DEPLOYMENT:
• Landing outside the plateau or on another rover skips that rover
• A heading other than N/E/S/W or a command other than L/R/M is an input error

INPUT FORMAT (simulate tool):
  5 5          <- top-right corner of the plateau
  1 2 N        <- rover landing position and heading
  LMLMLMLMM    <- that rover's commands
  3 3 E
  MMRMMRMRRM

OUTPUT:
One "x y H" line per rover in deployment order:
  1 3 N
  5 1 E

WORKFLOW:
1. create_session (optionally with plan_id from list_plans)
2. deploy_rover for each rover
3. execute_mission
4. mission_state to read final positions`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatMissionState(state *engine.MissionState) string {
	if state == nil {
		return "Mission state unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plateau: %dx%d (top-right %d %d)\n", state.Width, state.Height, state.Width-1, state.Height-1)

	status := "in progress"
	if state.Complete {
		status = "complete"
	}
	fmt.Fprintf(&b, "Rovers: %d, Skipped: %d, Status: %s\n", len(state.Rovers), len(state.Skipped), status)

	if len(state.Rovers) > 0 {
		b.WriteString("\nRovers:\n")
		for _, r := range state.Rovers {
			mark := "pending"
			if r.Executed {
				mark = fmt.Sprintf("done (%d commands)", r.ExecutedCommands)
			}
			fmt.Fprintf(&b, "  #%d %d %d %s [%s]", r.ID, r.X, r.Y, r.Heading, mark)
			if r.PendingCommands != "" {
				fmt.Fprintf(&b, " commands=%s", r.PendingCommands)
			}
			b.WriteString("\n")
		}
	}

	for _, s := range state.Skipped {
		fmt.Fprintf(&b, "  skipped #%d at %d %d %s: %s\n",
			s.ID, s.Deployment.X, s.Deployment.Y, s.Deployment.Heading, s.Reason)
	}

	if grid := formatGrid(state); grid != "" {
		b.WriteString("\n" + grid)
	}
	return b.String()
}

// formatGrid draws the plateau with north at the top. Rovers are shown by
// heading arrow, empty cells as dots.
func formatGrid(state *engine.MissionState) string {
	if state.Width <= 0 || state.Height <= 0 || state.Width > maxGridRender || state.Height > maxGridRender {
		return ""
	}

	occupied := make(map[engine.Position]engine.Heading, len(state.Rovers))
	for _, r := range state.Rovers {
		occupied[engine.Position{X: r.X, Y: r.Y}] = r.Heading
	}

	var b strings.Builder
	for y := state.Height - 1; y >= 0; y-- {
		for x := 0; x < state.Width; x++ {
			h, ok := occupied[engine.Position{X: x, Y: y}]
			if !ok {
				b.WriteString(".")
				continue
			}
			b.WriteString(headingArrow(h))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func headingArrow(h engine.Heading) string {
	switch h {
	case engine.North:
		return "^"
	case engine.East:
		return ">"
	case engine.South:
		return "v"
	case engine.West:
		return "<"
	default:
		return "?"
	}
}

func formatDeployResult(result *service.DeployResult) string {
	var b strings.Builder
	if result.Deployed && result.Rover != nil {
		fmt.Fprintf(&b, "✓ Rover #%d deployed at %d %d %s\n",
			result.Rover.ID, result.Rover.X, result.Rover.Y, result.Rover.Heading)
	} else {
		b.WriteString("✗ Rover skipped\n")
		if result.Skipped != nil {
			fmt.Fprintf(&b, "Reason (%s): %s\n", result.Skipped.Kind, result.Skipped.Reason)
		}
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", result.Message)
	}
	if result.MissionState != nil {
		b.WriteString("\n" + formatMissionState(result.MissionState))
	}
	return b.String()
}

func formatExecuteResult(result *service.ExecuteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rovers executed: %d, Blocked moves: %d\n", result.RoversExecuted, result.BlockedMoves)
	if result.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", result.Message)
	}

	for _, report := range result.Reports {
		fmt.Fprintf(&b, "\nRover #%d -> %s\n", report.ID, report.String())
		for _, step := range report.Steps {
			if step.Command == engine.MoveForward && !step.Moved {
				fmt.Fprintf(&b, "  step %d: M blocked by %s at %d %d\n", step.Idx, step.BlockedBy, step.From.X, step.From.Y)
			}
		}
	}

	if len(result.Positions) > 0 {
		b.WriteString("\nFinal positions:\n")
		for _, p := range result.Positions {
			b.WriteString(p + "\n")
		}
	}
	return b.String()
}
