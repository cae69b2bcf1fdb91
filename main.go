// Command marsrover runs Mars rover missions.
//
// It supports four commands:
//  1. "run" reads plain-text mission input and prints the final rover positions
//  2. "serve" runs the HTTP server exposing REST API, WebSocket, /metrics and an /mcp endpoint
//  3. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  4. "validate" checks every plan file in the plan directory
//
// Settings come from an optional YAML/JSON file and MARSROVER_* environment
// variables; flags override both.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/marsrover/logger"
	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/parser"
	"github.com/wricardo/mcp-training/marsrover/settings"
	"github.com/wricardo/mcp-training/marsrover/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Mars Rover Mission Server"
)

// defaultInput is read by "run" when no file is given
const defaultInput = "input.txt"

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "marsrover",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "settings file (.yaml, .yml or .json)",
				Sources: cli.EnvVars("MARSROVER_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			serveCommand(),
			mcpCommand(),
			validateCommand(),
		},
		DefaultCommand: "run",
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a mission file and print final rover positions",
		ArgsUsage: "[file|-]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "policy",
				Usage: "malformed rover handling: abort or skip",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			log := logger.New("run")

			plan, err := readMission(cmd.Args().First())
			if err != nil {
				return err
			}

			result, err := engine.Simulate(plan, engine.WithInputPolicy(inputPolicy(s.InputPolicy)))
			if err != nil {
				return err
			}
			for _, skipped := range result.Skipped {
				log.Warnf("Rover %d skipped: %s", skipped.ID, skipped.Reason)
			}

			return parser.WriteReports(cmd.Root().Writer, result.Reports)
		},
	}
}

func readMission(path string) (*engine.MissionPlan, error) {
	switch path {
	case "-":
		return parser.Parse(os.Stdin)
	case "":
		path = defaultInput
	}
	return parser.ParseFile(path)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run HTTP server with API, WebSocket, metrics and MCP endpoint",
		Flags: append(serverFlags(),
			&cli.BoolFlag{
				Name:  "ngrok",
				Usage: "enable ngrok tunnel",
			},
			&cli.StringFlag{
				Name:  "ngrok-domain",
				Usage: "custom ngrok domain (optional)",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runHTTPServer(ctx, s)
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run MCP stdio server, using a running API server or an internal one",
		Flags:   serverFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runStdioMCP(ctx, s)
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate mission plan files",
		ArgsUsage: "[plan-dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			dir := cmd.Args().First()
			if dir == "" {
				dir = s.PlanDir
			}

			results, err := validate.Dir(dir)
			if err != nil {
				return err
			}
			if !validate.Report(cmd.Root().Writer, results) {
				return errors.New("some plans have errors")
			}
			return nil
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "HTTP server host",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "HTTP server port",
		},
		&cli.StringFlag{
			Name:    "plan-dir",
			Usage:   "directory containing mission plans",
			Sources: cli.EnvVars("CONFIG_DIR"),
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "malformed rover handling: abort or skip",
		},
	}
}

// loadSettings reads the settings file and applies any flag the command set
func loadSettings(cmd *cli.Command) (*settings.Settings, error) {
	s, err := settings.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("log-level") {
		s.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("policy") {
		s.InputPolicy = cmd.String("policy")
	}
	if cmd.IsSet("host") {
		s.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Port = cmd.Int("port")
	}
	if cmd.IsSet("plan-dir") {
		s.PlanDir = cmd.String("plan-dir")
	}
	if cmd.IsSet("ngrok") {
		s.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		s.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	logger.SetLevel(s.LogLevel)
	return s, nil
}

func inputPolicy(name string) engine.InputPolicy {
	if name == settings.PolicySkip {
		return engine.SkipInvalidInput
	}
	return engine.AbortOnInvalidInput
}
