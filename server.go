package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wricardo/mcp-training/marsrover/api"
	"github.com/wricardo/mcp-training/marsrover/logger"
	"github.com/wricardo/mcp-training/marsrover/metrics"
	"github.com/wricardo/mcp-training/marsrover/mission/config"
	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/service"
	"github.com/wricardo/mcp-training/marsrover/mission/session"
	"github.com/wricardo/mcp-training/marsrover/settings"
	"github.com/wricardo/mcp-training/marsrover/transport/mcp"
	"github.com/wricardo/mcp-training/marsrover/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// cleanupInterval is how often expired sessions are pruned
const cleanupInterval = time.Hour

// services bundles everything an HTTP API instance needs
type services struct {
	mission  service.MissionService
	sessions *session.Manager
	recorder metrics.Recorder
	registry *prometheus.Registry
	policy   engine.InputPolicy
}

// initializeServices wires the plan catalogue, session manager, metrics and
// mission service.
func initializeServices(s *settings.Settings) (*services, error) {
	plans, err := config.NewManager(s.PlanDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink, err := metrics.NewPromSink(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	policy := inputPolicy(s.InputPolicy)
	sessions := session.NewManager(engine.WithInputPolicy(policy))

	missionService := service.NewMissionService(sessions, plans,
		service.WithLogger(logger.New("service")),
		service.WithMetrics(sink),
	)

	return &services{
		mission:  missionService,
		sessions: sessions,
		recorder: sink,
		registry: registry,
		policy:   policy,
	}, nil
}

// handler builds the API server plus the /mcp proxy endpoint
func (svc *services) handler(baseURL string) (http.Handler, *websocket.Hub) {
	hub := websocket.NewHub(logger.New("websocket"))
	go hub.Run()

	apiServer := api.NewServer(svc.mission, hub,
		api.WithLogger(logger.New("api")),
		api.WithMetricsHandler(promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{})),
		api.WithMissionOptions(engine.WithInputPolicy(svc.policy)),
	)

	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter, hub
}

// runHTTPServer starts the HTTP server and, when configured, an ngrok tunnel.
// It returns after SIGINT/SIGTERM or ctx cancellation and a graceful shutdown.
func runHTTPServer(ctx context.Context, s *settings.Settings) error {
	log := logger.New("server")

	svc, err := initializeServices(s)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	addr := net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
	handler, hub := svc.handler(fmt.Sprintf("http://%s", addr))
	defer hub.Stop()

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, svc.sessions, svc.recorder, s.SessionTTL, log)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", addr)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)
		log.Infof("Metrics: http://%s/metrics", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	if s.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, s.Ngrok, handler, log)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Infof("Shutting down...")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("HTTP server failed: %w", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Infof("Server stopped")
	return runErr
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, cfg settings.NgrokSettings, handler http.Handler, log logger.Logger) {
	log.Infof("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Infof("Using custom ngrok domain: %s", cfg.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Errorf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warnf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Infof("Ngrok tunnel established: %s", ngrokURL)
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Errorf("Ngrok server error: %v", err)
	}
	log.Infof("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl. A zero ttl disables it.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, recorder metrics.Recorder, ttl time.Duration, log logger.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Infof("Cleaned up %d expired sessions", removed)
				recorder.SetActiveSessions(manager.Count())
			}
		}
	}
}

// runStdioMCP runs an MCP stdio server. It reuses an API server already
// listening on the configured address; otherwise it starts an internal one
// on a random loopback port.
func runStdioMCP(ctx context.Context, s *settings.Settings) error {
	log := logger.New("mcp")

	externalURL := fmt.Sprintf("http://%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)))
	baseURL, err := externalAPI(ctx, externalURL)
	if err != nil {
		log.Infof("No external API server at %s, starting internal HTTP server", externalURL)

		svc, err := initializeServices(s)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		handler, hub := svc.handler(baseURL)
		defer hub.Stop()

		httpServer := &http.Server{Handler: handler}
		defer httpServer.Close()
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Errorf("Internal HTTP server error: %v", err)
			}
		}()
		log.Infof("MCP stdio server ready (using internal HTTP server on %s)", baseURL)
	} else {
		log.Infof("MCP stdio server ready (using external HTTP server at %s)", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// externalAPI returns url when a healthy API server answers there
func externalAPI(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url+"/health", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return url, nil
}
