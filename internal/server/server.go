// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	"github.com/ThinkInAIXYZ/go-mcp/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mcp-baby-meals/internal/catalog"
	"mcp-baby-meals/internal/config"
	"mcp-baby-meals/internal/metrics"
	"mcp-baby-meals/internal/safety"
	"mcp-baby-meals/internal/storage"
)

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type MealLogServer struct {
	server     *server.Server
	transport  transport.ServerTransport
	sse        *transport.SSEHandler
	mcpRunning atomic.Bool
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	safety     *safety.Service
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	tools      map[string]toolHandler
	logger     *slog.Logger
	now        func() time.Time
	config     *config.Config
}

type Option func(*MealLogServer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *MealLogServer) { s.logger = logger }
}

// WithClock fixes the time used for ages, defaults and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MealLogServer) { s.now = now }
}

// WithTransport replaces the MCP transport chosen from the configuration.
func WithTransport(t transport.ServerTransport) Option {
	return func(s *MealLogServer) { s.transport = t }
}

func NewMealLogServer(cfg *config.Config, opts ...Option) (*MealLogServer, error) {
	mealServer := &MealLogServer{
		registry: prometheus.NewRegistry(),
		logger:   slog.Default(),
		now:      time.Now,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(mealServer)
	}

	// Initialize database
	stor, err := storage.NewSQLiteStorage(cfg.Storage.DBPath, storage.WithClock(mealServer.now))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	mealServer.storage = stor

	if cfg.Catalog.ShouldSeed() {
		c, err := catalog.Seed(context.Background(), stor, cfg.Catalog.Path)
		if err != nil {
			stor.Close()
			return nil, err
		}
		mealServer.logger.Info("seeded catalog",
			slog.Int("foods", len(c.Foods)),
			slog.Int("rules", len(c.Rules)),
		)
	}

	mealServer.registry.MustRegister(collectors.NewGoCollector())
	mealServer.metrics = metrics.New(mealServer.registry)
	mealServer.safety = safety.NewService(stor, stor, stor,
		safety.WithClock(mealServer.now),
		safety.WithLogger(mealServer.logger),
		safety.WithObserver(mealServer.metrics),
	)

	if mealServer.transport == nil {
		if err := mealServer.newTransport(); err != nil {
			stor.Close()
			return nil, err
		}
	}

	mcpServer, err := server.NewServer(
		mealServer.transport,
		server.WithServerInfo(protocol.Implementation{
			Name:    "baby-meals",
			Version: Version,
		}),
		server.WithCapabilities(protocol.ServerCapabilities{
			Tools: &protocol.ToolsCapability{},
		}),
		server.WithLogger(mcpLogger{mealServer.logger}),
	)
	if err != nil {
		stor.Close()
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	mealServer.server = mcpServer

	mealServer.registerTools()

	if cfg.Server.Transport == config.TransportHTTP {
		mealServer.httpServer = &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           mealServer.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return mealServer, nil
}

func (s *MealLogServer) newTransport() error {
	switch s.config.Server.Transport {
	case config.TransportStdio:
		s.transport = transport.NewStdioServerTransport(
			transport.WithStdioServerOptionLogger(mcpLogger{s.logger}),
		)
	default:
		t, handler, err := transport.NewSSEServerTransportAndHandler(
			fmt.Sprintf("http://%s/message", s.config.Server.Addr()),
			transport.WithSSEServerTransportAndHandlerOptionLogger(mcpLogger{s.logger}),
		)
		if err != nil {
			return fmt.Errorf("failed to create SSE transport: %w", err)
		}
		s.transport = t
		s.sse = handler
	}
	return nil
}

// Version is reported in the MCP server info and by the version command.
const Version = "1.0.0"

// Handler routes tool calls, the MCP SSE session, metrics and health checks.
func (s *MealLogServer) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.sse != nil {
		mux.Handle("/sse", s.sse.HandleSSE())
		mux.Handle("/message", s.sse.HandleMessage())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", s.handleHTTP)
	return mux
}

func (s *MealLogServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := s.callTool(r.Context(), request.Name, handler, &request)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("tool call failed", slog.String("tool", request.Name), slog.Any("error", err))
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParams),
		errors.Is(err, storage.ErrInvalidBaby),
		errors.Is(err, storage.ErrInvalidMeal),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *MealLogServer) callTool(ctx context.Context, name string, handler toolHandler, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	start := time.Now()
	result, err := handler(ctx, req)
	s.metrics.ObserveToolCall(name, time.Since(start), err)
	return result, err
}

// mcpHandler adapts a tool to the MCP session. Tool failures are reported
// to the client as error results rather than protocol errors.
func (s *MealLogServer) mcpHandler(name string) server.ToolHandlerFunc {
	return func(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
		result, err := s.callTool(context.Background(), name, s.tools[name], req)
		if err != nil {
			if statusFor(err) == http.StatusInternalServerError {
				s.logger.Error("tool call failed", slog.String("tool", name), slog.Any("error", err))
			}
			return &protocol.CallToolResult{
				Content: []protocol.Content{protocol.TextContent{Type: "text", Text: err.Error()}},
				IsError: true,
			}, nil
		}
		return result, nil
	}
}

// Start serves until Stop is called. Over HTTP the MCP session runs
// alongside the tool endpoint; over stdio it is the only surface.
func (s *MealLogServer) Start(ctx context.Context) error {
	s.mcpRunning.Store(true)

	if s.httpServer == nil {
		s.logger.Info("starting meal log server", slog.String("transport", s.config.Server.Transport))
		return s.server.Run()
	}

	go func() {
		if err := s.server.Run(); err != nil {
			s.logger.Error("MCP session stopped", slog.Any("error", err))
		}
	}()

	s.logger.Info("starting meal log server",
		slog.String("transport", s.config.Server.Transport),
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *MealLogServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if s.mcpRunning.CompareAndSwap(true, false) {
		if serr := s.server.Shutdown(ctx); serr != nil {
			// The stdio transport cannot be shut down; it ends with the process.
			s.logger.Debug("MCP session shutdown", slog.Any("error", serr))
		}
	}
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *MealLogServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}

// mcpLogger routes the MCP library's printf logging through slog.
type mcpLogger struct{ logger *slog.Logger }

func (l mcpLogger) Debugf(format string, a ...any) { l.logger.Debug(fmt.Sprintf(format, a...)) }
func (l mcpLogger) Infof(format string, a ...any)  { l.logger.Info(fmt.Sprintf(format, a...)) }
func (l mcpLogger) Warnf(format string, a ...any)  { l.logger.Warn(fmt.Sprintf(format, a...)) }
func (l mcpLogger) Errorf(format string, a ...any) { l.logger.Error(fmt.Sprintf(format, a...)) }
