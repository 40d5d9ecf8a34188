// Package mcp exposes validation sessions to AI assistants over the Model
// Context Protocol: tools to run a session and read its progress and
// results, plus read-only resources.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Instructions tells agents how the tools fit together.
const Instructions = `Compliance validation engine.
Sessions are identified by their validation detail id and must already exist in pending state.
Call validate_session to run one, then session_status to follow progress and list_results
to read the per-requirement verdicts (Met, PartiallyMet, NotMet, Error).
list_requirements shows what a unit will be checked against.`

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

var (
	ErrMissingSessionService = errors.New("mcp: session service is required")

	// ErrValidationUnavailable is returned by validate_session when no
	// orchestrator is wired, usually because the model backend is not
	// configured.
	ErrValidationUnavailable = errors.New("mcp: validation is not available")
)

// Ports are the core services the tools call. Only Sessions is required;
// list_requirements is registered only when Requirements is set.
type Ports struct {
	Orchestrator driving.ValidationOrchestrator
	Sessions     driving.SessionQuery
	Requirements driving.RequirementQuery
}

func (p *Ports) Validate() error {
	if p == nil || p.Sessions == nil {
		return ErrMissingSessionService
	}
	return nil
}

// Server exposes validation sessions to agents over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server
	tools  []string
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "compliance", Version: Version},
			&mcp.ServerOptions{Instructions: Instructions},
		),
	}
	s.registerTools()
	s.registerResources()

	if ports.Orchestrator == nil {
		logger.Warn("mcp: validate_session will report the model backend as unavailable")
	}
	return s, nil
}

// Tools returns the names of the registered tools in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Debug("mcp: serving HTTP on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
