// Package mcp exposes the specialist agent registry and the prompt guard as
// Model Context Protocol tools over streamable HTTP.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/zasterix/zasterix/internal/catalog"
	"github.com/zasterix/zasterix/internal/domain/template"
	"github.com/zasterix/zasterix/internal/middleware"
)

// Registry is the part of the template service the tools use.
type Registry interface {
	List(ctx context.Context, scope template.Scope) ([]template.AgentTemplate, error)
	Create(ctx context.Context, task string, o template.Overrides) (*template.AgentTemplate, error)
	Consult(ctx context.Context, orgID, templateID, input string) (*template.Consultation, error)
}

// ModuleLister lists the guided modules.
type ModuleLister interface {
	Modules() []*catalog.Module
}

// ServerConfig holds the MCP server identity and credentials.
type ServerConfig struct {
	Name    string
	Version string
	// APIKey enables bearer authentication when non-empty.
	APIKey string
}

// ServerDeps are the services behind the tools. Nil deps make the dependent
// tools return an error result.
type ServerDeps struct {
	Templates Registry
	Modules   ModuleLister
}

// Server wraps an MCP server with its tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates the MCP server and registers every tool and resource.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
			mcpserver.WithInstructions(template.ArchitectSystemPrompt),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// Handler returns the streamable HTTP endpoint. The caller identity set by
// the identity middleware is carried into tool calls.
func (s *Server) Handler() http.Handler {
	h := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return middleware.WithIdentity(ctx, middleware.IdentityFromContext(r.Context()))
		}),
	)
	return AuthMiddleware(s.cfg.APIKey, h)
}
