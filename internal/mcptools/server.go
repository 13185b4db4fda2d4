// Package mcptools implements the Agent Tool Surface: the ask_questions
// blocking RPC tool plus three read-only URI-templated resources,
// exposed over github.com/modelcontextprotocol/go-sdk/mcp. Registration
// follows the corpus's mcp.AddTool idiom (internal/mcp/server.go); the
// resource surface has no direct teacher precedent and is authored
// fresh against the SDK's resource-template registration API.
package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/roasbeef/planreview/internal/engine"
)

// Server wraps the MCP server with the Engine it drives.
type Server struct {
	server *mcp.Server
	eng    *engine.Engine
}

// NewServer creates a new MCP server with the review tool and resource
// surface registered.
func NewServer(eng *engine.Engine) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "planreview",
		Version: "0.1.0",
	}, nil)

	s := &Server{
		server: mcpServer,
		eng:    eng,
	}

	s.registerTools()
	s.registerResources()

	return s
}

// Run starts the MCP server on the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// MCPServer returns the underlying SDK server, for transports (such as
// the stateless HTTP mount) that need to construct it per-request.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask_questions",
		Description: "Ask the human reviewer one question per unresolved " +
			"comment; blocks until the review leaves discussing or a " +
			"10-minute deadline elapses",
	}, s.handleAskQuestions)
}
