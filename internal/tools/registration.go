package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registration pairs an MCP tool definition with its handler function.
type Registration struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// RegisterAll adds every registration of every group to s and returns the
// registered tool names in order.
func RegisterAll(s *server.MCPServer, groups ...[]Registration) []string {
	var names []string
	for _, group := range groups {
		for _, r := range group {
			s.AddTool(r.Tool, r.Handler)
			names = append(names, r.Tool.Name)
		}
	}
	return names
}
