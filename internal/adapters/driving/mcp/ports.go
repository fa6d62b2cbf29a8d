package mcp

import (
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Node reads stored nodes.
	Node driving.NodeService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Node == nil {
		return ErrMissingNodeService
	}
	return nil
}
