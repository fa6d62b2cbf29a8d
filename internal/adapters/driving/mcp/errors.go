// Package mcp provides an MCP (Model Context Protocol) server adapter for
// sercha-nodes. It lets AI assistants browse the stored node hierarchy.
package mcp

import "errors"

// ErrMissingNodeService is returned when the node service is not provided.
var ErrMissingNodeService = errors.New("mcp: node service is required")
