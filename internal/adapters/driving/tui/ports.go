// Package tui provides an interactive terminal browser for stored nodes.
// It is a driving adapter over driving.NodeService.
package tui

import (
	"errors"

	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
)

// ErrMissingNodeService is returned when the node service is not provided.
var ErrMissingNodeService = errors.New("tui: node service is required")

// Ports aggregates the driving ports used by the browser.
type Ports struct {
	Node driving.NodeService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Node == nil {
		return ErrMissingNodeService
	}
	return nil
}
