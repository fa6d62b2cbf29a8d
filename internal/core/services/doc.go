// Package services implements the driving port interfaces.
//
//   - NodeService: reads stored nodes and converts them to and from JSON lines
//   - SyncOrchestrator: applies connector discoveries and change events to
//     the node store
//
// Services are pure Go and talk to infrastructure only through driven ports.
package services
