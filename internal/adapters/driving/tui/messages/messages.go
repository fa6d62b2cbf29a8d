// Package messages defines Bubbletea message types for the node browser.
package messages

import (
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSources lists the stored data sources.
	ViewSources ViewType = iota
	// ViewBrowser walks the hierarchy of one data source.
	ViewBrowser
	// ViewDetail shows every field of one node.
	ViewDetail
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSources:
		return "sources"
	case ViewBrowser:
		return "browser"
	case ViewDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// SourcesLoaded carries the data source ids.
type SourcesLoaded struct {
	DataSources []string
	Err         error
}

// SourceSelected is sent when a data source is picked for browsing.
type SourceSelected struct {
	DataSourceID string
}

// NodesLoaded carries every node of a data source.
type NodesLoaded struct {
	DataSourceID string
	Nodes        []domain.Node
	Err          error
}

// NodeSelected is sent when the details of a node are requested.
// Path holds the titles from the topmost ancestor down to the node.
type NodeSelected struct {
	Node domain.Node
	Path []string
}

// Quit requests application exit.
type Quit struct{}
