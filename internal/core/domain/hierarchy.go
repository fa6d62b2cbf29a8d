package domain

import (
	"fmt"
	"sort"
)

// Hierarchy rebuilds the containment tree of one or more data sources from
// node snapshots. Each node's parents chain is enough to place it; ancestors
// are resolved only when they were supplied as nodes themselves.
//
// A Hierarchy is not safe for concurrent mutation but may be read from
// multiple goroutines once built.
type Hierarchy struct {
	nodes    map[NodeKey]Node
	children map[NodeKey][]NodeKey
}

// NewHierarchy indexes nodes by key. When several snapshots share a key the
// one with the greatest timestamp wins; ties keep the later entry.
func NewHierarchy(nodes []Node) *Hierarchy {
	h := &Hierarchy{
		nodes:    make(map[NodeKey]Node, len(nodes)),
		children: make(map[NodeKey][]NodeKey),
	}
	for _, n := range nodes {
		if prev, ok := h.nodes[n.Key()]; ok && prev.timestamp > n.timestamp {
			continue
		}
		h.nodes[n.Key()] = n
	}
	for key, n := range h.nodes {
		parentID, ok := n.Parent()
		if !ok {
			continue
		}
		parentKey := NodeKey{DataSourceID: key.DataSourceID, NodeID: parentID}
		h.children[parentKey] = append(h.children[parentKey], key)
	}
	for _, keys := range h.children {
		sortKeys(keys)
	}
	return h
}

// Len returns the number of distinct logical items.
func (h *Hierarchy) Len() int {
	return len(h.nodes)
}

// Get returns the snapshot stored under key.
func (h *Hierarchy) Get(key NodeKey) (Node, bool) {
	n, ok := h.nodes[key]
	return n, ok
}

// Children returns the direct children of key sorted by node ID.
// The parent itself does not need to be present.
func (h *Hierarchy) Children(key NodeKey) []Node {
	keys := h.children[key]
	out := make([]Node, 0, len(keys))
	for _, k := range keys {
		out = append(out, h.nodes[k])
	}
	return out
}

// Roots returns the nodes of a data source that have no parents,
// sorted by node ID.
func (h *Hierarchy) Roots(dataSourceID string) []Node {
	var keys []NodeKey
	for key, n := range h.nodes {
		if key.DataSourceID == dataSourceID && n.IsRoot() {
			keys = append(keys, key)
		}
	}
	sortKeys(keys)
	out := make([]Node, 0, len(keys))
	for _, k := range keys {
		out = append(out, h.nodes[k])
	}
	return out
}

// Ancestors resolves the parents chain of key, nearest first.
// It fails with ErrNotFound if the node or any ancestor is missing.
func (h *Hierarchy) Ancestors(key NodeKey) ([]Node, error) {
	n, ok := h.nodes[key]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", key, ErrNotFound)
	}
	out := make([]Node, 0, len(n.parents))
	for _, parentID := range n.parents {
		parentKey := NodeKey{DataSourceID: key.DataSourceID, NodeID: parentID}
		parent, ok := h.nodes[parentKey]
		if !ok {
			return nil, fmt.Errorf("ancestor %s of %s: %w", parentKey, key, ErrNotFound)
		}
		out = append(out, parent)
	}
	return out, nil
}

// Path returns the titles from the topmost ancestor down to the node itself.
func (h *Hierarchy) Path(key NodeKey) ([]string, error) {
	ancestors, err := h.Ancestors(key)
	if err != nil {
		return nil, err
	}
	path := make([]string, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		path = append(path, ancestors[i].title)
	}
	return append(path, h.nodes[key].title), nil
}

func sortKeys(keys []NodeKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].DataSourceID != keys[j].DataSourceID {
			return keys[i].DataSourceID < keys[j].DataSourceID
		}
		return keys[i].NodeID < keys[j].NodeID
	})
}
