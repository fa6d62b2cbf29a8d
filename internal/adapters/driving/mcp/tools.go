package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

// NodeKeyInput identifies a single node.
type NodeKeyInput struct {
	DataSourceID string `json:"data_source_id" jsonschema:"the data source the node belongs to"`
	NodeID       string `json:"node_id" jsonschema:"the node identifier within its data source"`
}

// ListNodesInput is the input schema for the list_nodes tool.
type ListNodesInput struct {
	DataSourceID string `json:"data_source_id,omitempty" jsonschema:"data source to list; omit to list data sources instead"`
	NodeType     string `json:"node_type,omitempty" jsonschema:"only return nodes of this type: Document, Table or Folder"`
}

// NodeOutput is the wire form of a node. Field names follow the JSON
// record format.
type NodeOutput struct {
	DataSourceID string   `json:"data_source_id"`
	NodeID       string   `json:"node_id"`
	NodeType     string   `json:"node_type"`
	Timestamp    uint64   `json:"timestamp"`
	Title        string   `json:"title"`
	MimeType     string   `json:"mime_type"`
	Parents      []string `json:"parents"`
}

// GetNodeOutput is the output schema for the get_node tool.
type GetNodeOutput struct {
	Node NodeOutput `json:"node"`
	Path []string   `json:"path"`
}

// NodeListOutput is the output schema for tools returning several nodes.
type NodeListOutput struct {
	Nodes []NodeOutput `json:"nodes"`
	Count int          `json:"count"`
}

// ListNodesOutput is the output schema for the list_nodes tool.
type ListNodesOutput struct {
	DataSources []string     `json:"data_sources,omitempty"`
	Nodes       []NodeOutput `json:"nodes,omitempty"`
	Count       int          `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_node",
		Description: "Get a stored node and its title path from the root",
	}, s.handleGetNode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_nodes",
		Description: "List the nodes of a data source, or the data sources when none is given",
	}, s.handleListNodes)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "node_ancestors",
		Description: "List the ancestors of a node, nearest first",
	}, s.handleNodeAncestors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "node_children",
		Description: "List the direct children of a node",
	}, s.handleNodeChildren)
}

func (s *Server) handleGetNode(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NodeKeyInput,
) (*mcp.CallToolResult, GetNodeOutput, error) {
	key, err := input.key()
	if err != nil {
		return nil, GetNodeOutput{}, err
	}

	node, err := s.ports.Node.Get(ctx, key)
	if err != nil {
		return nil, GetNodeOutput{}, fmt.Errorf("getting node %s: %w", key, err)
	}

	// A broken ancestor chain still returns the node itself.
	path := []string{node.Title()}
	if ancestors, err := s.ports.Node.Ancestors(ctx, key); err == nil {
		path = make([]string, 0, len(ancestors)+1)
		for i := len(ancestors) - 1; i >= 0; i-- {
			path = append(path, ancestors[i].Title())
		}
		path = append(path, node.Title())
	}

	return nil, GetNodeOutput{Node: toOutput(node), Path: path}, nil
}

func (s *Server) handleListNodes(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListNodesInput,
) (*mcp.CallToolResult, ListNodesOutput, error) {
	if input.DataSourceID == "" {
		ids, err := s.ports.Node.ListDataSources(ctx)
		if err != nil {
			return nil, ListNodesOutput{}, fmt.Errorf("listing data sources: %w", err)
		}
		return nil, ListNodesOutput{DataSources: ids, Count: len(ids)}, nil
	}

	var filter domain.NodeType
	if input.NodeType != "" {
		nt, err := domain.ParseNodeType(input.NodeType)
		if err != nil {
			return nil, ListNodesOutput{}, err
		}
		filter = nt
	}

	nodes, err := s.ports.Node.List(ctx, input.DataSourceID)
	if err != nil {
		return nil, ListNodesOutput{}, fmt.Errorf("listing nodes: %w", err)
	}

	output := ListNodesOutput{Nodes: make([]NodeOutput, 0, len(nodes))}
	for _, n := range nodes {
		if filter.Valid() && n.Type() != filter {
			continue
		}
		output.Nodes = append(output.Nodes, toOutput(n))
	}
	output.Count = len(output.Nodes)
	return nil, output, nil
}

func (s *Server) handleNodeAncestors(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NodeKeyInput,
) (*mcp.CallToolResult, NodeListOutput, error) {
	key, err := input.key()
	if err != nil {
		return nil, NodeListOutput{}, err
	}

	ancestors, err := s.ports.Node.Ancestors(ctx, key)
	if err != nil {
		return nil, NodeListOutput{}, fmt.Errorf("resolving ancestors of %s: %w", key, err)
	}
	return nil, toListOutput(ancestors), nil
}

func (s *Server) handleNodeChildren(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input NodeKeyInput,
) (*mcp.CallToolResult, NodeListOutput, error) {
	key, err := input.key()
	if err != nil {
		return nil, NodeListOutput{}, err
	}

	children, err := s.ports.Node.Children(ctx, key)
	if err != nil {
		return nil, NodeListOutput{}, fmt.Errorf("listing children of %s: %w", key, err)
	}
	return nil, toListOutput(children), nil
}

func (in NodeKeyInput) key() (domain.NodeKey, error) {
	if in.DataSourceID == "" || in.NodeID == "" {
		return domain.NodeKey{}, errors.New("data_source_id and node_id are required")
	}
	return domain.NodeKey{DataSourceID: in.DataSourceID, NodeID: in.NodeID}, nil
}

func toOutput(n domain.Node) NodeOutput {
	return NodeOutput{
		DataSourceID: n.DataSourceID(),
		NodeID:       n.NodeID(),
		NodeType:     n.Type().String(),
		Timestamp:    n.Timestamp(),
		Title:        n.Title(),
		MimeType:     n.MimeType(),
		Parents:      n.Parents(),
	}
}

func toListOutput(nodes []domain.Node) NodeListOutput {
	out := NodeListOutput{Nodes: make([]NodeOutput, len(nodes)), Count: len(nodes)}
	for i, n := range nodes {
		out.Nodes[i] = toOutput(n)
	}
	return out
}
