package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for node resources.
	uriScheme = "sercha-nodes://"

	// jsonLinesMIME is the MIME type of exported node records.
	jsonLinesMIME = "application/x-ndjson"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "data-sources",
		Description: "IDs of every data source with stored nodes",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{dataSourceId}/nodes",
		Name:        "source-nodes",
		Description: "Every node of a data source as JSON lines",
		MIMEType:    jsonLinesMIME,
	}, s.handleNodesResource)
}

// handleSourcesResource returns the stored data source IDs.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	ids, err := s.ports.Node.ListDataSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing data sources: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling data sources: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleNodesResource exports the nodes of one data source.
func (s *Server) handleNodesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	dataSourceID := extractDataSourceID(req.Params.URI)
	if dataSourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	var buf bytes.Buffer
	n, err := s.ports.Node.Export(ctx, dataSourceID, &buf)
	if err != nil {
		return nil, fmt.Errorf("exporting nodes: %w", err)
	}
	if n == 0 {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: jsonLinesMIME,
			Text:     buf.String(),
		}},
	}, nil
}

// extractDataSourceID extracts the percent-decoded ID from
// sercha-nodes://sources/{id}/nodes.
func extractDataSourceID(uri string) string {
	const prefix = uriScheme + "sources/"
	const suffix = "/nodes"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id, err := url.PathUnescape(strings.TrimSuffix(uri, suffix))
	if err != nil {
		return ""
	}
	return id
}
