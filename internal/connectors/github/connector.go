package github

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"sync"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-nodes/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.NodeConnector = (*Connector)(nil)

// ConnectorType is the identifier reported by Type.
const ConnectorType = "github"

// Options configures access to the repository.
type Options struct {
	// Token is a personal access token. Empty sends unauthenticated
	// requests, which only reach public repositories.
	Token string

	// Ref is the branch, tag or commit to list. Empty means the default branch.
	Ref string

	// BaseURL overrides the API root, for GitHub Enterprise.
	BaseURL string

	// TableExtensions lists lower-case extensions (with leading dot) that
	// map to domain.NodeTypeTable. Nil means domain.DefaultTableExtensions.
	TableExtensions []string

	// RequestsPerSecond caps the request rate. Zero means
	// DefaultRequestsPerSecond and a negative value disables throttling.
	RequestsPerSecond float64
}

// Connector lists the tree of a single GitHub repository.
type Connector struct {
	dataSourceID string
	owner        string
	repo         string
	ref          string
	tableExts    map[string]struct{}
	client       *Client

	mu     sync.Mutex
	closed bool
}

// New creates a connector for repository, given as "owner/repo".
func New(dataSourceID, repository string, opts Options) (*Connector, error) {
	owner, repo, err := ParseRepository(repository)
	if err != nil {
		return nil, err
	}

	perSecond := opts.RequestsPerSecond
	if perSecond == 0 {
		perSecond = DefaultRequestsPerSecond
	}
	client := NewClient(context.Background(), opts.Token, NewRateLimiter(perSecond))
	if opts.BaseURL != "" {
		if err := client.SetBaseURL(opts.BaseURL); err != nil {
			return nil, err
		}
	}

	exts := opts.TableExtensions
	if exts == nil {
		exts = domain.DefaultTableExtensions
	}
	tableExts := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		tableExts[strings.ToLower(ext)] = struct{}{}
	}

	return &Connector{
		dataSourceID: dataSourceID,
		owner:        owner,
		repo:         repo,
		ref:          opts.Ref,
		tableExts:    tableExts,
		client:       client,
	}, nil
}

// Type returns "github".
func (c *Connector) Type() string { return ConnectorType }

// DataSourceID returns the data source the emitted nodes belong to.
func (c *Connector) DataSourceID() string { return c.dataSourceID }

// Repository returns "owner/repo".
func (c *Connector) Repository() string { return c.owner + "/" + c.repo }

// Validate checks that the repository is reachable with the configured token.
func (c *Connector) Validate(ctx context.Context) error {
	if c.isClosed() {
		return fmt.Errorf("validate %s: %w", c.Repository(), domain.ErrConnectorClosed)
	}

	_, err := c.client.GetRepository(ctx, c.owner, c.repo)
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrRepoNotFound, c.Repository())
	case IsUnauthorized(err):
		return fmt.Errorf("github token rejected: %w", err)
	default:
		return err
	}
}

// Discover lists the tree at the configured ref in one recursive request.
// Every node carries the time of the listed commit. A truncated listing is
// reported on the error channel after the entries that were returned.
func (c *Connector) Discover(ctx context.Context) (<-chan domain.Node, <-chan error) {
	nodes := make(chan domain.Node, 100)
	errs := make(chan error, 2)

	go func() {
		defer close(nodes)
		defer close(errs)

		if c.isClosed() {
			c.report(ctx, errs, fmt.Errorf("discover %s: %w", c.Repository(), domain.ErrConnectorClosed))
			return
		}

		ref := c.ref
		if ref == "" {
			repository, err := c.client.GetRepository(ctx, c.owner, c.repo)
			if err != nil {
				c.report(ctx, errs, err)
				return
			}
			ref = repository.GetDefaultBranch()
		}

		commit, err := c.client.GetCommit(ctx, c.owner, c.repo, ref)
		if err != nil {
			c.report(ctx, errs, err)
			return
		}
		timestamp := commitMillis(commit)
		logger.Debug("Listing %s at %s (%s)", c.Repository(), ref, commit.GetSHA())

		tree, err := c.client.GetTree(ctx, c.owner, c.repo, commit.GetSHA())
		if err != nil {
			c.report(ctx, errs, err)
			return
		}

		for _, entry := range tree.Entries {
			node, ok := c.nodeFor(entry, timestamp)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case nodes <- node:
			}
		}

		if tree.GetTruncated() {
			c.report(ctx, errs, fmt.Errorf("%w: %s at %s", ErrTreeTruncated, c.Repository(), ref))
		}
	}()

	return nodes, errs
}

// Watch is not supported; rescan to pick up new commits.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.NodeChange, error) {
	return nil, fmt.Errorf("watch %s: %w", c.Repository(), domain.ErrWatchUnsupported)
}

// Close marks the connector closed. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Connector) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// nodeFor maps a tree entry to a node. Submodules are skipped.
func (c *Connector) nodeFor(entry *gh.TreeEntry, timestamp uint64) (domain.Node, bool) {
	p := entry.GetPath()
	if p == "" {
		return domain.Node{}, false
	}

	var nodeType domain.NodeType
	mimeType := ""
	switch entry.GetType() {
	case "tree":
		nodeType = domain.NodeTypeFolder
	case "blob":
		nodeType = domain.NodeTypeDocument
		if _, ok := c.tableExts[strings.ToLower(path.Ext(p))]; ok {
			nodeType = domain.NodeTypeTable
		}
		mimeType = detectFileMIMEType(p)
	default:
		return domain.Node{}, false
	}

	return domain.NewNode(c.dataSourceID, p, nodeType, timestamp,
		path.Base(p), mimeType, parentsOf(p)), true
}

func (c *Connector) report(ctx context.Context, errs chan<- error, err error) {
	logger.Debug("Discover: %v", err)
	select {
	case <-ctx.Done():
	case errs <- err:
	}
}

// commitMillis returns the committer date in Unix milliseconds, or 0 when
// GitHub sent none.
func commitMillis(commit *gh.RepositoryCommit) uint64 {
	date := commit.GetCommit().GetCommitter().GetDate()
	if date.IsZero() || date.UnixMilli() < 0 {
		return 0
	}
	return uint64(date.UnixMilli())
}

// extMIMETypes maps file extensions to MIME types for common types not in Go's registry.
var extMIMETypes = map[string]string{
	".md": "text/markdown", ".markdown": "text/markdown",
	".csv": "text/csv", ".tsv": "text/tab-separated-values",
	".go": "text/x-go", ".py": "text/x-python", ".rs": "text/x-rust",
	".ts": "text/typescript", ".tsx": "text/typescript-jsx", ".jsx": "text/javascript-jsx",
	".yaml": "text/yaml", ".yml": "text/yaml", ".toml": "text/toml",
	".sh": "text/x-shellscript", ".bash": "text/x-shellscript",
	".sql": "text/x-sql", ".rb": "text/x-ruby", ".java": "text/x-java",
	".parquet": "application/vnd.apache.parquet",
}

// detectFileMIMEType determines the MIME type from a path's extension.
// Files without an extension (README, LICENSE, Makefile) are text/plain.
func detectFileMIMEType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return "text/plain"
	}

	// Checked first: Go's table maps .ts to video/mp2t.
	if t, ok := extMIMETypes[ext]; ok {
		return t
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		if idx := strings.Index(mimeType, ";"); idx != -1 {
			mimeType = strings.TrimSpace(mimeType[:idx])
		}
		return mimeType
	}
	return "application/octet-stream"
}
