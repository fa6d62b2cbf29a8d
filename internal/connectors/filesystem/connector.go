package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-nodes/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.NodeConnector = (*Connector)(nil)

// ConnectorType is the identifier reported by Type.
const ConnectorType = "filesystem"

// Options tunes how entries are classified.
type Options struct {
	// IncludeHidden emits entries whose name starts with a dot.
	IncludeHidden bool

	// TableExtensions lists lower-case extensions (with leading dot) that
	// map to domain.NodeTypeTable. Nil means domain.DefaultTableExtensions.
	TableExtensions []string
}

// Connector discovers the files and directories below a root directory.
// The root is the data source and is never emitted itself.
type Connector struct {
	dataSourceID string
	rootPath     string
	opts         Options
	tableExts    map[string]struct{}

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a filesystem connector for rootPath.
func New(dataSourceID, rootPath string, opts Options) *Connector {
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
		rootPath:     rootPath,
		opts:         opts,
		tableExts:    tableExts,
	}
}

// Type returns "filesystem".
func (c *Connector) Type() string { return ConnectorType }

// DataSourceID returns the data source the emitted nodes belong to.
func (c *Connector) DataSourceID() string { return c.dataSourceID }

// RootPath returns the directory being scanned.
func (c *Connector) RootPath() string { return c.rootPath }

// Validate checks that the root path exists and is a readable directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(c.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root path does not exist: %s", c.rootPath)
		}
		return fmt.Errorf("cannot access root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path is not a directory: %s", c.rootPath)
	}

	f, err := os.Open(c.rootPath)
	if err != nil {
		return fmt.Errorf("cannot read root path: %w", err)
	}
	return f.Close()
}

// Discover walks the root directory and emits a node for every entry.
// Unreadable entries are reported on the error channel and skipped.
func (c *Connector) Discover(ctx context.Context) (<-chan domain.Node, <-chan error) {
	nodes := make(chan domain.Node, 100)
	errs := make(chan error, 10)

	go func() {
		defer close(nodes)
		defer close(errs)

		walkErr := filepath.WalkDir(c.rootPath, func(p string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			nodeID, ok := NodeID(c.rootPath, p)
			if err != nil {
				if !ok {
					// The root itself failed.
					return err
				}
				c.report(ctx, errs, fmt.Errorf("%s: %w", nodeID, err))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !ok {
				return nil
			}

			if !c.opts.IncludeHidden && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				c.report(ctx, errs, fmt.Errorf("%s: %w", nodeID, err))
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case nodes <- c.nodeFor(nodeID, info):
			}
			return nil
		})

		if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
			c.report(ctx, errs, fmt.Errorf("walking %s: %w", c.rootPath, walkErr))
		}
	}()

	return nodes, errs
}

// Watch emits node changes until ctx is cancelled or the connector is closed.
// Newly created directories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.NodeChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, domain.ErrConnectorClosed)
	}

	if _, err := os.Stat(c.rootPath); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := c.addWatches(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.NodeChange, 100)

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				batch := []domain.NodeChange{*change}
				if change.Type == domain.NodeCreated && change.Node.Type() == domain.NodeTypeFolder {
					if err := c.addWatches(watcher, event.Name); err != nil {
						logger.Warn("Cannot watch %s: %v", event.Name, err)
					}
					// A directory moved in arrives with its contents.
					batch = append(batch, c.createdBelow(event.Name)...)
				}
				for _, ch := range batch {
					select {
					case <-ctx.Done():
						return
					case changes <- ch:
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}

// Close stops any running watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

// addWatches registers dir and every visible directory below it.
func (c *Connector) addWatches(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != c.rootPath && !c.opts.IncludeHidden && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// createdBelow returns a NodeCreated change for every visible entry below dir.
func (c *Connector) createdBelow(dir string) []domain.NodeChange {
	var created []domain.NodeChange
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == dir {
			return nil
		}
		if !c.opts.IncludeHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		nodeID, ok := NodeID(c.rootPath, p)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		created = append(created, domain.NodeChange{Type: domain.NodeCreated, Node: c.nodeFor(nodeID, info)})
		return nil
	})
	return created
}

// handleFsEvent maps an fsnotify event to a node change.
// Returns nil for events that do not change a visible node.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.NodeChange {
	nodeID, ok := NodeID(c.rootPath, event.Name)
	if !ok {
		return nil
	}
	if !c.opts.IncludeHidden && isHidden(nodeID) {
		return nil
	}

	var changeType domain.NodeChangeType
	switch {
	case event.Has(fsnotify.Create):
		changeType = domain.NodeCreated
	case event.Has(fsnotify.Write):
		changeType = domain.NodeUpdated
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// Only the key of a deleted node is meaningful. Stored nodes below a
		// removed directory are dropped with it by the sync orchestrator.
		return &domain.NodeChange{
			Type: domain.NodeDeleted,
			Node: domain.NewNode(c.dataSourceID, nodeID, 0, 0, path.Base(nodeID), "", parentsOf(nodeID)),
		}
	default:
		return nil
	}

	info, err := os.Lstat(event.Name)
	if err != nil {
		// Gone before we could look at it; a Remove event follows.
		return nil
	}
	if changeType == domain.NodeUpdated && info.IsDir() {
		return nil
	}

	return &domain.NodeChange{Type: changeType, Node: c.nodeFor(nodeID, info)}
}

// nodeFor builds the snapshot of one entry.
func (c *Connector) nodeFor(nodeID string, info fs.FileInfo) domain.Node {
	nodeType := domain.NodeTypeDocument
	mimeType := ""
	switch {
	case info.IsDir():
		nodeType = domain.NodeTypeFolder
	default:
		if _, ok := c.tableExts[strings.ToLower(path.Ext(nodeID))]; ok {
			nodeType = domain.NodeTypeTable
		}
		mimeType = detectMIMEType(info.Name())
	}

	var timestamp uint64
	if ms := info.ModTime().UnixMilli(); ms > 0 {
		timestamp = uint64(ms)
	}

	return domain.NewNode(c.dataSourceID, nodeID, nodeType, timestamp,
		info.Name(), mimeType, parentsOf(nodeID))
}

func (c *Connector) report(ctx context.Context, errs chan<- error, err error) {
	logger.Debug("Discover: %v", err)
	select {
	case <-ctx.Done():
	case errs <- err:
	}
}

// mimeFallbacks covers extensions the platform MIME tables often miss.
var mimeFallbacks = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":      "application/vnd.ms-excel",
	".ods":      "application/vnd.oasis.opendocument.spreadsheet",
	".parquet":  "application/vnd.apache.parquet",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".sh":       "text/x-shellscript",
	".sql":      "text/x-sql",
}

// detectMIMEType returns the MIME type for a file name without parameters.
// Unknown extensions map to application/octet-stream.
func detectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if mt, ok := mimeFallbacks[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		return mt
	}
	return "application/octet-stream"
}

// isHidden reports whether any element of a slash or OS path starts with a
// dot. "." and ".." are not hidden.
func isHidden(p string) bool {
	for _, part := range strings.FieldsFunc(filepath.ToSlash(p), func(r rune) bool { return r == '/' }) {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
