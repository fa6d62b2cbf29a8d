package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/services"
)

// writeTree creates files (and their directories) below root.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("content"), 0o644))
	}
}

// collect drains Discover into a map keyed by node ID.
func collect(t *testing.T, c *Connector) (map[string]domain.Node, []error) {
	t.Helper()

	nodesCh, errsCh := c.Discover(context.Background())
	nodes := make(map[string]domain.Node)
	var errs []error
	for nodesCh != nil || errsCh != nil {
		select {
		case n, ok := <-nodesCh:
			if !ok {
				nodesCh = nil
				continue
			}
			nodes[n.NodeID()] = n
		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			errs = append(errs, err)
		}
	}
	return nodes, errs
}

func TestNew(t *testing.T) {
	t.Run("creates connector with valid parameters", func(t *testing.T) {
		connector := New("test-source-123", "/tmp/test", Options{})

		require.NotNil(t, connector)
		assert.Equal(t, "test-source-123", connector.DataSourceID())
		assert.Equal(t, "/tmp/test", connector.RootPath())
		assert.Equal(t, "filesystem", connector.Type())
	})

	t.Run("defaults table extensions", func(t *testing.T) {
		connector := New("ds", "/tmp", Options{})

		for _, ext := range domain.DefaultTableExtensions {
			assert.Contains(t, connector.tableExts, ext)
		}
	})

	t.Run("custom table extensions replace defaults", func(t *testing.T) {
		connector := New("ds", "/tmp", Options{TableExtensions: []string{".NUMBERS"}})

		assert.Contains(t, connector.tableExts, ".numbers")
		assert.NotContains(t, connector.tableExts, ".csv")
	})
}

func TestConnector_Discover(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"readme.md",
		"reports/2024/q1.csv",
		"reports/2024/summary.pdf",
		"reports/data.XLSX",
		".git/config",
		"notes/.draft.txt",
	)

	nodes, errs := collect(t, New("ds", root, Options{}))

	assert.Empty(t, errs)
	assert.ElementsMatch(t,
		[]string{"readme.md", "reports", "reports/2024", "reports/2024/q1.csv",
			"reports/2024/summary.pdf", "reports/data.XLSX", "notes"},
		keys(nodes))

	t.Run("folders", func(t *testing.T) {
		n := nodes["reports/2024"]
		assert.Equal(t, domain.NodeTypeFolder, n.Type())
		assert.Equal(t, "2024", n.Title())
		assert.Empty(t, n.MimeType())
		assert.Equal(t, []string{"reports"}, n.Parents())
		assert.True(t, nodes["reports"].IsRoot())
	})

	t.Run("tables", func(t *testing.T) {
		assert.Equal(t, domain.NodeTypeTable, nodes["reports/2024/q1.csv"].Type())
		assert.Equal(t, "text/csv", nodes["reports/2024/q1.csv"].MimeType())
		assert.Equal(t, domain.NodeTypeTable, nodes["reports/data.XLSX"].Type())
	})

	t.Run("documents", func(t *testing.T) {
		n := nodes["reports/2024/summary.pdf"]
		assert.Equal(t, domain.NodeTypeDocument, n.Type())
		assert.Equal(t, "application/pdf", n.MimeType())
		assert.Equal(t, []string{"reports/2024", "reports"}, n.Parents())
		assert.Equal(t, "summary.pdf", n.Title())
		assert.Equal(t, "ds", n.DataSourceID())
	})

	t.Run("every node is valid", func(t *testing.T) {
		for id, n := range nodes {
			assert.NoError(t, n.Validate(), id)
		}
	})

	t.Run("timestamp is mtime in milliseconds", func(t *testing.T) {
		mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(filepath.Join(root, "readme.md"), mtime, mtime))

		again, _ := collect(t, New("ds", root, Options{}))
		assert.Equal(t, uint64(mtime.UnixMilli()), again["readme.md"].Timestamp())
	})
}

func TestConnector_Discover_IncludeHidden(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, ".git/config", "visible.txt")

	nodes, errs := collect(t, New("ds", root, Options{IncludeHidden: true}))

	assert.Empty(t, errs)
	assert.ElementsMatch(t, []string{".git", ".git/config", "visible.txt"}, keys(nodes))
}

func TestConnector_Discover_EmptyDirectory(t *testing.T) {
	nodes, errs := collect(t, New("ds", t.TempDir(), Options{}))

	assert.Empty(t, nodes)
	assert.Empty(t, errs)
}

func TestConnector_Discover_MissingRoot(t *testing.T) {
	nodes, errs := collect(t, New("ds", filepath.Join(t.TempDir(), "missing"), Options{}))

	assert.Empty(t, nodes)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "walking")
}

func TestConnector_Discover_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "b.txt", "c/d.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nodesCh, errsCh := New("ds", root, Options{}).Discover(ctx)
	for range nodesCh {
	}
	for err := range errsCh {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConnector_Validate(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T) string
		errorContains string
	}{
		{
			name:  "valid directory succeeds",
			setup: func(t *testing.T) string { return t.TempDir() },
		},
		{
			name: "non-existent path returns error",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
			errorContains: "does not exist",
		},
		{
			name: "file instead of directory returns error",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeTree(t, dir, "file.txt")
				return filepath.Join(dir, "file.txt")
			},
			errorContains: "not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New("ds", tt.setup(t), Options{}).Validate(context.Background())

			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := New("ds", t.TempDir(), Options{}).Validate(ctx)

		assert.Equal(t, context.Canceled, err)
	})
}

func TestConnector_Watch(t *testing.T) {
	waitFor := func(t *testing.T, ch <-chan domain.NodeChange, want domain.NodeChangeType, nodeID string) domain.NodeChange {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case change, ok := <-ch:
				require.True(t, ok, "channel closed")
				if change.Type == want && change.Node.NodeID() == nodeID {
					return change
				}
			case <-deadline:
				t.Fatalf("timeout waiting for %s of %s", want, nodeID)
			}
		}
	}

	t.Run("reports created, updated and deleted files", func(t *testing.T) {
		root := t.TempDir()
		connector := New("ds", root, Options{})
		defer connector.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		file := filepath.Join(root, "new-file.txt")
		require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))
		created := waitFor(t, changes, domain.NodeCreated, "new-file.txt")
		assert.Equal(t, domain.NodeTypeDocument, created.Node.Type())

		require.NoError(t, os.WriteFile(file, []byte("v2"), 0o644))
		waitFor(t, changes, domain.NodeUpdated, "new-file.txt")

		require.NoError(t, os.Remove(file))
		waitFor(t, changes, domain.NodeDeleted, "new-file.txt")
	})

	t.Run("watches new directories", func(t *testing.T) {
		root := t.TempDir()
		connector := New("ds", root, Options{})
		defer connector.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
		folder := waitFor(t, changes, domain.NodeCreated, "sub")
		assert.Equal(t, domain.NodeTypeFolder, folder.Node.Type())

		// Give the watcher a moment to register the new directory.
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "t.csv"), []byte("a,b"), 0o644))
		table := waitFor(t, changes, domain.NodeCreated, "sub/t.csv")
		assert.Equal(t, domain.NodeTypeTable, table.Node.Type())
		assert.Equal(t, []string{"sub"}, table.Node.Parents())
	})

	t.Run("reports the contents of directories moved in and out", func(t *testing.T) {
		root := t.TempDir()
		outside := t.TempDir()
		writeTree(t, outside, "pkg/sub/b.csv", "pkg/a.md", "pkg/.git/HEAD")

		connector := New("ds", root, Options{})
		defer connector.Close()
		store := memory.NewNodeStore()
		orch := services.NewSyncOrchestrator(store)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.Rename(filepath.Join(outside, "pkg"), filepath.Join(root, "pkg")))
		for _, id := range []string{"pkg", "pkg/a.md", "pkg/sub", "pkg/sub/b.csv"} {
			change := waitFor(t, changes, domain.NodeCreated, id)
			_, err := orch.ApplyChange(ctx, change)
			require.NoError(t, err)
		}

		ancestors, err := services.NewNodeService(store).Ancestors(ctx,
			domain.NodeKey{DataSourceID: "ds", NodeID: "pkg/sub/b.csv"})
		require.NoError(t, err)
		assert.Len(t, ancestors, 2)

		require.NoError(t, os.Rename(filepath.Join(root, "pkg"), filepath.Join(outside, "moved")))
		deleted := waitFor(t, changes, domain.NodeDeleted, "pkg")
		_, err = orch.ApplyChange(ctx, deleted)
		require.NoError(t, err)

		nodes, err := store.List(ctx, "ds")
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		connector := New("ds", "/non/existent/path", Options{})

		changes, err := connector.Watch(context.Background())

		assert.Error(t, err)
		assert.Nil(t, changes)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		connector := New("ds", t.TempDir(), Options{})
		defer connector.Close()
		ctx, cancel := context.WithCancel(context.Background())

		changes, err := connector.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-changes:
			if ok {
				for range changes {
				}
			}
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("returns error when connector is closed", func(t *testing.T) {
		connector := New("ds", t.TempDir(), Options{})
		require.NoError(t, connector.Close())

		changes, err := connector.Watch(context.Background())

		assert.ErrorIs(t, err, domain.ErrConnectorClosed)
		assert.Nil(t, changes)
	})
}

func TestConnector_Close(t *testing.T) {
	connector := New("ds", "/tmp/test", Options{})

	assert.NoError(t, connector.Close())
	assert.NoError(t, connector.Close())

	// Basic accessors still work after close
	assert.Equal(t, "filesystem", connector.Type())
	assert.Equal(t, "ds", connector.DataSourceID())
}

// TestHandleFsEvent tests the mapping from fsnotify events to node changes.
func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name           string
		setupFile      bool
		setupDir       bool
		setupHidden    bool
		operation      fsnotify.Op
		expectedChange bool
		expectedType   domain.NodeChangeType
	}{
		{"create file event", true, false, false, fsnotify.Create, true, domain.NodeCreated},
		{"write file event", true, false, false, fsnotify.Write, true, domain.NodeUpdated},
		{"remove file event", false, false, false, fsnotify.Remove, true, domain.NodeDeleted},
		{"rename file event", false, false, false, fsnotify.Rename, true, domain.NodeDeleted},
		{"chmod file event - not handled", true, false, false, fsnotify.Chmod, false, 0},
		{"create directory event", false, true, false, fsnotify.Create, true, domain.NodeCreated},
		{"write directory event - ignored", false, true, false, fsnotify.Write, false, 0},
		{"hidden file create - skipped", false, false, true, fsnotify.Create, false, 0},
		{"hidden file remove - skipped", false, false, true, fsnotify.Remove, false, 0},
		{"create of vanished file - skipped", false, false, false, fsnotify.Create, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()

			var eventPath string
			switch {
			case tt.setupDir:
				eventPath = filepath.Join(tempDir, "testdir")
				require.NoError(t, os.Mkdir(eventPath, 0o755))
			case tt.setupHidden:
				eventPath = filepath.Join(tempDir, ".hidden.txt")
				if tt.operation != fsnotify.Remove {
					require.NoError(t, os.WriteFile(eventPath, []byte("hidden"), 0o644))
				}
			case tt.setupFile:
				eventPath = filepath.Join(tempDir, "test.txt")
				require.NoError(t, os.WriteFile(eventPath, []byte("content"), 0o644))
			default:
				eventPath = filepath.Join(tempDir, "removed.txt")
			}

			connector := New("test-source", tempDir, Options{})
			change := connector.handleFsEvent(fsnotify.Event{Name: eventPath, Op: tt.operation})

			if !tt.expectedChange {
				assert.Nil(t, change, "expected no change but got one")
				return
			}
			require.NotNil(t, change, "expected change but got nil")
			assert.Equal(t, tt.expectedType, change.Type)
			assert.Equal(t, filepath.Base(eventPath), change.Node.NodeID())
			assert.Equal(t, "test-source", change.Node.DataSourceID())
		})
	}

	t.Run("combined operations", func(t *testing.T) {
		tempDir := t.TempDir()
		writeTree(t, tempDir, "test.txt")

		connector := New("test-source", tempDir, Options{})
		change := connector.handleFsEvent(fsnotify.Event{
			Name: filepath.Join(tempDir, "test.txt"),
			Op:   fsnotify.Write | fsnotify.Chmod,
		})

		require.NotNil(t, change)
		assert.Equal(t, domain.NodeUpdated, change.Type)
	})

	t.Run("event for the root is ignored", func(t *testing.T) {
		tempDir := t.TempDir()
		connector := New("test-source", tempDir, Options{})

		assert.Nil(t, connector.handleFsEvent(fsnotify.Event{Name: tempDir, Op: fsnotify.Write}))
	})
}

// TestDetectMIMEType tests MIME detection by extension.
func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		filename     string
		expectedMIME string
	}{
		{"file", "application/octet-stream"},
		{"doc.md", "text/markdown"},
		{"doc.markdown", "text/markdown"},
		{"code.go", "text/x-go"},
		{"script.py", "text/x-python"},
		{"config.yaml", "text/yaml"},
		{"config.toml", "text/toml"},
		{"data.csv", "text/csv"},
		{"data.tsv", "text/tab-separated-values"},
		{"sheet.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"data.json", "application/json"},
		{"doc.pdf", "application/pdf"},
		{"image.png", "image/png"},
		{"file.zzzzunknown", "application/octet-stream"},
		{"FILE.MD", "text/markdown"},
		{"File.Yaml", "text/yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expectedMIME, detectMIMEType(tt.filename))
		})
	}

	t.Run("strips parameters", func(t *testing.T) {
		for _, file := range []string{"file.html", "file.css", "file.js"} {
			mimeType := detectMIMEType(file)
			assert.NotContains(t, mimeType, "charset")
			assert.NotContains(t, mimeType, ";")
		}
	})
}

// TestIsHidden tests the isHidden function with various path scenarios.
func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{"/home/user/.ssh/id_rsa", true},
		{".config/.cache/data", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/./file", false},
		{"", false},
		{"/", false},
		{"file.hidden", false},
		{"directory.name/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func keys(m map[string]domain.Node) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
