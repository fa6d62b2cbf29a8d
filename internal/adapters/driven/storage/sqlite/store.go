package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
)

// DatabaseFile is the file name of the node database inside the data directory.
const DatabaseFile = "nodes.db"

// Store is a SQLite-based driven.NodeStore.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.NodeStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-nodes/data/nodes.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-nodes", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending up migrations and records their versions.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_nodes.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Node Store ====================

const upsertNode = `
	INSERT INTO nodes (data_source_id, node_id, node_type, timestamp, title, mime_type, parents, parent_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(data_source_id, node_id) DO UPDATE SET
		node_type = excluded.node_type,
		timestamp = excluded.timestamp,
		title = excluded.title,
		mime_type = excluded.mime_type,
		parents = excluded.parents,
		parent_id = excluded.parent_id,
		stored_at = CURRENT_TIMESTAMP
`

const selectNode = `
	SELECT data_source_id, node_id, node_type, timestamp, title, mime_type, parents
	FROM nodes
`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Save stores or replaces a node.
func (s *Store) Save(ctx context.Context, node domain.Node) error {
	return saveNode(ctx, s.db, node)
}

// SaveBatch stores or replaces several nodes in one transaction.
func (s *Store) SaveBatch(ctx context.Context, nodes []domain.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, node := range nodes {
		if err := saveNode(ctx, tx, node); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a node by key.
func (s *Store) Get(ctx context.Context, key domain.NodeKey) (domain.Node, error) {
	row := s.db.QueryRowContext(ctx, selectNode+" WHERE data_source_id = ? AND node_id = ?",
		key.DataSourceID, key.NodeID)

	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Node{}, domain.ErrNotFound
	}
	return node, err
}

// Delete removes a node.
func (s *Store) Delete(ctx context.Context, key domain.NodeKey) error {
	return deleteNode(ctx, s.db, key)
}

// Replace deletes the row under node's key and inserts node in one
// transaction.
func (s *Store) Replace(ctx context.Context, node domain.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteNode(ctx, tx, node.Key()); err != nil {
		return err
	}
	if err := saveNode(ctx, tx, node); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteBatch removes several nodes in one transaction.
func (s *Store) DeleteBatch(ctx context.Context, keys []domain.NodeKey) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, key := range keys {
		if err := deleteNode(ctx, tx, key); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteTree removes a node and every node whose parents array holds its ID.
func (s *Store) DeleteTree(ctx context.Context, key domain.NodeKey) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM nodes
		WHERE data_source_id = ?
		  AND (node_id = ? OR EXISTS (SELECT 1 FROM json_each(nodes.parents) WHERE json_each.value = ?))
	`, key.DataSourceID, key.NodeID, key.NodeID)
	if err != nil {
		return 0, fmt.Errorf("deleting node tree: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted nodes: %w", err)
	}
	return int(n), nil
}

// List returns every node of a data source sorted by node ID.
func (s *Store) List(ctx context.Context, dataSourceID string) ([]domain.Node, error) {
	rows, err := s.db.QueryContext(ctx, selectNode+" WHERE data_source_id = ? ORDER BY node_id", dataSourceID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node //nolint:prealloc // size unknown from query
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	return nodes, nil
}

// ListDataSources returns the distinct data source IDs in sorted order.
func (s *Store) ListDataSources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT data_source_id FROM nodes ORDER BY data_source_id")
	if err != nil {
		return nil, fmt.Errorf("querying data sources: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning data source: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating data sources: %w", err)
	}

	return ids, nil
}

// ==================== Helper Functions ====================

func saveNode(ctx context.Context, db execer, node domain.Node) error {
	parents := node.Parents()
	parentsJSON, err := json.Marshal(parents)
	if err != nil {
		return fmt.Errorf("marshalling parents: %w", err)
	}

	var parentID sql.NullString
	if p, ok := node.Parent(); ok {
		parentID = sql.NullString{String: p, Valid: true}
	}

	_, err = db.ExecContext(ctx, upsertNode,
		node.DataSourceID(), node.NodeID(), node.Type().String(),
		int64(node.Timestamp()), //nolint:gosec // bit-cast, reversed in scanNode
		node.Title(), node.MimeType(), string(parentsJSON), parentID)
	if err != nil {
		return fmt.Errorf("saving node: %w", err)
	}
	return nil
}

func deleteNode(ctx context.Context, db execer, key domain.NodeKey) error {
	_, err := db.ExecContext(ctx, "DELETE FROM nodes WHERE data_source_id = ? AND node_id = ?",
		key.DataSourceID, key.NodeID)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNode scans a single node row.
func scanNode(row rowScanner) (domain.Node, error) {
	var (
		dataSourceID, nodeID, typeName string
		timestamp                      int64
		title, mimeType, parentsJSON   string
	)

	if err := row.Scan(&dataSourceID, &nodeID, &typeName, &timestamp,
		&title, &mimeType, &parentsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Node{}, err
		}
		return domain.Node{}, fmt.Errorf("scanning node: %w", err)
	}

	nodeType, err := domain.ParseNodeType(typeName)
	if err != nil {
		return domain.Node{}, fmt.Errorf("node %s/%s: %w", dataSourceID, nodeID, err)
	}

	var parents []string
	if err := json.Unmarshal([]byte(parentsJSON), &parents); err != nil {
		return domain.Node{}, fmt.Errorf("unmarshaling parents: %w", err)
	}

	return domain.NewNode(dataSourceID, nodeID, nodeType,
		uint64(timestamp), //nolint:gosec // reverses the bit-cast in saveNode
		title, mimeType, parents), nil
}
