package filesystem

import (
	"path"
	"path/filepath"
	"strings"
)

// NodeID converts an absolute path below rootPath into a node ID: the
// slash-separated path relative to the root. The second result is false for
// the root itself and for paths outside it.
func NodeID(rootPath, absPath string) (string, bool) {
	rel, err := filepath.Rel(rootPath, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ResolvePath converts a node ID back to a local path under rootPath.
// Accepts file:// URIs as well as bare IDs.
func ResolvePath(rootPath, nodeID string) string {
	nodeID = strings.TrimPrefix(nodeID, "file://")
	if filepath.IsAbs(nodeID) {
		return nodeID
	}
	return filepath.Join(rootPath, filepath.FromSlash(nodeID))
}

// parentsOf lists the ancestor IDs of a node ID, nearest first.
// "a/b/c.txt" yields ["a/b", "a"]; top-level entries have none.
func parentsOf(nodeID string) []string {
	var parents []string
	for dir := path.Dir(nodeID); dir != "." && dir != "/"; dir = path.Dir(dir) {
		parents = append(parents, dir)
	}
	return parents
}
