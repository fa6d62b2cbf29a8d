package github

import (
	"fmt"
	"path"
	"strings"
)

// ParseRepository splits "owner/repo" into its parts. A github.com URL
// and a trailing ".git" are accepted too.
func ParseRepository(s string) (owner, repo string, err error) {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "github.com/"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepository, s)
	}
	return parts[0], parts[1], nil
}

// parentsOf lists the ancestor paths of a tree path, nearest first.
func parentsOf(p string) []string {
	var parents []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		parents = append(parents, dir)
	}
	return parents
}
