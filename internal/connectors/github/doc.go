// Package github implements a read-only node connector for one GitHub
// repository.
//
// The connector lists the repository tree at a ref (the default branch when
// none is given) and emits one node per entry:
//
//   - tree entries become Folder nodes
//   - blobs with a table extension (.csv, .tsv, ...) become Table nodes
//   - every other blob becomes a Document node
//
// Submodules are skipped. Node IDs are the slash-separated paths inside the
// repository and parents are listed nearest first, exactly as the filesystem
// connector does for a local checkout. Every node carries the commit time of
// the ref's head commit in milliseconds.
//
// # Authentication
//
// A personal access token is read from the github.token setting. Without
// one, requests are unauthenticated, which works for public repositories at
// GitHub's lower rate limit.
//
// # Rate limiting
//
// Requests pass through a RateLimiter that throttles proactively with a
// token bucket and waits for the reset time once the quota reported by the
// X-RateLimit headers runs low.
package github
