package domain

// StorageBackend selects where node snapshots are kept.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite persists nodes in a SQLite database file.
	StorageSQLite StorageBackend = "sqlite"

	// StorageMemory keeps nodes in process memory only.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StorageMemory
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageSQLite:
		return "SQLite (persistent)"
	case StorageMemory:
		return "Memory (discarded on exit)"
	default:
		return "Unknown"
	}
}

// Configuration keys understood by the application.
const (
	SettingStorageBackend  = "storage.backend"
	SettingStorageDataDir  = "storage.data_dir"
	SettingIncludeHidden   = "filesystem.include_hidden"
	SettingTableExtensions = "filesystem.table_extensions"
	SettingGitHubToken     = "github.token"
	SettingGitHubAPIURL    = "github.api_url"
	SettingVerbose         = "log.verbose"
)

// DefaultTableExtensions lists the file extensions classified as tables.
var DefaultTableExtensions = []string{".csv", ".tsv", ".xlsx", ".xls", ".ods", ".parquet"}

// Settings is the resolved application configuration.
type Settings struct {
	// Storage selects and locates the node store.
	Storage StorageSettings

	// Filesystem tunes the filesystem connector.
	Filesystem FilesystemSettings

	// GitHub configures the GitHub repository connector.
	GitHub GitHubSettings

	// Verbose enables debug logging.
	Verbose bool
}

// StorageSettings configures the node store.
type StorageSettings struct {
	// Backend is the store implementation.
	Backend StorageBackend

	// DataDir is the SQLite data directory. Empty means the default location.
	DataDir string
}

// FilesystemSettings configures the filesystem connector.
type FilesystemSettings struct {
	// IncludeHidden emits entries whose name starts with a dot.
	IncludeHidden bool

	// TableExtensions are lower-case extensions, with the dot, that are
	// classified as NodeTypeTable.
	TableExtensions []string
}

// GitHubSettings configures the GitHub repository connector.
type GitHubSettings struct {
	// Token is a personal access token. Public repositories need none.
	Token string

	// APIURL overrides the API root for GitHub Enterprise.
	APIURL string
}

// DefaultSettings returns the configuration used when nothing is set.
func DefaultSettings() Settings {
	return Settings{
		Storage: StorageSettings{Backend: StorageSQLite},
		Filesystem: FilesystemSettings{
			TableExtensions: append([]string(nil), DefaultTableExtensions...),
		},
	}
}
