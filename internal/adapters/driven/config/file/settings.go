package file

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
)

// ReadSettings resolves application settings from a config store, falling
// back to domain.DefaultSettings for anything unset.
func ReadSettings(cs driven.ConfigStore) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	if backend := cs.GetString(domain.SettingStorageBackend); backend != "" {
		settings.Storage.Backend = domain.StorageBackend(strings.ToLower(backend))
		if !settings.Storage.Backend.IsValid() {
			return domain.Settings{}, fmt.Errorf("%w: %s = %q (want %q or %q)", domain.ErrInvalidInput,
				domain.SettingStorageBackend, backend, domain.StorageSQLite, domain.StorageMemory)
		}
	}
	settings.Storage.DataDir = cs.GetString(domain.SettingStorageDataDir)
	settings.Filesystem.IncludeHidden = cs.GetBool(domain.SettingIncludeHidden)
	settings.GitHub.Token = cs.GetString(domain.SettingGitHubToken)
	settings.GitHub.APIURL = cs.GetString(domain.SettingGitHubAPIURL)
	settings.Verbose = cs.GetBool(domain.SettingVerbose)

	if exts := cs.GetStringSlice(domain.SettingTableExtensions); len(exts) > 0 {
		settings.Filesystem.TableExtensions = normaliseExtensions(exts)
	}

	return settings, nil
}

// normaliseExtensions lower-cases extensions and ensures a leading dot.
func normaliseExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
