package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageBackend_IsValid(t *testing.T) {
	tests := []struct {
		backend StorageBackend
		valid   bool
	}{
		{StorageSQLite, true},
		{StorageMemory, true},
		{StorageBackend("postgres"), false},
		{StorageBackend(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.backend.IsValid())
		})
	}
}

func TestStorageBackend_Description(t *testing.T) {
	assert.Equal(t, "SQLite (persistent)", StorageSQLite.Description())
	assert.Equal(t, "Memory (discarded on exit)", StorageMemory.Description())
	assert.Equal(t, "Unknown", StorageBackend("x").Description())
	assert.Equal(t, "sqlite", StorageSQLite.String())
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, StorageSQLite, s.Storage.Backend)
	assert.Empty(t, s.Storage.DataDir)
	assert.False(t, s.Filesystem.IncludeHidden)
	assert.Equal(t, DefaultTableExtensions, s.Filesystem.TableExtensions)
	assert.False(t, s.Verbose)

	// Callers may modify their copy without affecting the defaults.
	s.Filesystem.TableExtensions[0] = ".changed"
	assert.Equal(t, ".csv", DefaultTableExtensions[0])
}
