package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("storage.backend", "memory"))

	val, ok := store.Get("storage.backend")
	assert.True(t, ok)
	assert.Equal(t, "memory", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("a.string", "hello world"))
	require.NoError(t, store.Set("a.int", 42))
	require.NoError(t, store.Set("a.bool", true))
	require.NoError(t, store.Set("a.list", []string{".csv", ".tsv"}))

	assert.Equal(t, "hello world", store.GetString("a.string"))
	assert.Equal(t, 42, store.GetInt("a.int"))
	assert.True(t, store.GetBool("a.bool"))
	assert.Equal(t, []string{".csv", ".tsv"}, store.GetStringSlice("a.list"))

	// Wrong types and missing keys fall back to zero values
	assert.Equal(t, "", store.GetString("a.int"))
	assert.Equal(t, 0, store.GetInt("a.string"))
	assert.False(t, store.GetBool("a.string"))
	assert.Nil(t, store.GetStringSlice("a.missing"))
}

func TestConfigStore_Persistence_NestedTables(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("storage.backend", "sqlite"))
	require.NoError(t, store1.Set("storage.data_dir", "/var/lib/nodes"))
	require.NoError(t, store1.Set("filesystem.include_hidden", true))
	require.NoError(t, store1.Set("filesystem.table_extensions", []string{".csv"}))
	require.NoError(t, store1.Set("log.verbose", true))

	content, err := os.ReadFile(store1.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "[storage]")
	assert.Contains(t, string(content), "[filesystem]")
	assert.NotContains(t, string(content), `"storage.backend"`)

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", store2.GetString("storage.backend"))
	assert.Equal(t, "/var/lib/nodes", store2.GetString("storage.data_dir"))
	assert.True(t, store2.GetBool("filesystem.include_hidden"))
	assert.Equal(t, []string{".csv"}, store2.GetStringSlice("filesystem.table_extensions"))
	assert.True(t, store2.GetBool("log.verbose"))
}

func TestConfigStore_Load_HandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[storage]
backend = "memory"

[filesystem]
table_extensions = ["csv", ".XLSX"]
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "memory", store.GetString("storage.backend"))
	assert.Equal(t, []string{"csv", ".XLSX"}, store.GetStringSlice("filesystem.table_extensions"))
	assert.Equal(t, []string{"filesystem.table_extensions", "storage.backend"}, store.Keys())
}

func TestConfigStore_Set_RejectsConflicts(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("storage.backend", "sqlite"))

	assert.Error(t, store.Set("storage", "flat"))
	assert.Error(t, store.Set("storage.backend.kind", "x"))
	assert.Error(t, store.Set("", "x"))
	assert.Error(t, store.Set("trailing.", "x"))
}

func TestConfigStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("log.verbose", true))
	require.NoError(t, store.Delete("log.verbose"))
	require.NoError(t, store.Delete("never.set"))

	_, ok := store.Get("log.verbose")
	assert.False(t, ok)

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Keys())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte{}, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := "key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
			_ = store.Keys()
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

// TestNewConfigStore_MkdirAllError tests error handling when directory creation fails
func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

// TestNewConfigStore_LoadCorruptedFile tests error handling when loading corrupted TOML
func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

// TestConfigStore_Save_WriteFileError tests error handling when WriteFile fails
func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory to cause write error
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flattenMap(nested, ""))
}
