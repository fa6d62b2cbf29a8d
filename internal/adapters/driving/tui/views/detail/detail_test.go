package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

func TestView_RendersFields(t *testing.T) {
	v := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap())
	n := domain.NewNode("ds", "docs/a.md", domain.NodeTypeDocument, 1700000000000,
		"a.md", "text/markdown", []string{"docs"})

	v.SetNode(n, []string{"docs", "a.md"})
	view := v.View()

	assert.Equal(t, n, v.Node())
	assert.Contains(t, view, "docs / a.md")
	assert.Contains(t, view, "docs/a.md")
	assert.Contains(t, view, "Document")
	assert.Contains(t, view, "text/markdown")
	assert.Contains(t, view, "2023-11-14T22:13:20Z (1700000000000)")
}

func TestView_RootFolder(t *testing.T) {
	v := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap())
	v.SetDimensions(60, 20)

	v.SetNode(domain.NewNode("ds", "docs", domain.NodeTypeFolder, 0, "docs", "", nil), []string{"docs"})
	view := v.View()

	assert.Contains(t, view, "(root)")
	assert.Contains(t, view, "MIME type")
	assert.Contains(t, view, "1970-01-01T00:00:00Z")
}

func TestView_BackReturnsToBrowser(t *testing.T) {
	v := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewBrowser}, cmd())

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:00:00Z (0)", formatTimestamp(0))
	assert.Equal(t, "18446744073709551615", formatTimestamp(^uint64(0)))
}
