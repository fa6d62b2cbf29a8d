// Package detail renders every field of one node.
package detail

import (
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

// maxTimestampMillis is the largest timestamp rendered as a date.
const maxTimestampMillis = 1 << 62

// View shows a single node.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap

	node  domain.Node
	path  []string
	width int
}

// NewView creates a new detail view.
func NewView(s *styles.Styles, keys *keymap.KeyMap) *View {
	return &View{styles: s, keys: keys}
}

// SetNode replaces the node being shown.
func (v *View) SetNode(node domain.Node, path []string) {
	v.node = node
	v.path = path
}

// Node returns the node being shown.
func (v *View) Node() domain.Node {
	return v.node
}

// Update handles messages for the detail view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && keymap.Matches(msg, v.keys.Back) {
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewBrowser} }
	}
	return v, nil
}

// View renders the detail view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(strings.Join(v.path, " / ")))
	b.WriteString("\n\n")

	parents := strings.Join(v.node.Parents(), ", ")
	if parents == "" {
		parents = "(root)"
	}
	mimeType := v.node.MimeType()
	if mimeType == "" {
		mimeType = "-"
	}

	var fields strings.Builder
	for i, row := range [][2]string{
		{"Data source", v.node.DataSourceID()},
		{"Node ID", v.node.NodeID()},
		{"Type", v.node.Type().String()},
		{"Title", v.node.Title()},
		{"MIME type", mimeType},
		{"Modified", formatTimestamp(v.node.Timestamp())},
		{"Parents", parents},
	} {
		if i > 0 {
			fields.WriteString("\n")
		}
		fields.WriteString(v.styles.Label.Render(row[0]))
		fields.WriteString(row[1])
	}
	panel := v.styles.Panel
	if v.width > 4 {
		panel = panel.MaxWidth(v.width)
	}
	b.WriteString(panel.Render(fields.String()))

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine(v.keys.Back, v.keys.Quit)))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, _ int) {
	v.width = width
}

func formatTimestamp(ms uint64) string {
	if ms > maxTimestampMillis {
		return strconv.FormatUint(ms, 10)
	}
	return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339) + " (" + strconv.FormatUint(ms, 10) + ")"
}
