// Package browser walks the folder hierarchy of one data source.
package browser

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
)

// chromeLines is the number of rows taken by the title and help footer.
const chromeLines = 5

// View lists the children of the current folder. At the top level it lists
// the roots of the data source together with nodes whose parent is missing.
type View struct {
	styles      *styles.Styles
	keys        *keymap.KeyMap
	nodeService driving.NodeService

	dataSourceID string
	nodes        []domain.Node
	hierarchy    *domain.Hierarchy

	// trail holds the folders entered so far, outermost first.
	trail    []domain.Node
	entries  []domain.Node
	selected int
	offset   int

	width   int
	height  int
	loading bool
	err     error
}

// NewView creates a new browser view.
func NewView(s *styles.Styles, keys *keymap.KeyMap, nodeService driving.NodeService) *View {
	return &View{
		styles:      s,
		keys:        keys,
		nodeService: nodeService,
		hierarchy:   domain.NewHierarchy(nil),
	}
}

// SetSource switches to a data source and starts loading its nodes.
func (v *View) SetSource(dataSourceID string) tea.Cmd {
	v.dataSourceID = dataSourceID
	v.nodes = nil
	v.hierarchy = domain.NewHierarchy(nil)
	v.trail = nil
	v.entries = nil
	v.selected = 0
	v.offset = 0
	v.err = nil
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	dataSourceID := v.dataSourceID
	return func() tea.Msg {
		if v.nodeService == nil {
			return messages.NodesLoaded{DataSourceID: dataSourceID, Err: fmt.Errorf("node service not available")}
		}
		nodes, err := v.nodeService.List(context.Background(), dataSourceID)
		return messages.NodesLoaded{DataSourceID: dataSourceID, Nodes: nodes, Err: err}
	}
}

// Update handles messages for the browser view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.NodesLoaded:
		if msg.DataSourceID != v.dataSourceID {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.nodes = msg.Nodes
			v.hierarchy = domain.NewHierarchy(msg.Nodes)
			v.restoreTrail()
			v.refresh()
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg, v.keys.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(msg, v.keys.Down):
		if v.selected < len(v.entries)-1 {
			v.selected++
		}
	case keymap.Matches(msg, v.keys.Open):
		node, ok := v.Selected()
		if !ok {
			return v, nil
		}
		if node.Type().IsLeaf() {
			return v, v.selectNode(node)
		}
		v.trail = append(v.trail, node)
		v.refresh()
	case keymap.Matches(msg, v.keys.Details):
		if node, ok := v.Selected(); ok {
			return v, v.selectNode(node)
		}
	case keymap.Matches(msg, v.keys.Back):
		if len(v.trail) == 0 {
			return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewSources} }
		}
		left := v.trail[len(v.trail)-1]
		v.trail = v.trail[:len(v.trail)-1]
		v.refresh()
		v.selectKey(left.Key())
	case keymap.Matches(msg, v.keys.Reload):
		v.loading = true
		return v, v.load()
	}
	v.scroll()
	return v, nil
}

func (v *View) selectNode(node domain.Node) tea.Cmd {
	path, err := v.hierarchy.Path(node.Key())
	if err != nil {
		path = []string{node.Title()}
	}
	return func() tea.Msg { return messages.NodeSelected{Node: node, Path: path} }
}

// refresh recomputes the entries of the current folder.
func (v *View) refresh() {
	if len(v.trail) == 0 {
		v.entries = v.topLevel()
	} else {
		v.entries = v.hierarchy.Children(v.trail[len(v.trail)-1].Key())
	}
	v.selected = 0
	v.offset = 0
}

func (v *View) topLevel() []domain.Node {
	var out []domain.Node
	for _, n := range v.nodes {
		parentID, ok := n.Parent()
		if !ok {
			out = append(out, n)
			continue
		}
		if _, found := v.hierarchy.Get(domain.NodeKey{DataSourceID: n.DataSourceID(), NodeID: parentID}); !found {
			out = append(out, n)
		}
	}
	return out
}

// restoreTrail keeps the folders that still exist after a reload.
func (v *View) restoreTrail() {
	for i, folder := range v.trail {
		if _, ok := v.hierarchy.Get(folder.Key()); !ok {
			v.trail = v.trail[:i]
			return
		}
	}
}

func (v *View) selectKey(key domain.NodeKey) {
	for i, n := range v.entries {
		if n.Key() == key {
			v.selected = i
			v.scroll()
			return
		}
	}
}

// scroll keeps the selected row inside the visible window.
func (v *View) scroll() {
	rows := v.visibleRows()
	if v.selected < v.offset {
		v.offset = v.selected
	}
	if v.selected >= v.offset+rows {
		v.offset = v.selected - rows + 1
	}
}

func (v *View) visibleRows() int {
	if v.height <= chromeLines {
		return len(v.entries) + 1
	}
	return v.height - chromeLines
}

// View renders the browser view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(v.dataSourceID))
	for _, folder := range v.trail {
		b.WriteString(v.styles.Muted.Render(" / "))
		b.WriteString(v.styles.Subtitle.Render(folder.Title()))
	}
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading nodes..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.entries) == 0:
		b.WriteString(v.styles.Muted.Render("Empty."))
	default:
		end := min(v.offset+v.visibleRows(), len(v.entries))
		for i := v.offset; i < end; i++ {
			b.WriteString(v.renderEntry(i))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine(
		v.keys.Open, v.keys.Details, v.keys.Back, v.keys.Reload, v.keys.Quit)))
	return b.String()
}

func (v *View) renderEntry(i int) string {
	n := v.entries[i]
	title := n.Title()
	if title == "" {
		title = n.NodeID()
	}
	if !n.Type().IsLeaf() {
		title += "/"
	}

	if i == v.selected {
		return "> " + v.styles.NodeType(n.Type()) + v.styles.Selected.Render(title)
	}
	return "  " + v.styles.NodeType(n.Type()) + v.styles.Normal.Render(title)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.scroll()
}

// Selected returns the highlighted node.
func (v *View) Selected() (domain.Node, bool) {
	if v.selected < 0 || v.selected >= len(v.entries) {
		return domain.Node{}, false
	}
	return v.entries[v.selected], true
}

// Entries returns the nodes listed in the current folder.
func (v *View) Entries() []domain.Node {
	return v.entries
}

// Trail returns the folders entered so far, outermost first.
func (v *View) Trail() []domain.Node {
	return v.trail
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
