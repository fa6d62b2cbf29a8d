// Package sources provides the data source picker.
package sources

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
)

// View lists the stored data sources.
type View struct {
	styles      *styles.Styles
	keys        *keymap.KeyMap
	nodeService driving.NodeService

	dataSources []string
	selected    int
	width       int
	height      int
	err         error
	loading     bool
}

// NewView creates a new sources view.
func NewView(s *styles.Styles, keys *keymap.KeyMap, nodeService driving.NodeService) *View {
	return &View{
		styles:      s,
		keys:        keys,
		nodeService: nodeService,
	}
}

// Init loads the data sources.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	return func() tea.Msg {
		if v.nodeService == nil {
			return messages.SourcesLoaded{Err: fmt.Errorf("node service not available")}
		}
		ids, err := v.nodeService.ListDataSources(context.Background())
		return messages.SourcesLoaded{DataSources: ids, Err: err}
	}
}

// Update handles messages for the sources view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.SourcesLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.dataSources = msg.DataSources
			if v.selected >= len(v.dataSources) {
				v.selected = 0
			}
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
		if v.selected < len(v.dataSources)-1 {
			v.selected++
		}
	case keymap.Matches(msg, v.keys.Open):
		if v.selected < len(v.dataSources) {
			id := v.dataSources[v.selected]
			return v, func() tea.Msg { return messages.SourceSelected{DataSourceID: id} }
		}
	case keymap.Matches(msg, v.keys.Reload):
		return v, v.Init()
	}
	return v, nil
}

// View renders the sources view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Data sources"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading data sources..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.dataSources) == 0:
		b.WriteString(v.styles.Muted.Render("No data sources. Run 'sercha-nodes node scan <path>' first."))
	default:
		for i, id := range v.dataSources {
			if i == v.selected {
				b.WriteString(v.styles.Selected.Render("> " + id))
			} else {
				b.WriteString(v.styles.Normal.Render("  " + id))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render(keymap.HelpLine(v.keys.Open, v.keys.Reload, v.keys.Quit)))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// DataSources returns the loaded data source ids.
func (v *View) DataSources() []string {
	return v.dataSources
}

// SelectedIndex returns the highlighted row.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
