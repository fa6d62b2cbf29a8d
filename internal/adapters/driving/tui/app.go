package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/views/browser"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/views/detail"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui/views/sources"
)

// App is the browser application following the Elm architecture.
type App struct {
	ports *Ports
	ctx   context.Context
	keys  *keymap.KeyMap

	sourcesView *sources.View
	browserView *browser.View
	detailView  *detail.View

	// startSource opens the browser directly when set.
	startSource string

	currentView messages.ViewType
	ready       bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new browser application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	keys := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		keys:        keys,
		sourcesView: sources.NewView(s, keys, ports.Node),
		browserView: browser.NewView(s, keys, ports.Node),
		detailView:  detail.NewView(s, keys),
		currentView: messages.ViewSources,
	}, nil
}

// WithContext sets the context the program runs under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithDataSource opens the browser on a data source instead of the picker.
func (a *App) WithDataSource(dataSourceID string) *App {
	a.startSource = dataSourceID
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	title := tea.SetWindowTitle("sercha-nodes")
	if a.startSource != "" {
		a.currentView = messages.ViewBrowser
		return tea.Batch(title, a.browserView.SetSource(a.startSource))
	}
	return tea.Batch(title, a.sourcesView.Init())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.ready = true
		a.sourcesView.SetDimensions(msg.Width, msg.Height)
		a.browserView.SetDimensions(msg.Width, msg.Height)
		a.detailView.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		switch a.currentView {
		case messages.ViewSources:
			a.sourcesView, cmd = a.sourcesView.Update(msg)
		case messages.ViewBrowser:
			a.browserView, cmd = a.browserView.Update(msg)
		case messages.ViewDetail:
			a.detailView, cmd = a.detailView.Update(msg)
		}
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewSources {
			return a, a.sourcesView.Init()
		}
		return a, nil

	case messages.SourcesLoaded:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		return a, cmd

	case messages.SourceSelected:
		a.currentView = messages.ViewBrowser
		return a, a.browserView.SetSource(msg.DataSourceID)

	case messages.NodesLoaded:
		a.browserView, cmd = a.browserView.Update(msg)
		return a, cmd

	case messages.NodeSelected:
		a.detailView.SetNode(msg.Node, msg.Path)
		a.currentView = messages.ViewDetail
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewBrowser:
		return a.browserView.View()
	case messages.ViewDetail:
		return a.detailView.View()
	default:
		return a.sourcesView.View()
	}
}

// Run starts the application and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}
