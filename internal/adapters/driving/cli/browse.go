package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driving/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse [data-source-id]",
	Short: "Browse stored nodes in an interactive terminal UI",
	Long: `Browse the folder hierarchy of the stored data sources.

Without an argument the browser starts at the data source list.

Controls:
  ↑/k, ↓/j     Move
  enter        Enter a folder or show a leaf
  i            Show the selected node
  esc          Back
  r            Reload
  q            Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if nodeService == nil {
		return errors.New("node service not configured")
	}

	app, err := tui.NewApp(&tui.Ports{Node: nodeService})
	if err != nil {
		return fmt.Errorf("failed to create browser: %w", err)
	}
	app.WithContext(cmd.Context())
	if len(args) == 1 {
		app.WithDataSource(args[0])
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("browser error: %w", err)
	}
	return nil
}
