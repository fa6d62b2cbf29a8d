// Package cli provides the cobra command tree for sercha-nodes.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-nodes/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-nodes/internal/core/services"
	"github.com/custodia-labs/sercha-nodes/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Flags shared by every command.
var (
	verbose   bool
	configDir string
)

// Services wired by initServices before a command runs.
var (
	configStore      driven.ConfigStore
	nodeService      driving.NodeService
	syncOrchestrator driving.SyncOrchestrator
	settings         = domain.DefaultSettings()
	closeStore       func() error
)

// initServices wires the services. Tests replace it to inject mocks.
var initServices = wireServices

var rootCmd = &cobra.Command{
	Use:   "sercha-nodes",
	Short: "Discover, store and browse data source nodes",
	Long: `sercha-nodes scans data sources into a hierarchy of nodes (documents,
tables and folders), keeps them in a local store and lets you browse,
import and export them as JSON lines.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initServices(cmd)
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if closeStore == nil {
			return nil
		}
		err := closeStore()
		closeStore = nil
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.sercha-nodes)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// wireServices loads configuration and builds the node store and services.
func wireServices(_ *cobra.Command) error {
	cs, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	resolved, err := file.ReadSettings(cs)
	if err != nil {
		return err
	}
	if resolved.Verbose {
		logger.SetVerbose(true)
	}

	var store driven.NodeStore
	switch resolved.Storage.Backend {
	case domain.StorageMemory:
		store = memory.NewNodeStore()
		closeStore = nil
	default:
		sqliteStore, err := sqlite.NewStore(resolved.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening node store: %w", err)
		}
		logger.Debug("Using node store %s", sqliteStore.Path())
		store = sqliteStore
		closeStore = sqliteStore.Close
	}

	configStore = cs
	settings = resolved
	nodeService = services.NewNodeService(store)
	syncOrchestrator = services.NewSyncOrchestrator(store)
	return nil
}
