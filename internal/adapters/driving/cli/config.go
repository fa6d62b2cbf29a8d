package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change the settings stored in config.toml.

Keys:
  storage.backend              sqlite (default) or memory
  storage.data_dir             directory for the SQLite database
  filesystem.include_hidden    true to scan entries starting with a dot
  filesystem.table_extensions  comma-separated extensions treated as tables
                               (also used by node scan --github)
  github.token                 access token for node scan --github
  github.api_url               API root for GitHub Enterprise
  log.verbose                  true to always print debug logs`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("File: %s\n", configStore.Path())
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend.Description())
	dataDir := settings.Storage.DataDir
	if dataDir == "" {
		dataDir = "(default)"
	}
	cmd.Printf("  Data dir: %s\n", dataDir)
	cmd.Println()

	cmd.Println("[Filesystem]")
	cmd.Printf("  Include hidden: %t\n", settings.Filesystem.IncludeHidden)
	cmd.Printf("  Table extensions: %s\n", strings.Join(settings.Filesystem.TableExtensions, ", "))
	cmd.Println()

	cmd.Println("[GitHub]")
	token := "(not set)"
	if settings.GitHub.Token != "" {
		token = "(set)"
	}
	cmd.Printf("  Token: %s\n", token)
	apiURL := settings.GitHub.APIURL
	if apiURL == "" {
		apiURL = "(default)"
	}
	cmd.Printf("  API URL: %s\n", apiURL)
	cmd.Println()

	cmd.Println("[Log]")
	cmd.Printf("  Verbose: %t\n", settings.Verbose)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	value, err := parseSettingValue(key, args[1])
	if err != nil {
		return err
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("Set %s = %v\n", key, value)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	if _, err := parseSettingValue(key, ""); errors.Is(err, errUnknownSetting) {
		return err
	}
	if err := configStore.Delete(key); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("Unset %s\n", key)
	return nil
}

var errUnknownSetting = errors.New("unknown setting")

// parseSettingValue converts a command-line value to the type stored for key.
func parseSettingValue(key, raw string) (any, error) {
	switch key {
	case domain.SettingStorageBackend:
		backend := domain.StorageBackend(strings.ToLower(raw))
		if !backend.IsValid() {
			return nil, fmt.Errorf("%w: backend %q (want %q or %q)",
				domain.ErrInvalidInput, raw, domain.StorageSQLite, domain.StorageMemory)
		}
		return backend.String(), nil

	case domain.SettingStorageDataDir, domain.SettingGitHubToken, domain.SettingGitHubAPIURL:
		return raw, nil

	case domain.SettingIncludeHidden, domain.SettingVerbose:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		return b, nil

	case domain.SettingTableExtensions:
		var exts []string
		for _, ext := range strings.Split(raw, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		return exts, nil

	default:
		return nil, fmt.Errorf("%w %q", errUnknownSetting, key)
	}
}
