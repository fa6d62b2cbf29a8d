package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-nodes/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-nodes/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-nodes/internal/connectors/github"
	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-nodes/internal/core/services"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Scan, browse, import and export nodes",
	Long: `Commands for working with nodes: the documents, tables and folders
discovered in a data source.`,
}

var nodeScanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory or GitHub repository into the node store",
	Long: `Walks a directory with the filesystem connector and stores a node for
every file and folder below it. Re-scanning with the same --source-id only
writes nodes that changed, and removes nodes whose entries are gone.

With --github owner/repo the repository tree at --ref (default branch if
omitted) is listed instead. The token comes from the github.token setting
or GITHUB_TOKEN; public repositories need none.

If --source-id is omitted a directory gets a new random ID and a
repository gets github:owner/repo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNodeScan,
}

var nodeWatchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Scan a directory, then keep the store in step with changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeWatch,
}

var nodeListCmd = &cobra.Command{
	Use:   "list [data-source-id]",
	Short: "List nodes of a data source, or the data sources",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNodeList,
}

var nodeGetCmd = &cobra.Command{
	Use:   "get <data-source-id> <node-id>",
	Short: "Show a single node",
	Args:  cobra.ExactArgs(2),
	RunE:  runNodeGet,
}

var nodeAncestorsCmd = &cobra.Command{
	Use:   "ancestors <data-source-id> <node-id>",
	Short: "List the ancestors of a node, nearest first",
	Args:  cobra.ExactArgs(2),
	RunE:  runNodeAncestors,
}

var nodeChildrenCmd = &cobra.Command{
	Use:   "children <data-source-id> <node-id>",
	Short: "List the direct children of a node",
	Args:  cobra.ExactArgs(2),
	RunE:  runNodeChildren,
}

var nodeImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import JSON-lines node records",
	Long: `Reads one JSON node record per line from a file, or stdin when no file is
given. Nothing is stored if any record is malformed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNodeImport,
}

var nodeExportCmd = &cobra.Command{
	Use:   "export <data-source-id>",
	Short: "Export the nodes of a data source as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE:  runNodeExport,
}

var nodeDecodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Check JSON-lines node records without storing them",
	Long: `Decodes every record from a file, or stdin when no file is given, and
reports each malformed one with its line number.`,
	Args: cobra.MaximumNArgs(1),
	// Decoding needs no store.
	PersistentPreRun: func(_ *cobra.Command, _ []string) {},
	RunE:             runNodeDecode,
}

func init() {
	for _, c := range []*cobra.Command{nodeScanCmd, nodeWatchCmd} {
		c.Flags().String("source-id", "", "data source ID")
		c.Flags().Bool("include-hidden", false, "include entries whose name starts with a dot")
	}
	_ = nodeWatchCmd.MarkFlagRequired("source-id")
	nodeScanCmd.Flags().String("github", "", "scan a GitHub repository (owner/repo) instead of a path")
	nodeScanCmd.Flags().String("ref", "", "branch, tag or commit to scan with --github")

	for _, c := range []*cobra.Command{nodeListCmd, nodeGetCmd, nodeAncestorsCmd, nodeChildrenCmd} {
		c.Flags().Bool("json", false, "print JSON records")
	}
	nodeExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	nodeCmd.AddCommand(nodeScanCmd)
	nodeCmd.AddCommand(nodeWatchCmd)
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeGetCmd)
	nodeCmd.AddCommand(nodeAncestorsCmd)
	nodeCmd.AddCommand(nodeChildrenCmd)
	nodeCmd.AddCommand(nodeImportCmd)
	nodeCmd.AddCommand(nodeExportCmd)
	nodeCmd.AddCommand(nodeDecodeCmd)
	rootCmd.AddCommand(nodeCmd)
}

func runNodeScan(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	repository, _ := cmd.Flags().GetString("github")
	var (
		conn   driven.NodeConnector
		target string
	)
	switch {
	case repository != "" && len(args) > 0:
		return errors.New("give either a path or --github, not both")
	case repository != "":
		gc, err := githubConnector(cmd, repository)
		if err != nil {
			return err
		}
		conn, target = gc, gc.Repository()
	case len(args) == 1:
		fc, err := filesystemConnector(cmd, args[0])
		if err != nil {
			return err
		}
		conn, target = fc, fc.RootPath()
	default:
		return errors.New("a path or --github owner/repo is required")
	}
	defer conn.Close()

	cmd.Printf("Scanning %s as data source %s...\n", target, conn.DataSourceID())

	result, err := syncWithProgress(cmd.Context(), cmd, syncOrchestrator, conn)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	printSyncResult(cmd, result)
	return nil
}

func runNodeWatch(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	conn, err := filesystemConnector(cmd, args[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := syncOrchestrator.Sync(ctx, conn)
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	printSyncResult(cmd, result)

	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)...\n", conn.RootPath())

	return applyChanges(ctx, cmd, syncOrchestrator, changes)
}

// applyChanges stores watched changes until the channel closes.
func applyChanges(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	changes <-chan domain.NodeChange,
) error {
	for change := range changes {
		outcome, err := syncOrch.ApplyChange(ctx, change)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			cmd.PrintErrf("%s: %v\n", change.Node.NodeID(), err)
			continue
		}
		if outcome != driving.OutcomeUnchanged {
			cmd.Printf("%-9s %s\n", outcome, change.Node.NodeID())
		}
	}
	return nil
}

func runNodeList(cmd *cobra.Command, args []string) error {
	if nodeService == nil {
		return errors.New("node service not configured")
	}
	ctx := cmd.Context()

	if len(args) == 0 {
		ids, err := nodeService.ListDataSources(ctx)
		if err != nil {
			return fmt.Errorf("listing data sources: %w", err)
		}
		if len(ids) == 0 {
			cmd.Println("No data sources. Run 'sercha-nodes node scan <path>' to add one.")
			return nil
		}
		for _, id := range ids {
			cmd.Println(id)
		}
		return nil
	}

	nodes, err := nodeService.List(ctx, args[0])
	if err != nil {
		return fmt.Errorf("listing nodes: %w", err)
	}
	return printNodes(cmd, nodes, "No nodes found.")
}

func runNodeGet(cmd *cobra.Command, args []string) error {
	if nodeService == nil {
		return errors.New("node service not configured")
	}

	node, err := nodeService.Get(cmd.Context(), domain.NodeKey{DataSourceID: args[0], NodeID: args[1]})
	if err != nil {
		return fmt.Errorf("getting node: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), domain.EncodeNode(node))
	}

	cmd.Printf("Node:        %s\n", node.NodeID())
	cmd.Printf("Data source: %s\n", node.DataSourceID())
	cmd.Printf("Type:        %s\n", node.Type())
	cmd.Printf("Title:       %s\n", node.Title())
	if node.MimeType() != "" {
		cmd.Printf("MIME type:   %s\n", node.MimeType())
	}
	cmd.Printf("Timestamp:   %d (%s)\n", node.Timestamp(), formatMillis(node.Timestamp()))
	if parents := node.Parents(); len(parents) > 0 {
		cmd.Printf("Parents:     %s\n", strings.Join(parents, " < "))
	}
	return nil
}

func runNodeAncestors(cmd *cobra.Command, args []string) error {
	if nodeService == nil {
		return errors.New("node service not configured")
	}

	ancestors, err := nodeService.Ancestors(cmd.Context(), domain.NodeKey{DataSourceID: args[0], NodeID: args[1]})
	if err != nil {
		return fmt.Errorf("resolving ancestors: %w", err)
	}
	return printNodes(cmd, ancestors, "Node is a root.")
}

func runNodeChildren(cmd *cobra.Command, args []string) error {
	if nodeService == nil {
		return errors.New("node service not configured")
	}

	children, err := nodeService.Children(cmd.Context(), domain.NodeKey{DataSourceID: args[0], NodeID: args[1]})
	if err != nil {
		return fmt.Errorf("listing children: %w", err)
	}
	return printNodes(cmd, children, "No children.")
}

func runNodeImport(cmd *cobra.Command, args []string) error {
	if nodeService == nil {
		return errors.New("node service not configured")
	}

	r, closeInput, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer closeInput()

	result, err := nodeService.Import(cmd.Context(), r)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %d nodes into %d data sources", result.Imported, len(result.DataSources))
	if len(result.DataSources) > 0 {
		cmd.Printf(" (%s)", strings.Join(result.DataSources, ", "))
	}
	cmd.Println()
	if result.Stale > 0 {
		cmd.Printf("Skipped %d stale records\n", result.Stale)
	}
	return nil
}

func runNodeExport(cmd *cobra.Command, args []string) error {
	if nodeService == nil {
		return errors.New("node service not configured")
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err := nodeService.Export(cmd.Context(), args[0], cmd.OutOrStdout())
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	n, err := nodeService.Export(cmd.Context(), args[0], f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	cmd.Printf("Exported %d nodes to %s\n", n, output)
	return nil
}

func runNodeDecode(cmd *cobra.Command, args []string) error {
	r, closeInput, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer closeInput()

	// Decoding is stateless, so a store-less service is enough.
	problems, err := decodeService().Check(r)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		cmd.Println("All records are well formed.")
		return nil
	}

	for _, p := range problems {
		cmd.Println(p.Error())
	}
	return fmt.Errorf("%d malformed records", len(problems))
}

// decodeService returns the wired node service, or one without a store.
func decodeService() driving.NodeService {
	if nodeService != nil {
		return nodeService
	}
	return services.NewNodeService(memory.NewNodeStore())
}

// filesystemConnector builds a connector for path using the resolved
// settings, with flag overrides.
func filesystemConnector(cmd *cobra.Command, path string) (*filesystem.Connector, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	dataSourceID, _ := cmd.Flags().GetString("source-id")
	if dataSourceID == "" {
		dataSourceID = uuid.NewString()
	}

	opts := filesystem.Options{
		IncludeHidden:   settings.Filesystem.IncludeHidden,
		TableExtensions: settings.Filesystem.TableExtensions,
	}
	if cmd.Flags().Changed("include-hidden") {
		opts.IncludeHidden, _ = cmd.Flags().GetBool("include-hidden")
	}

	return filesystem.New(dataSourceID, root, opts), nil
}

// githubConnector builds a connector for repository from the GitHub
// settings, falling back to GITHUB_TOKEN when no token is configured.
func githubConnector(cmd *cobra.Command, repository string) (*github.Connector, error) {
	owner, repo, err := github.ParseRepository(repository)
	if err != nil {
		return nil, err
	}

	dataSourceID, _ := cmd.Flags().GetString("source-id")
	if dataSourceID == "" {
		dataSourceID = "github:" + owner + "/" + repo
	}

	opts := github.Options{
		Token:           settings.GitHub.Token,
		BaseURL:         settings.GitHub.APIURL,
		TableExtensions: settings.Filesystem.TableExtensions,
	}
	if opts.Token == "" {
		opts.Token = os.Getenv("GITHUB_TOKEN")
	}
	opts.Ref, _ = cmd.Flags().GetString("ref")

	return github.New(dataSourceID, owner+"/"+repo, opts)
}

// syncWithProgress runs sync while displaying progress updates.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	conn driven.NodeConnector,
) (*driving.SyncResult, error) {
	type outcome struct {
		result *driving.SyncResult
		err    error
	}

	// Start sync in goroutine
	done := make(chan outcome, 1)
	go func() {
		result, err := syncOrch.Sync(ctx, conn)
		done <- outcome{result, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case o := <-done:
			if lastCount > 0 {
				cmd.Println()
			}
			return o.result, o.err
		case <-ticker.C:
			// Best effort
			status, err := syncOrch.Status(ctx, conn.DataSourceID())
			if err == nil && status != nil && status.NodesProcessed > lastCount {
				cmd.Printf("\rProcessing... %d nodes", status.NodesProcessed)
				lastCount = status.NodesProcessed
			}
		}
	}
}

func printSyncResult(cmd *cobra.Command, result *driving.SyncResult) {
	cmd.Printf("Data source %s: %d nodes (%d created, %d updated, %d unchanged, %d retyped, %d skipped)",
		result.DataSourceID, result.Total(), result.Created, result.Updated, result.Unchanged,
		result.Retyped, result.Skipped)
	if result.Deleted > 0 {
		cmd.Printf(", %d deleted", result.Deleted)
	}
	cmd.Println()
	for _, err := range result.Errors {
		cmd.Printf("  warning: %v\n", err)
	}
}

// printNodes renders nodes as a table, or as JSON lines with --json.
func printNodes(cmd *cobra.Command, nodes []domain.Node, empty string) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		for _, n := range nodes {
			if err := writeJSON(cmd.OutOrStdout(), domain.EncodeNode(n)); err != nil {
				return err
			}
		}
		return nil
	}

	if len(nodes) == 0 {
		cmd.Println(empty)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNODE\tTITLE")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Type(), n.NodeID(), n.Title())
	}
	return tw.Flush()
}

// writeJSON writes one record per line, indented when w is a terminal.
func writeJSON(w io.Writer, record []byte) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, record, "", "  "); err == nil {
			record = buf.Bytes()
		}
	}
	if _, err := w.Write(record); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// openInput opens the file named by args[0], or stdin.
func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// formatMillis renders a millisecond Unix timestamp in UTC.
func formatMillis(ms uint64) string {
	if ms > uint64(1<<62) {
		return "out of range"
	}
	return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339)
}
