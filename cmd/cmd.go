// Package cmd provides CLI command implementations for Synapse.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/calderb/synapse-go/internal/engine"
	"github.com/calderb/synapse-go/internal/rebuild"
	"github.com/calderb/synapse-go/internal/storage"
	"github.com/calderb/synapse-go/internal/vocab"
	"github.com/calderb/synapse-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals holds the configuration shared by every command. Each value can
// come from a flag or the matching SYNAPSE_* environment variable.
type Globals struct {
	ProjectPath string `help:"Project root the graph was built from" env:"SYNAPSE_PROJECT_PATH" default:"."`
	DBPath      string `help:"Path to the graph database (default: <project>/.synapse/graph.sqlite)" env:"SYNAPSE_DB_PATH"`
	Budget      int    `help:"Default token budget for context queries" env:"SYNAPSE_BUDGET_TOKENS" default:"6000"`
	BuilderCmd  string `help:"Command used to rebuild the graph" env:"SYNAPSE_BUILDER_CMD"`
}

func (g *Globals) resolve() (projectPath, dbPath string, err error) {
	projectPath, err = filepath.Abs(g.ProjectPath)
	if err != nil {
		return "", "", fmt.Errorf("resolving project path: %w", err)
	}
	dbPath = g.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(projectPath, ".synapse", "graph.sqlite")
	}
	return projectPath, dbPath, nil
}

// openEngine opens the store and builds an engine over it. With
// requireExisting, a missing database file is an error pointing at the
// rebuild command instead of silently creating an empty graph.
func (g *Globals) openEngine(ctx context.Context, requireExisting bool) (*engine.Engine, *storage.Store, error) {
	_, dbPath, err := g.resolve()
	if err != nil {
		return nil, nil, err
	}

	if requireExisting {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("no graph database at %s. Run 'synapse-go rebuild' first", dbPath)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	cache, err := vocab.New(ctx, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return engine.New(store, cache), store, nil
}

func (g *Globals) newRunner(eng *engine.Engine, store *storage.Store) *rebuild.Runner {
	projectPath, _, _ := g.resolve()
	return &rebuild.Runner{
		ProjectPath: projectPath,
		BuilderCmd:  g.BuilderCmd,
		Meta:        store,
		Reloader:    eng,
	}
}

// QueryCmd retrieves task-relevant context from the graph.
type QueryCmd struct {
	Query    string `arg:"" help:"Natural language description of the coding task"`
	Budget   int    `short:"b" help:"Token budget (overrides the global default)"`
	Seed     string `help:"Node name to anchor the traversal"`
	Depth    int    `short:"d" help:"Maximum traversal depth"`
	MaxNodes int    `help:"Maximum candidate nodes considered"`
}

// Run executes the query command.
func (c *QueryCmd) Run(g *Globals) error {
	ctx := context.Background()
	eng, store, err := g.openEngine(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	budget := c.Budget
	if budget <= 0 {
		budget = g.Budget
	}
	result, err := eng.QueryContext(ctx, c.Query, engine.QueryOptions{
		BudgetTokens: budget,
		SeedNode:     c.Seed,
		MaxDepth:     c.Depth,
		MaxNodes:     c.MaxNodes,
	})
	if err != nil {
		return fmt.Errorf("querying context: %w", err)
	}

	fmt.Println(result.ContextString)
	seed := result.SeedNode
	if seed == "" {
		seed = "(none)"
	}
	color.Green("Nodes: %d | Tokens: ~%d | Seed: %s",
		len(result.NodeIDs), result.TokenEstimate, seed)
	return nil
}

// NodeCmd shows full details for a single node.
type NodeCmd struct {
	Name   string `arg:"" help:"Exact node name"`
	Source bool   `short:"s" help:"Include full body source text"`
}

// Run executes the node command.
func (c *NodeCmd) Run(g *Globals) error {
	ctx := context.Background()
	eng, store, err := g.openEngine(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	info, suggestions, err := eng.NodeInfo(ctx, c.Name, c.Source)
	if err != nil {
		return err
	}
	if info == nil {
		fmt.Printf("Node '%s' not found in the graph.\n", c.Name)
		if len(suggestions) > 0 {
			fmt.Printf("Did you mean: %s\n", strings.Join(suggestions, ", "))
		}
		return nil
	}

	fmt.Printf("# %s\n", info.Name)
	fmt.Printf("Type: %s\n", strOrUnknown(info.NodeType))
	fmt.Printf("File: %s\n", strOrUnknown(info.File))
	if info.Signature != nil {
		fmt.Printf("\nSignature:\n  %s\n", *info.Signature)
	}
	if info.DocText != nil {
		fmt.Printf("\nDocumentation:\n%s\n", *info.DocText)
	}
	printNames := func(label string, names []string) {
		if len(names) > 0 {
			fmt.Printf("\n%s (%d): %s\n", label, len(names), strings.Join(names, ", "))
		}
	}
	printNames("Called by", info.Callers)
	printNames("Calls", info.Callees)
	printNames("Tested by", info.Tests)
	if info.Pagerank != nil {
		fmt.Printf("\nPageRank: %.4f\n", *info.Pagerank)
	}
	if info.TaskWeight != nil {
		fmt.Printf("Task weight: %.3f\n", *info.TaskWeight)
	}
	if c.Source && info.BodyText != nil {
		fmt.Printf("\nSource:\n%s\n", *info.BodyText)
	}
	return nil
}

// SummaryCmd prints graph-wide statistics.
type SummaryCmd struct{}

// Run executes the summary command.
func (c *SummaryCmd) Run(g *Globals) error {
	ctx := context.Background()
	eng, store, err := g.openEngine(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sum, err := eng.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Graph summary\n")
	fmt.Printf("  Nodes:          %d\n", sum.NodeCount)
	fmt.Printf("  Edges:          %d\n", sum.EdgeCount)
	if sum.BuildTime != "" {
		fmt.Printf("  Build time:     %s\n", sum.BuildTime)
	}
	if sum.BuilderVersion != "" {
		fmt.Printf("  Builder:        %s\n", sum.BuilderVersion)
	}
	if sum.ProjectRoot != "" {
		fmt.Printf("  Project root:   %s\n", sum.ProjectRoot)
	}

	if len(sum.NodeTypes) > 0 {
		fmt.Println("\nNode types:")
		for t, n := range sum.NodeTypes {
			fmt.Printf("  %-12s %d\n", t, n)
		}
	}
	if len(sum.EdgeTypes) > 0 {
		fmt.Println("\nEdge types:")
		for t, n := range sum.EdgeTypes {
			fmt.Printf("  %-12s %d\n", t, n)
		}
	}
	if len(sum.TopHubs) > 0 {
		fmt.Println("\nTop hubs:")
		for i, h := range sum.TopHubs {
			fmt.Printf("  %2d. %s (%.5f)\n", i+1, h.Name, h.Pagerank)
		}
	}
	return nil
}

// FileNodesCmd lists the nodes extracted from one source file.
type FileNodesCmd struct {
	Path string `arg:"" help:"Source file path (relative paths match by suffix)"`
}

// Run executes the file-nodes command.
func (c *FileNodesCmd) Run(g *Globals) error {
	ctx := context.Background()
	eng, store, err := g.openEngine(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	nodes, err := eng.FileNodes(ctx, c.Path)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		fmt.Printf("No nodes found for %s\n", c.Path)
		return nil
	}

	fmt.Printf("%d node(s) in %s:\n", len(nodes), c.Path)
	for _, n := range nodes {
		fmt.Printf("  %s (%s)\n", n.Name, strOrUnknown(n.NodeType))
	}
	return nil
}

// HistoryCmd prints recent task traces.
type HistoryCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum entries"`
}

// Run executes the history command.
func (c *HistoryCmd) Run(g *Globals) error {
	ctx := context.Background()
	eng, store, err := g.openEngine(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	traces, err := eng.TaskHistory(ctx, c.Limit)
	if err != nil {
		return err
	}
	if len(traces) == 0 {
		fmt.Println("No task traces recorded yet")
		return nil
	}

	for _, t := range traces {
		query := "(none)"
		if t.Query != nil {
			query = *t.Query
		}
		fmt.Printf("#%d  polarity %+.1f  %s\n", t.TraceID, t.Polarity, t.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("    query: %s\n", query)
		if len(t.Nodes) > 0 {
			fmt.Printf("    nodes: %s\n", strings.Join(t.Nodes, ", "))
		}
	}
	return nil
}

// TraceCmd records one task outcome.
type TraceCmd struct {
	Query    string   `arg:"" help:"Coding task description"`
	Nodes    []string `help:"Node IDs involved in the task"`
	Polarity float64  `default:"0" help:"1 = accepted, -1 = rejected, 0 = neutral"`
	Session  string   `help:"Session identifier"`
}

// Run executes the trace command.
func (c *TraceCmd) Run(g *Globals) error {
	ctx := context.Background()
	eng, store, err := g.openEngine(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	traceID, err := eng.AddTaskTrace(ctx, c.Query, c.Nodes, c.Polarity, c.Session)
	if err != nil {
		return err
	}
	color.Green("✓ Trace #%d recorded (%d nodes, polarity %+.1f)", traceID, len(c.Nodes), c.Polarity)
	return nil
}

// RebuildCmd runs the external graph builder.
type RebuildCmd struct {
	Full bool `help:"Rebuild from scratch instead of incrementally"`
}

// Run executes the rebuild command.
func (c *RebuildCmd) Run(g *Globals) error {
	ctx := context.Background()
	eng, store, err := g.openEngine(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner := g.newRunner(eng, store)
	output, err := runner.Run(ctx, rebuild.Options{Full: c.Full})
	if output != "" {
		fmt.Print(output)
		if !strings.HasSuffix(output, "\n") {
			fmt.Println()
		}
	}
	if err != nil {
		return err
	}
	color.Green("✓ Graph rebuilt")
	return nil
}

// MCPCmd starts the MCP server on stdio.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	return runServer(g, false)
}

// ServeCmd starts the MCP server with optional database watching.
type ServeCmd struct {
	Watch bool `short:"w" help:"Reload caches when the database file changes"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	return runServer(g, c.Watch)
}

func runServer(g *Globals, watch bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		cancel()
	}()

	eng, store, err := g.openEngine(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner := g.newRunner(eng, store)
	server := mcp.NewServer(eng, runner, g.Budget)

	if watch {
		_, dbPath, err := g.resolve()
		if err != nil {
			return err
		}
		go func() {
			err := rebuild.WatchDB(ctx, dbPath, eng.Reload)
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()
		fmt.Fprintln(os.Stderr, "Starting MCP server (database watching enabled)...")
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	// Note: No other output to stdout - MCP uses stdio for JSON-RPC only
	err = server.Run(ctx, os.Stdin, os.Stdout)
	if err == context.Canceled {
		return nil
	}
	return err
}

// SetupCmd configures MCP for various AI clients.
type SetupCmd struct {
	Qwen     bool   `help:"Configure for Qwen CLI"`
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	Format   string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	FilePath string `help:"Custom file path for configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run() error {
	if !c.Qwen && !c.Claude && !c.Cursor {
		return c.outputDefaultConfig()
	}

	if !c.Local && !c.Global {
		c.Local = true
	}

	for client, wanted := range map[string]bool{
		"qwen":   c.Qwen,
		"claude": c.Claude,
		"cursor": c.Cursor,
	} {
		if !wanted {
			continue
		}
		if err := c.setupClient(client); err != nil {
			return err
		}
	}
	return nil
}

func (c *SetupCmd) outputDefaultConfig() error {
	config := generateServerConfig()

	if c.Format == "json" {
		jsonBytes, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Println("# Add this to your MCP client configuration:")
	fmt.Println()
	for key, value := range config {
		fmt.Printf("%s: %s\n", key, toJSON(value))
	}
	return nil
}

func (c *SetupCmd) setupClient(client string) error {
	config := generateServerConfig()

	if c.Global {
		globalPath := getGlobalConfigPath(client)
		if err := writeConfig(globalPath, config, c.Format); err != nil {
			return err
		}
		color.Green("✓ Created global %s MCP config at %s", client, globalPath)
	}

	if c.Local {
		var localPath string
		if c.FilePath != "" {
			localPath = filepath.Join(c.FilePath, "mcp.json")
		} else {
			localPath = getLocalConfigPath(".", client)
		}
		if err := writeConfig(localPath, config, c.Format); err != nil {
			return err
		}
		color.Green("✓ Created local %s MCP config at %s", client, localPath)
	}
	return nil
}

func generateServerConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"synapse-go": map[string]any{
				"command": "synapse-go",
				"args":    []string{"serve", "--watch"},
			},
		},
	}
}

// Path helpers

func getLocalConfigPath(basePath, client string) string {
	return filepath.Join(basePath, getClientConfigDir(client), "mcp.json")
}

func getGlobalConfigPath(client string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, getClientConfigDir(client), "global", "mcp.json")
}

func getClientConfigDir(client string) string {
	switch client {
	case "qwen":
		return ".qwen"
	case "claude":
		return ".claude"
	case "cursor":
		return ".cursor"
	default:
		return ".qwen"
	}
}

func writeConfig(configPath string, config map[string]any, format string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	var content []byte
	var err error

	if format == "json" {
		content, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		content = append(content, '\n')
	} else {
		var sb strings.Builder
		sb.WriteString("# MCP Configuration for Synapse\n")
		sb.WriteString("# Generated by synapse-go setup\n\n")
		for key, value := range config {
			sb.WriteString(fmt.Sprintf("%s: %s\n", key, toJSON(value)))
		}
		content = []byte(sb.String())
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func strOrUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}

func toJSON(v any) string {
	bytes, _ := json.Marshal(v)
	return string(bytes)
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Query     QueryCmd     `cmd:"" help:"Retrieve task-relevant context from the graph"`
	Node      NodeCmd      `cmd:"" help:"Show full details for a node"`
	Summary   SummaryCmd   `cmd:"" help:"Show graph-wide statistics"`
	FileNodes FileNodesCmd `cmd:"" name:"file-nodes" help:"List nodes extracted from a source file"`
	History   HistoryCmd   `cmd:"" help:"Show recent task traces"`
	Trace     TraceCmd     `cmd:"" help:"Record a task outcome for the relevance loop"`
	Rebuild   RebuildCmd   `cmd:"" help:"Run the external graph builder"`
	MCP       MCPCmd       `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve     ServeCmd     `cmd:"" help:"Start MCP server with optional database watching"`
	Setup     SetupCmd     `cmd:"" help:"Configure MCP for Claude Code / Cursor / Qwen"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("synapse-go"),
		kong.Description("Graph-based project context for LLM coding assistants"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run(&c.Globals)
}
