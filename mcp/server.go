// Package mcp provides the MCP (Model Context Protocol) server for Synapse.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/calderb/synapse-go/internal/engine"
	"github.com/calderb/synapse-go/internal/graph"
	"github.com/calderb/synapse-go/internal/rebuild"
)

// Engine is the retrieval surface the server exposes over MCP.
type Engine interface {
	QueryContext(ctx context.Context, query string, opts engine.QueryOptions) (*graph.ContextResult, error)
	NodeInfo(ctx context.Context, name string, includeSource bool) (*graph.NodeDetail, []string, error)
	Summary(ctx context.Context) (*graph.Summary, error)
	FileNodes(ctx context.Context, path string) ([]*graph.Node, error)
	TaskHistory(ctx context.Context, maxEntries int) ([]graph.TaskTrace, error)
	AddTaskTrace(ctx context.Context, query string, nodes []string, polarity float64, sessionID string) (int64, error)
}

// Rebuilder triggers an external graph rebuild. Optional; a server without
// one reports rebuilds as unavailable.
type Rebuilder interface {
	Run(ctx context.Context, opts rebuild.Options) (string, error)
}

// Server represents the MCP server.
type Server struct {
	engine        Engine
	rebuilder     Rebuilder
	defaultBudget int
	server        *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

const fileResourcePrefix = "synapse://file/"

// NewServer creates a new MCP server. rebuilder may be nil; defaultBudget <= 0
// selects the engine default.
func NewServer(eng Engine, rebuilder Rebuilder, defaultBudget int) *Server {
	if defaultBudget <= 0 {
		defaultBudget = engine.DefaultBudgetTokens
	}
	s := &Server{
		engine:        eng,
		rebuilder:     rebuilder,
		defaultBudget: defaultBudget,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "synapse-go",
		Version: "0.1.0",
	}, nil)

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name: "query_context",
			Description: "Query the code graph for project context relevant to a coding task. " +
				"Returns structured context (signatures, documentation, source) within a configurable token budget.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query":         {Type: "string", Description: "Natural language description of the coding task"},
					"budget_tokens": {Type: "integer", Description: "Token budget for returned context"},
					"seed_node":     {Type: "string", Description: "Optional node name to anchor the graph traversal"},
					"max_depth":     {Type: "integer", Description: "Maximum traversal depth"},
					"max_nodes":     {Type: "integer", Description: "Maximum candidate nodes considered"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name: "get_node_info",
			Description: "Retrieve full details for a specific node in the graph: " +
				"signature, documentation, callers, callees, and test coverage.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"node_name":      {Type: "string", Description: "Exact name of the node"},
					"include_source": {Type: "boolean", Description: "Include full body source text"},
				},
				Required: []string{"node_name"},
			},
		},
		{
			Name: "rebuild_graph",
			Description: "Trigger a rebuild of the code graph via the external builder. " +
				"On completion, the serving process refreshes its caches.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"incremental":           {Type: "boolean", Description: "Use incremental rebuild (default: true)"},
					"project_path_override": {Type: "string", Description: "Override the project path set at server startup"},
				},
			},
		},
		{
			Name: "add_task_trace",
			Description: "Record the outcome of an LLM coding task as feedback for the graph relevance loop. " +
				"Call after a task is accepted (+polarity) or rejected (-polarity).",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "The coding task description sent to the LLM"},
					"nodes": {
						Type:        "array",
						Items:       &jsonschema.Schema{Type: "string"},
						Description: "Node IDs relevant to this task",
					},
					"polarity":   {Type: "number", Description: "1.0 = accepted, -1.0 = rejected, 0 = neutral"},
					"session_id": {Type: "string", Description: "Optional session identifier"},
				},
				Required: []string{"query", "nodes"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "synapse://summary",
			Name:        "Graph Summary",
			Description: "Graph overview: node/edge counts, top hubs, build provenance",
			MimeType:    "text/plain",
		},
		{
			URI:         fileResourcePrefix + "{path}",
			Name:        "File Nodes",
			Description: "All graph nodes extracted from a specific source file",
			MimeType:    "text/plain",
		},
		{
			URI:         "synapse://task-history",
			Name:        "Task History",
			Description: "Most recent LLM task trace entries",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "query_context":
		query, _ := args["query"].(string)
		budget, _ := args["budget_tokens"].(float64)
		seed, _ := args["seed_node"].(string)
		maxDepth, _ := args["max_depth"].(float64)
		maxNodes, _ := args["max_nodes"].(float64)
		opts := engine.QueryOptions{
			BudgetTokens: int(budget),
			SeedNode:     seed,
			MaxDepth:     int(maxDepth),
			MaxNodes:     int(maxNodes),
		}
		if opts.BudgetTokens <= 0 {
			opts.BudgetTokens = s.defaultBudget
		}
		return s.handleQueryContext(ctx, query, opts)

	case "get_node_info":
		nodeName, _ := args["node_name"].(string)
		includeSource, _ := args["include_source"].(bool)
		return s.handleNodeInfo(ctx, nodeName, includeSource)

	case "rebuild_graph":
		incremental := true
		if v, ok := args["incremental"].(bool); ok {
			incremental = v
		}
		override, _ := args["project_path_override"].(string)
		return s.handleRebuild(ctx, rebuild.Options{Full: !incremental, ProjectPath: override})

	case "add_task_trace":
		query, _ := args["query"].(string)
		nodesArg, _ := args["nodes"].([]any)
		nodes := make([]string, 0, len(nodesArg))
		for _, n := range nodesArg {
			if id, ok := n.(string); ok {
				nodes = append(nodes, id)
			}
		}
		polarity, _ := args["polarity"].(float64)
		sessionID, _ := args["session_id"].(string)
		return s.handleAddTrace(ctx, query, nodes, polarity, sessionID)

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch {
	case uri == "synapse://summary":
		return s.renderSummary(ctx)
	case uri == "synapse://task-history":
		return s.renderTaskHistory(ctx)
	case strings.HasPrefix(uri, fileResourcePrefix):
		return s.renderFileNodes(ctx, strings.TrimPrefix(uri, fileResourcePrefix))
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "synapse-go",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
