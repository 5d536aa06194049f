package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/redpersona/internal/storage"
	"github.com/kalambet/redpersona/internal/view"
	"github.com/kalambet/redpersona/internal/workflow"
)

// ExportLedger lists saved reports.
type ExportLedger interface {
	RecentExports(limit int) ([]storage.Export, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Controller *workflow.Controller
	Ledger     ExportLedger     // optional; if nil, exports://recent is not registered
	Now        func() time.Time // nil uses time.Now
	DateLayout string
}

func (d MCPDeps) viewOptions() view.Options {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return view.Options{Now: now(), DateLayout: d.DateLayout}
}

// NewMCPServer creates an MCP server exposing the persona workflow as tools and resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"redpersona",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("redpersona: build personas from Reddit user profiles and export their reports."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_profile",
			mcp.WithDescription("Analyze a Reddit user profile and return the resulting persona as JSON. Only one analysis runs at a time."),
			mcp.WithString("url", mcp.Description("Reddit profile URL, e.g. https://www.reddit.com/user/someone/"), mcp.Required()),
		),
		mcpAnalyzeProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("list_personas",
			mcp.WithDescription("Reload and list previously computed personas in service order."),
		),
		mcpListPersonas(deps),
	)

	s.AddTool(
		mcp.NewTool("export_persona",
			mcp.WithDescription("Download a persona's text report and save it as persona_<id>.txt."),
			mcp.WithString("persona_id", mcp.Description("Persona id from list_personas"), mcp.Required()),
		),
		mcpExportPersona(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"personas://history",
			"Persona History",
			mcp.WithResourceDescription("Cached persona list from the last successful reload"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	if deps.Ledger != nil {
		s.AddResource(
			mcp.NewResource(
				"exports://recent",
				"Recent Exports",
				mcp.WithResourceDescription("Last 20 saved persona reports"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceExports(deps),
		)
	}

	return s
}

func mcpAnalyzeProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		st, err := deps.Controller.Analyze(ctx, url)
		switch {
		case errors.Is(err, workflow.ErrBusy):
			return mcpError("an analysis is already running; try again when it finishes"), nil
		case err != nil:
			return mcpError("analysis is still running in the background; call list_personas later"), nil
		case st.Phase == workflow.PhaseFailure:
			return mcpError(st.Message), nil
		}

		b, err := json.Marshal(st.Persona)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal persona: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

type historyEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Date     string `json:"date"`
	Age      string `json:"age,omitempty"`
}

func historyJSON(deps MCPDeps) (string, error) {
	items := view.Project(deps.Controller.Snapshot(), deps.viewOptions()).History
	entries := make([]historyEntry, len(items))
	for i, it := range items {
		entries[i] = historyEntry{ID: it.ID, Username: it.Username, Date: it.Date, Age: it.Age}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func mcpListPersonas(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := deps.Controller.Reload(ctx); err != nil {
			return mcpError(fmt.Sprintf("failed to list personas: %v", err)), nil
		}

		text, err := historyJSON(deps)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal personas: %v", err)), nil
		}
		return mcpText(text), nil
	}
}

func mcpExportPersona(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("persona_id")
		if err != nil {
			return mcpError("persona_id is required"), nil
		}

		path, err := deps.Controller.ExportReport(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Saved report to %s", path)), nil
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := historyJSON(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal personas: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	}
}

func mcpResourceExports(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		exports, err := deps.Ledger.RecentExports(20)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent exports: %w", err)
		}

		type exportSummary struct {
			PersonaID string `json:"persona_id"`
			Path      string `json:"path"`
			Bytes     int64  `json:"bytes"`
			SHA256    string `json:"sha256"`
			CreatedAt string `json:"created_at"`
		}

		summaries := make([]exportSummary, len(exports))
		for i, e := range exports {
			summaries[i] = exportSummary{
				PersonaID: e.PersonaID,
				Path:      e.Path,
				Bytes:     e.Bytes,
				SHA256:    e.SHA256,
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal exports: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
