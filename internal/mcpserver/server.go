// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Vorlage tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/steinmetz/vorlage/internal/models"
	"github.com/steinmetz/vorlage/internal/templateservice"
)

// Server wraps the MCP server with Vorlage tools.
type Server struct {
	mcp *server.MCPServer
	svc *templateservice.Service
}

// New creates a new MCP server with all Vorlage tools registered.
func New(svc *templateservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Vorlage",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_templates",
		mcp.WithDescription("Full-text search through template content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTemplates)

	s.mcp.AddTool(mcp.NewTool("read_template",
		mcp.WithDescription("Read the full content of a Markdown template."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the template (e.g. zahlungen/mahnung.md)")),
	), s.readTemplate)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List templates, optionally filtered by category. "+
			"Pass 'Sonstiges' to select templates without a category."),
		mcp.WithString("kategorie", mcp.Description("Optional category filter (empty for all)")),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("render_template",
		mcp.WithDescription("Render a template against a context of entity records. "+
			"Unresolved placeholders are replaced by bracketed labels and reported in "+
			"the result; rendering never modifies the stored template."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the template")),
		mcp.WithString("context", mcp.Description("JSON object with mieter/wohnung/haus/vermieter records and an ISO-8601 datum")),
	), s.renderTemplate)

	s.mcp.AddTool(mcp.NewTool("validate_template",
		mcp.WithDescription("Validate a template against the quality rules and compute "+
			"its score (0-100) with recommendations."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the template")),
	), s.validateTemplate)

	s.mcp.AddTool(mcp.NewTool("get_template_contract",
		mcp.WithDescription("Returns the canonical Vorlage template format contract. "+
			"Call this before creating or updating templates to ensure correct structure "+
			"and placeholder syntax."),
	), s.getTemplateContract)

	// Resource: template format contract.
	s.mcp.AddResource(
		mcp.NewResource("vorlage://template-format", "Template Format Contract",
			mcp.WithResourceDescription("Canonical Markdown template format that all templates must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTemplateFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tpl, err := s.svc.GetTemplate(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(tpl.Content), nil
}

func (s *Server) listTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := ""
	if c, err := req.RequireString("kategorie"); err == nil {
		category = c
	}

	items, _, err := s.svc.ListTemplates(ctx, 1000, 0, category, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, item := range items {
		lines = append(lines, item.Path)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) renderTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tctx *models.TemplateContext
	if raw, ctxErr := req.RequireString("context"); ctxErr == nil && raw != "" {
		tctx = &models.TemplateContext{}
		if jsonErr := json.Unmarshal([]byte(raw), tctx); jsonErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid context JSON: %v", jsonErr)), nil
		}
	}

	res, err := s.svc.RenderPath(ctx, path, tctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) validateTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.ValidatePath(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTemplateContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TemplateFormatContract), nil
}

func (s *Server) readTemplateFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vorlage://template-format",
			MIMEType: "text/markdown",
			Text:     TemplateFormatContract,
		},
	}, nil
}
