package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/zasterix/zasterix/internal/domain"
	"github.com/zasterix/zasterix/internal/domain/guard"
	"github.com/zasterix/zasterix/internal/domain/template"
	"github.com/zasterix/zasterix/internal/middleware"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.createSpecialistTool(),
		s.listSpecialistsTool(),
		s.consultSpecialistTool(),
		s.scanInputTool(),
	)
}

func (s *Server) createSpecialistTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("create_specialist_agent",
		mcplib.WithDescription("Create a specialist agent template from a task description"),
		mcplib.WithString("task",
			mcplib.Required(),
			mcplib.Description("What the specialist should do"),
		),
		mcplib.WithString("name", mcplib.Description("Display name; defaults to the task")),
		mcplib.WithString("description", mcplib.Description("Short description")),
		mcplib.WithString("system_prompt", mcplib.Description("System prompt; a default is derived from the task")),
		mcplib.WithString("category", mcplib.Description("Category such as Legal, Medizin or Finanzen")),
		mcplib.WithString("icon", mcplib.Description("Icon name")),
		mcplib.WithArray("keywords",
			mcplib.Description("Search keywords; derived from the task when omitted"),
			mcplib.WithStringItems(),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCreateSpecialist}
}

func (s *Server) listSpecialistsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_specialist_agents",
		mcplib.WithDescription("List the specialist agents visible to the caller's organization"),
		mcplib.WithString("category", mcplib.Description("Optional category filter; \"Alle\" selects every template")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListSpecialists}
}

func (s *Server) consultSpecialistTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("consult_specialist",
		mcplib.WithDescription("Consult a specialist agent with a context; unsafe contexts are blocked by the prompt guard"),
		mcplib.WithString("template_id",
			mcplib.Required(),
			mcplib.Description("The specialist template ID"),
		),
		mcplib.WithString("context",
			mcplib.Required(),
			mcplib.Description("The question or case to review"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleConsultSpecialist}
}

func (s *Server) scanInputTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("scan_input",
		mcplib.WithDescription("Scan text for prompt-injection phrasing"),
		mcplib.WithString("input",
			mcplib.Required(),
			mcplib.Description("The text to scan"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleScanInput}
}

func (s *Server) handleCreateSpecialist(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Templates == nil {
		return mcplib.NewToolResultError("template registry not configured"), nil
	}
	task, err := req.RequireString("task")
	if err != nil {
		return mcplib.NewToolResultError("task is required"), nil
	}

	o := template.Overrides{
		Name:           optString(req, "name"),
		Description:    optString(req, "description"),
		SystemPrompt:   optString(req, "system_prompt"),
		Category:       optString(req, "category"),
		Icon:           optString(req, "icon"),
		Keywords:       req.GetStringSlice("keywords", nil),
		OrganizationID: middleware.IdentityFromContext(ctx).OrgPtr(),
	}
	t, err := s.deps.Templates.Create(ctx, task, o)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to create specialist", err), nil
	}
	return toolResultJSON(t)
}

func (s *Server) handleListSpecialists(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Templates == nil {
		return mcplib.NewToolResultError("template registry not configured"), nil
	}
	org := middleware.IdentityFromContext(ctx).OrganizationID
	list, err := s.deps.Templates.List(ctx, template.OrgScope(org))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list specialists", err), nil
	}

	category := req.GetString("category", "")
	out := make([]template.AgentTemplate, 0, len(list))
	for i := range list {
		if list[i].InCategory(category) {
			out = append(out, list[i])
		}
	}
	return toolResultJSON(out)
}

func (s *Server) handleConsultSpecialist(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Templates == nil {
		return mcplib.NewToolResultError("template registry not configured"), nil
	}
	id, err := req.RequireString("template_id")
	if err != nil || id == "" {
		return mcplib.NewToolResultError("template_id is required"), nil
	}
	input := req.GetString("context", "")

	org := middleware.IdentityFromContext(ctx).OrganizationID
	c, err := s.deps.Templates.Consult(ctx, org, id, input)
	if errors.Is(err, domain.ErrNotFound) {
		return mcplib.NewToolResultError(fmt.Sprintf("specialist %s not found", id)), nil
	}
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("consultation failed", err), nil
	}
	return toolResultJSON(c)
}

func (s *Server) handleScanInput(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	input, err := req.RequireString("input")
	if err != nil {
		return mcplib.NewToolResultError("input is required"), nil
	}
	return toolResultJSON(guard.Scan(input))
}

// optString returns the named argument, or nil when it is absent or empty.
func optString(req mcplib.CallToolRequest, key string) *string { //nolint:gocritic // hugeParam: mcp-go request type
	v := req.GetString(key, "")
	if v == "" {
		return nil
	}
	return &v
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
