package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/zasterix/zasterix/internal/domain/template"
)

const (
	templatesURI = "zasterix://templates"
	modulesURI   = "zasterix://modules"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			templatesURI,
			"Specialist Agents",
			mcplib.WithResourceDescription("Global specialist agent templates"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTemplatesResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			modulesURI,
			"Guided Modules",
			mcplib.WithResourceDescription("Guided wealth modules and their tasks"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleModulesResource,
	)
}

func (s *Server) handleTemplatesResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // mcp-go handler signature
	if s.deps.Templates == nil {
		return jsonResource(req.Params.URI, map[string]string{"error": "template registry not configured"})
	}
	list, err := s.deps.Templates.List(ctx, template.GlobalScope())
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, list)
}

func (s *Server) handleModulesResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) { //nolint:gocritic // mcp-go handler signature
	if s.deps.Modules == nil {
		return jsonResource(req.Params.URI, map[string]string{"error": "module catalog not configured"})
	}
	return jsonResource(req.Params.URI, s.deps.Modules.Modules())
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
