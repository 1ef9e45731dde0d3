package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"
)

// Resource URIs. toolset:// without a name is the implicit toolset of every
// tool, matching GET /api/toolset/ on the REST side.
const (
	allToolsURI        = "toolset://"
	toolsetTemplateURI = "toolset://{name}"
	toolTemplateURI    = "tool://{name}"
)

const manifestMIMEType = "application/json"

func (s *Server) registerResourceTemplates() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         allToolsURI,
		Name:        "All Tools",
		Description: "Every loaded tool with its parameters",
		MIMEType:    manifestMIMEType,
	}, s.handleToolsetResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: toolsetTemplateURI,
		Name:        "Toolset Manifest",
		Description: "Tools of a toolset with their parameters",
		MIMEType:    manifestMIMEType,
	}, s.handleToolsetResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: toolTemplateURI,
		Name:        "Tool Manifest",
		Description: "One tool with its parameters",
		MIMEType:    manifestMIMEType,
	}, s.handleToolResource)
}

// parseTemplateVars extracts named variables from a URI using a URI template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// handleToolsetResource handles toolset://{name} and toolset://. Names
// resolve exactly as they do on GET /api/toolset/{name}.
func (s *Server) handleToolsetResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name := ""
	if uri != allToolsURI {
		vars, err := parseTemplateVars(toolsetTemplateURI, uri)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
		}
		name = vars["name"]
	}
	m, err := s.reg.Manifest(name)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	return jsonResource(uri, m)
}

// handleToolResource handles tool://{name}.
func (s *Server) handleToolResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(toolTemplateURI, uri)
	if err != nil || vars["name"] == "" {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	m, err := s.reg.ToolManifest(vars["name"])
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	return jsonResource(uri, m)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: manifestMIMEType,
			Text:     string(data),
		}},
	}, nil
}
