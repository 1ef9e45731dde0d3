package tools

// ParameterManifest describes one parameter to clients.
type ParameterManifest struct {
	Name        string             `json:"name"`
	Type        ParamType          `json:"type"`
	Description string             `json:"description"`
	Items       *ParameterManifest `json:"items,omitempty"`
	Required    bool               `json:"required"`
	Default     any                `json:"default,omitempty"`
}

// ToolManifest is the client-facing description of a tool.
type ToolManifest struct {
	Description string              `json:"description"`
	Parameters  []ParameterManifest `json:"parameters"`
}

// Manifest is the discovery document served for a toolset or a single tool.
type Manifest struct {
	ServerVersion string                  `json:"serverVersion"`
	Tools         map[string]ToolManifest `json:"tools"`
}

// Manifest returns the tool's client-facing description.
func (t *Tool) Manifest() ToolManifest {
	params := make([]ParameterManifest, len(t.Spec.Parameters))
	for i, p := range t.Spec.Parameters {
		params[i] = parameterManifest(p)
	}
	return ToolManifest{Description: t.Spec.Description, Parameters: params}
}

func parameterManifest(p Parameter) ParameterManifest {
	m := ParameterManifest{
		Name:        p.Name,
		Type:        p.Type,
		Description: p.Description,
		Required:    p.IsRequired(),
		Default:     p.Default,
	}
	if p.Items != nil {
		items := parameterManifest(*p.Items)
		m.Items = &items
	}
	return m
}

// InputSchema returns a JSON Schema object for the tool's arguments.
func (t *Tool) InputSchema() map[string]any {
	props := make(map[string]any, len(t.Spec.Parameters))
	required := make([]string, 0, len(t.Spec.Parameters))
	for _, p := range t.Spec.Parameters {
		props[p.Name] = propertySchema(p)
		if p.IsRequired() {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func propertySchema(p Parameter) map[string]any {
	s := map[string]any{"type": jsonType(p.Type)}
	if p.Description != "" {
		s["description"] = p.Description
	}
	if p.Default != nil {
		s["default"] = p.Default
	}
	if p.Type == TypeArray {
		if p.Items != nil {
			s["items"] = propertySchema(*p.Items)
		} else {
			s["items"] = map[string]any{}
		}
	}
	return s
}

func jsonType(t ParamType) string {
	if t == TypeFloat {
		return "number"
	}
	return string(t)
}
